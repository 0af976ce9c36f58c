package notifier

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bakkerme/jobwatch/internal/core"
)

func TestRenderFormat(t *testing.T) {
	got := Render("AI ML fresher jobs", []core.Posting{
		{Title: "ML Engineer", Link: "https://example.com/1"},
		{Title: "Data Analyst", Link: "https://example.com/2"},
	})
	want := "✨ *2 New Jobs for 'AI ML fresher jobs'*:\n\n" +
		"*ML Engineer*\nhttps://example.com/1\n\n" +
		"*Data Analyst*\nhttps://example.com/2"
	if got != want {
		t.Fatalf("unexpected message:\n%q\nwant\n%q", got, want)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	got := EscapeMarkdown("c_sharp *senior* `dev` [remote]")
	want := "c\\_sharp \\*senior\\* \\`dev\\` \\[remote]"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRenderEscapesTitleAndLink(t *testing.T) {
	got := Render("go_lang", []core.Posting{{Title: "Go *Dev*", Link: "https://example.com/a_b"}})
	if !strings.Contains(got, "'go\\_lang'") || !strings.Contains(got, "*Go \\*Dev\\**") || !strings.Contains(got, "https://example.com/a\\_b") {
		t.Fatalf("expected escaped output, got %q", got)
	}
}

func TestFitDropsTrailingPostings(t *testing.T) {
	postings := []core.Posting{
		{Title: "one", Link: "https://example.com/1"},
		{Title: "two", Link: "https://example.com/2"},
		{Title: "three", Link: "https://example.com/3"},
	}
	limit := utf8.RuneCountInString(Render("q", postings[:2]))

	text, kept := fit("q", postings, limit)
	if len(kept) != 2 || kept[1].Link != "https://example.com/2" {
		t.Fatalf("expected first two postings, got %+v", kept)
	}
	if text != Render("q", postings[:2]) {
		t.Fatalf("message does not match kept postings")
	}
}

func TestFitShortensSingleOversizedTitle(t *testing.T) {
	posting := core.Posting{Title: strings.Repeat("long_title ", 50), Link: "https://example.com/1"}
	limit := 80

	text, kept := fit("q", []core.Posting{posting}, limit)
	if len(kept) != 1 {
		t.Fatalf("expected the posting to be kept")
	}
	if n := utf8.RuneCountInString(text); n > limit {
		t.Fatalf("message has %d runes, limit %d", n, limit)
	}
	if !strings.HasSuffix(kept[0].Title, ellipsis) || kept[0].Link != posting.Link {
		t.Fatalf("unexpected shortened posting %+v", kept[0])
	}
}

func TestFitKeepsShortMessages(t *testing.T) {
	postings := []core.Posting{{Title: "one", Link: "https://example.com/1"}}
	text, kept := fit("q", postings, 4096)
	if len(kept) != 1 || text != Render("q", postings) {
		t.Fatalf("expected unchanged message")
	}
}

func TestFitReturnsNothingWhenLinkAloneIsTooLong(t *testing.T) {
	posting := core.Posting{Title: "Engineer", Link: "https://example.com/" + strings.Repeat("a", 200)}

	text, kept := fit("q", []core.Posting{posting}, 100)
	if text != "" || len(kept) != 0 {
		t.Fatalf("expected nothing to fit, got %d postings in %q", len(kept), text)
	}
}

func TestFitSkipsOversizedPostingAndKeepsTheRest(t *testing.T) {
	postings := []core.Posting{
		{Title: "Engineer", Link: "https://example.com/" + strings.Repeat("a", 200)},
		{Title: "Analyst", Link: "https://example.com/2"},
	}

	text, kept := fit("q", postings, 100)
	if len(kept) != 1 || kept[0].Link != "https://example.com/2" {
		t.Fatalf("expected only the second posting, got %+v", kept)
	}
	if n := utf8.RuneCountInString(text); n > 100 {
		t.Fatalf("message has %d runes, limit 100", n)
	}
}

func TestFitNeverRendersEmptyTitle(t *testing.T) {
	posting := core.Posting{Title: "Senior Engineer", Link: "https://example.com/1"}
	bare := posting
	bare.Title = "x" + ellipsis
	limit := utf8.RuneCountInString(Render("q", []core.Posting{bare}))

	text, kept := fit("q", []core.Posting{posting}, limit)
	if len(kept) != 1 {
		t.Fatalf("expected the posting to be kept")
	}
	if kept[0].Title == "" || strings.Contains(text, "**") {
		t.Fatalf("title must not be empty, got %q", text)
	}
	if n := utf8.RuneCountInString(text); n > limit {
		t.Fatalf("message has %d runes, limit %d", n, limit)
	}
}
