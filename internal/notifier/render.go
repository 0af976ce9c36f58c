package notifier

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bakkerme/jobwatch/internal/core"
)

const ellipsis = "…"

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// EscapeMarkdown escapes the characters Telegram's legacy Markdown treats as
// entity delimiters.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Render formats a batch as a single message:
//
//	✨ *2 New Jobs for 'golang'*:
//
//	*Title one*
//	https://example.com/1
//
//	*Title two*
//	https://example.com/2
func Render(query string, postings []core.Posting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✨ *%d New Jobs for '%s'*:\n\n", len(postings), EscapeMarkdown(query))
	for i, posting := range postings {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "*%s*\n%s", EscapeMarkdown(posting.Title), EscapeMarkdown(posting.Link))
	}
	return b.String()
}

// fit renders the batch within maxRunes. Postings that cannot fit even with a
// one-rune title are skipped; of the rest, trailing postings are removed
// until the message fits, and a lone posting that is still too long gets its
// title shortened. The returned postings are the ones the message actually
// contains. When none fit, fit returns an empty message and no postings.
func fit(query string, postings []core.Posting, maxRunes int) (string, []core.Posting) {
	if maxRunes <= 0 || len(postings) == 0 {
		return Render(query, postings), postings
	}
	candidates := make([]core.Posting, 0, len(postings))
	for _, posting := range postings {
		if fitsAlone(query, posting, maxRunes) {
			candidates = append(candidates, posting)
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}
	for n := len(candidates); n >= 1; n-- {
		text := Render(query, candidates[:n])
		if utf8.RuneCountInString(text) <= maxRunes {
			return text, candidates[:n]
		}
	}

	first := candidates[0]
	bare := first
	bare.Title = ""
	budget := maxRunes - utf8.RuneCountInString(Render(query, []core.Posting{bare}))
	first.Title = shortenTitle(first.Title, budget)
	kept := []core.Posting{first}
	return Render(query, kept), kept
}

// fitsAlone reports whether posting fits in a message of its own once its
// title is cut down to a single rune and the ellipsis.
func fitsAlone(query string, posting core.Posting, maxRunes int) bool {
	posting.Title = "x" + ellipsis
	return utf8.RuneCountInString(Render(query, []core.Posting{posting})) <= maxRunes
}

// shortenTitle cuts title so that its escaped form plus an ellipsis takes at
// most budget runes. The result is never empty.
func shortenTitle(title string, budget int) string {
	limit := budget - utf8.RuneCountInString(ellipsis)
	if limit <= 0 {
		return ellipsis
	}
	runes := []rune(title)
	for len(runes) > 0 && utf8.RuneCountInString(EscapeMarkdown(string(runes))) > limit {
		runes = runes[:len(runes)-1]
	}
	return strings.TrimSpace(string(runes)) + ellipsis
}
