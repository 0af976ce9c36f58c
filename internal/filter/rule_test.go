package filter

import (
	"testing"

	"github.com/bakkerme/jobwatch/internal/config"
	"github.com/bakkerme/jobwatch/internal/core"
)

func TestRuleDropsMatches(t *testing.T) {
	rule, err := NewRule(&config.PostingRule{Name: "no-senior", Rule: `title.value contains "Senior"`, Result: "drop"})
	if err != nil {
		t.Fatalf("NewRule failed: %v", err)
	}
	cases := []struct {
		title string
		keep  bool
	}{
		{"Senior Go Engineer", false},
		{"Junior Go Engineer", true},
	}
	for _, tc := range cases {
		keep, err := rule.Keep("golang", core.Posting{Title: tc.title, Link: "https://x.example/1"})
		if err != nil {
			t.Fatalf("Keep(%q) error: %v", tc.title, err)
		}
		if keep != tc.keep {
			t.Fatalf("Keep(%q)=%v want %v", tc.title, keep, tc.keep)
		}
	}
}

func TestRulePassKeepsOnlyMatches(t *testing.T) {
	rule, err := NewRule(&config.PostingRule{Name: "linkedin-only", Rule: `host == "linkedin.com"`, Result: "pass"})
	if err != nil {
		t.Fatalf("NewRule failed: %v", err)
	}
	keep, _ := rule.Keep("q", core.Posting{Title: "a", Link: "https://www.linkedin.com/jobs/view/1"})
	if !keep {
		t.Fatalf("expected linkedin posting to be kept")
	}
	keep, _ = rule.Keep("q", core.Posting{Title: "a", Link: "https://naukri.com/job/1"})
	if keep {
		t.Fatalf("expected non-matching posting to be dropped")
	}
}

func TestNewRuleRejectsInvalidExpressions(t *testing.T) {
	bad := []*config.PostingRule{
		nil,
		{Name: "", Rule: "true", Result: "drop"},
		{Name: "r", Rule: "true", Result: "keep"},
		{Name: "r", Rule: `title.value + 1 ==`, Result: "drop"},
		{Name: "r", Rule: `len(link)`, Result: "drop"},
	}
	for i, cfg := range bad {
		if _, err := NewRule(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
