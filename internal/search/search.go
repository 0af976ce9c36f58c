package search

import (
	"context"
	"strings"
)

// Query is one provider request: a search term restricted to a location and
// an allow-list of job sites.
type Query struct {
	Term     string
	Location string
	Sites    []string
	// Num asks the provider for this many results; 0 keeps its default.
	Num int
}

// Result is a single raw search hit. Either field may be empty.
type Result struct {
	Title string
	Link  string
}

// Provider runs a query against a search API.
type Provider interface {
	Search(ctx context.Context, query Query) ([]Result, error)
}

// String renders the query as sent to the provider, e.g.
// `golang jobs in Berlin site:linkedin.com/jobs OR site:indeed.com`.
func (q Query) String() string {
	parts := []string{strings.TrimSpace(q.Term)}
	if location := strings.TrimSpace(q.Location); location != "" {
		parts = append(parts, "in", location)
	}
	if sites := SiteFilter(q.Sites); sites != "" {
		parts = append(parts, sites)
	}
	return strings.Join(parts, " ")
}

// SiteFilter OR-combines site: operators for the given domains.
func SiteFilter(sites []string) string {
	terms := make([]string, 0, len(sites))
	for _, site := range sites {
		site = strings.TrimSpace(site)
		if site == "" {
			continue
		}
		terms = append(terms, "site:"+site)
	}
	return strings.Join(terms, " OR ")
}
