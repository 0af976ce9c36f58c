// Package history records the identifiers of postings that were delivered to
// the recipient. The record is append-only: nothing is ever removed, so an
// identifier present once stays present for every later run.
package history

import (
	"context"
	"strings"
)

// Store persists the set of delivered posting identifiers.
//
// Load returns an empty Set and no error when no record exists yet. Append
// adds identifiers durably; implementations write a batch as a unit where the
// backend allows it and never record an identifier that was not passed in.
type Store interface {
	Load(ctx context.Context) (Set, error)
	Append(ctx context.Context, ids []string) error
	Close() error
}

// Set is an in-memory snapshot of the history record.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Add(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// cleanIDs trims identifiers and drops blanks and ids containing line breaks,
// which cannot be represented in the line-oriented record.
func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || strings.ContainsAny(id, "\r\n") {
			continue
		}
		out = append(out, id)
	}
	return out
}
