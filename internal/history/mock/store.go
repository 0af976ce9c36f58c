package mock

import (
	"context"

	"github.com/bakkerme/jobwatch/internal/history"
)

// Store keeps history in memory. LoadErr and AppendErr force failures.
type Store struct {
	IDs       []string
	Appends   [][]string
	LoadErr   error
	AppendErr error
	Closed    bool
}

func (s *Store) Load(ctx context.Context) (history.Set, error) {
	_ = ctx
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return history.NewSet(s.IDs...), nil
}

func (s *Store) Append(ctx context.Context, ids []string) error {
	_ = ctx
	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.Appends = append(s.Appends, append([]string(nil), ids...))
	s.IDs = append(s.IDs, ids...)
	return nil
}

func (s *Store) Close() error {
	s.Closed = true
	return nil
}
