package mock

import (
	"context"

	"github.com/bakkerme/jobwatch/internal/search"
)

// Provider returns canned results keyed by query term and records every query.
type Provider struct {
	ResultsByTerm map[string][]search.Result
	ErrByTerm     map[string]error
	Queries       []search.Query
}

func (p *Provider) Search(ctx context.Context, query search.Query) ([]search.Result, error) {
	_ = ctx
	p.Queries = append(p.Queries, query)
	if p.ErrByTerm != nil {
		if err, ok := p.ErrByTerm[query.Term]; ok {
			return nil, err
		}
	}
	return p.ResultsByTerm[query.Term], nil
}
