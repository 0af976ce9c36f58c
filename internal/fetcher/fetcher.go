// Package fetcher turns configured search terms into batches of postings that
// have not been delivered before.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bakkerme/jobwatch/internal/config"
	"github.com/bakkerme/jobwatch/internal/core"
	"github.com/bakkerme/jobwatch/internal/filter"
	"github.com/bakkerme/jobwatch/internal/history"
	"github.com/bakkerme/jobwatch/internal/search"
)

// DefaultTitle replaces a missing result title.
const DefaultTitle = "No Title Available"

var tracer = otel.Tracer("github.com/bakkerme/jobwatch/internal/fetcher")

type Fetcher struct {
	config   config.SearchConfig
	provider search.Provider
	rule     *filter.Rule
	logger   *slog.Logger
}

// New builds a Fetcher. rule may be nil.
func New(cfg config.SearchConfig, provider search.Provider, rule *filter.Rule, logger *slog.Logger) (*Fetcher, error) {
	if provider == nil {
		return nil, fmt.Errorf("search provider is required")
	}
	if len(cfg.Queries) == 0 {
		return nil, fmt.Errorf("at least one query is required")
	}
	if cfg.PerQueryLimit < 1 {
		return nil, fmt.Errorf("per query limit must be >= 1")
	}
	return &Fetcher{
		config:   cfg,
		provider: provider,
		rule:     rule,
		logger:   logger,
	}, nil
}

// Fetch queries every configured term in order and returns one batch per term
// that produced at least one new posting, in the same order.
//
// seen is the history snapshot taken at the start of the run; it is not
// modified. A provider error for one term is reported in that term's outcome
// and does not stop the remaining terms.
func (f *Fetcher) Fetch(ctx context.Context, seen history.Set) ([]*core.Batch, []core.QueryOutcome) {
	if seen == nil {
		seen = history.Set{}
	}
	// Links already placed in an earlier batch of this run.
	claimed := map[string]struct{}{}

	batches := []*core.Batch{}
	outcomes := make([]core.QueryOutcome, 0, len(f.config.Queries))
	for _, term := range f.config.Queries {
		batch, outcome := f.fetchTerm(ctx, term, seen, claimed)
		outcomes = append(outcomes, outcome)
		if batch != nil {
			batches = append(batches, batch)
		}
	}
	return batches, outcomes
}

func (f *Fetcher) fetchTerm(ctx context.Context, term string, seen history.Set, claimed map[string]struct{}) (*core.Batch, core.QueryOutcome) {
	logger := core.LoggerFromContext(ctx, f.logger).With("query", term)
	outcome := core.QueryOutcome{Query: term}

	ctx, span := tracer.Start(ctx, "jobwatch.fetch", trace.WithAttributes(
		attribute.String("jobwatch.query", term),
		attribute.String("jobwatch.run_id", core.RunIDFromContext(ctx)),
	))
	defer span.End()

	query := search.Query{
		Term:     term,
		Location: f.config.Location,
		Sites:    f.config.Sites,
		Num:      f.config.ResultsPerQuery,
	}
	results, err := f.provider.Search(ctx, query)
	if err != nil {
		err = fmt.Errorf("%w: query %q: %w", core.ErrProvider, term, err)
		outcome.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		logger.Error("search failed", "error", err)
		return nil, outcome
	}
	outcome.Fetched = len(results)

	fresh := make([]core.Posting, 0, len(results))
	inResponse := map[string]struct{}{}
	for _, result := range results {
		posting, ok := toPosting(result)
		if !ok {
			logger.Debug("skipping result without usable link", "title", result.Title)
			continue
		}
		if seen.Has(posting.Link) {
			continue
		}
		if _, dup := inResponse[posting.Link]; dup {
			continue
		}
		inResponse[posting.Link] = struct{}{}
		if _, dup := claimed[posting.Link]; dup {
			logger.Debug("posting already batched for an earlier query", "link", posting.Link)
			continue
		}
		if f.rule != nil {
			keep, err := f.rule.Keep(term, posting)
			if err != nil {
				logger.Warn("posting rule failed, keeping posting", "rule", f.rule.Name(), "link", posting.Link, "error", err)
			}
			if !keep {
				continue
			}
		}
		fresh = append(fresh, posting)
	}

	limit := f.config.PerQueryLimit
	if len(fresh) > limit {
		outcome.Dropped = len(fresh) - limit
		fresh = fresh[:limit]
	}
	outcome.New = len(fresh)
	span.SetAttributes(
		attribute.Int("jobwatch.fetched", outcome.Fetched),
		attribute.Int("jobwatch.new", outcome.New),
		attribute.Int("jobwatch.dropped", outcome.Dropped),
	)

	if len(fresh) == 0 {
		logger.Info("no new jobs found", "fetched", outcome.Fetched)
		return nil, outcome
	}
	for _, posting := range fresh {
		claimed[posting.Link] = struct{}{}
	}
	logger.Info("found new jobs", "fetched", outcome.Fetched, "new", outcome.New, "over_limit", outcome.Dropped)
	return &core.Batch{
		Query:    term,
		Postings: fresh,
		State:    core.BatchStatePending,
	}, outcome
}

// toPosting normalizes a raw result. Results whose link is empty or contains
// whitespace cannot serve as identifiers and are rejected.
func toPosting(result search.Result) (core.Posting, bool) {
	link := strings.TrimSpace(result.Link)
	if link == "" || strings.ContainsAny(link, " \t\r\n") {
		return core.Posting{}, false
	}
	title := strings.TrimSpace(result.Title)
	if title == "" {
		title = DefaultTitle
	}
	return core.Posting{Title: title, Link: link}, true
}
