package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bakkerme/jobwatch/internal/core"
	"github.com/bakkerme/jobwatch/internal/fetcher"
	"github.com/bakkerme/jobwatch/internal/history"
	"github.com/bakkerme/jobwatch/internal/notifier"
	"github.com/bakkerme/jobwatch/internal/runner/report"
)

var tracer = otel.Tracer("github.com/bakkerme/jobwatch/internal/runner")

// Trigger produces events that start a run.
type Trigger interface {
	Name() string
	Start(ctx context.Context) (<-chan core.TriggerEvent, error)
}

type Runner struct {
	store      history.Store
	fetcher    *fetcher.Fetcher
	notifier   *notifier.Notifier
	reportPath string
	logger     *slog.Logger
}

type Options struct {
	Store    history.Store
	Fetcher  *fetcher.Fetcher
	Notifier *notifier.Notifier
	// ReportPath, when set, is overwritten with a JSON report after every run.
	ReportPath string
}

func New(opts Options, logger *slog.Logger) (*Runner, error) {
	if opts.Store == nil || opts.Fetcher == nil || opts.Notifier == nil {
		return nil, fmt.Errorf("store, fetcher and notifier are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:      opts.Store,
		fetcher:    opts.Fetcher,
		notifier:   opts.Notifier,
		reportPath: opts.ReportPath,
		logger:     logger,
	}, nil
}

// Start runs the pipeline once per trigger event. Events are handled one at a
// time by a single goroutine, so runs never overlap within the process. The
// returned channel is closed once the trigger is exhausted or ctx is done and
// any run in progress has returned.
func (r *Runner) Start(ctx context.Context, trigger Trigger) (<-chan struct{}, error) {
	if trigger == nil {
		return nil, fmt.Errorf("trigger is required")
	}
	events, err := trigger.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("start %s trigger: %w", trigger.Name(), err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.listen(ctx, events)
	}()
	return done, nil
}

// RunOnce performs a single run: load the history snapshot, fetch new
// postings for every term and deliver them. Per-term and per-batch failures
// are reported in the returned Run, which is then partial. An error is only
// returned when ctx ended the run early.
func (r *Runner) RunOnce(ctx context.Context) (*core.Run, error) {
	return r.run(ctx, "manual")
}

func (r *Runner) run(ctx context.Context, triggerType string) (*core.Run, error) {
	run := &core.Run{
		ID:          fmt.Sprintf("run-%d", time.Now().UnixNano()),
		StartedAt:   time.Now().UTC(),
		Status:      core.RunStatusRunning,
		TriggerType: triggerType,
	}
	logger := r.logger.With("run_id", run.ID)
	ctx = core.WithRunID(ctx, run.ID)
	ctx = core.WithLogger(ctx, logger)

	ctx, span := tracer.Start(ctx, "jobwatch.run", trace.WithAttributes(
		attribute.String("jobwatch.run_id", run.ID),
		attribute.String("jobwatch.trigger", triggerType),
	))
	defer span.End()

	seen, err := r.store.Load(ctx)
	if err != nil {
		logger.Warn("could not read history, treating every posting as new", "error", err)
		seen = history.Set{}
	}
	run.HistorySize = len(seen)
	logger.Info("loaded previously sent jobs", "count", len(seen))

	batches, queries := r.fetcher.Fetch(ctx, seen)
	run.Queries = queries
	if len(batches) == 0 {
		logger.Info("no new job updates to send")
	} else {
		run.Batches = r.notifier.Notify(ctx, batches)
	}

	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt
	run.Status = core.RunStatusCompleted
	if run.Failed() > 0 {
		run.Status = core.RunStatusPartial
	}
	ctxErr := ctx.Err()
	if ctxErr != nil {
		run.Status = core.RunStatusFailed
	}

	span.SetAttributes(
		attribute.String("jobwatch.status", string(run.Status)),
		attribute.Int("jobwatch.delivered", run.Delivered()),
		attribute.Int("jobwatch.failed", run.Failed()),
	)
	if run.Status != core.RunStatusCompleted {
		span.SetStatus(codes.Error, string(run.Status))
	}
	logger.Info("run finished",
		"status", run.Status,
		"queries", len(run.Queries),
		"batches", len(run.Batches),
		"delivered", run.Delivered(),
		"failed", run.Failed(),
		"duration", completedAt.Sub(run.StartedAt).String(),
	)

	if r.reportPath != "" {
		if err := report.Save(r.reportPath, run); err != nil {
			logger.Warn("failed to write run report", "path", r.reportPath, "error", err)
		}
	}

	if ctxErr != nil {
		return run, fmt.Errorf("run %s interrupted: %w", run.ID, ctxErr)
	}
	return run, nil
}

func (r *Runner) listen(ctx context.Context, events <-chan core.TriggerEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.logger.Info("trigger event", "source", event.Source, "time", event.Timestamp)
			if _, err := r.run(ctx, event.Source); err != nil {
				r.logger.Error("run failed", "error", err)
			}
		}
	}
}
