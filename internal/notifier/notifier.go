// Package notifier delivers batches through a channel and records the
// postings of every delivered batch in the history store.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bakkerme/jobwatch/internal/channel"
	"github.com/bakkerme/jobwatch/internal/config"
	"github.com/bakkerme/jobwatch/internal/core"
	"github.com/bakkerme/jobwatch/internal/history"
)

var tracer = otel.Tracer("github.com/bakkerme/jobwatch/internal/notifier")

type Notifier struct {
	sender    channel.Sender
	store     history.Store
	delay     time.Duration
	maxLength int
	logger    *slog.Logger

	// wait blocks for d or until ctx is done.
	wait func(ctx context.Context, d time.Duration) error
}

func New(cfg config.DeliveryConfig, sender channel.Sender, store history.Store, logger *slog.Logger) (*Notifier, error) {
	if sender == nil {
		return nil, fmt.Errorf("channel sender is required")
	}
	if store == nil {
		return nil, fmt.Errorf("history store is required")
	}
	maxLength := cfg.MaxMessageLength
	if maxLength == 0 {
		maxLength = config.DefaultMaxMessageLength
	}
	return &Notifier{
		sender:    sender,
		store:     store,
		delay:     cfg.Delay(),
		maxLength: maxLength,
		logger:    logger,
		wait:      sleepContext,
	}, nil
}

// Notify delivers the batches in order, pausing between consecutive
// deliveries. A batch is recorded only after the channel accepted it; a
// failed batch is left unrecorded and is found again by the next run.
//
// Each batch ends in state recorded or failed. A delivered batch whose record
// could not be written is failed with core.ErrPersistence.
func (n *Notifier) Notify(ctx context.Context, batches []*core.Batch) []core.BatchOutcome {
	outcomes := make([]core.BatchOutcome, 0, len(batches))
	for i, batch := range batches {
		if i > 0 && n.delay > 0 {
			if err := n.wait(ctx, n.delay); err != nil {
				for _, rest := range batches[i:] {
					rest.State = core.BatchStateFailed
					rest.Err = fmt.Errorf("%w: not sent: %w", core.ErrDelivery, err)
					outcomes = append(outcomes, outcome(rest))
				}
				core.LoggerFromContext(ctx, n.logger).Warn("delivery interrupted", "remaining", len(batches)-i, "error", err)
				return outcomes
			}
		}
		n.deliver(ctx, batch)
		outcomes = append(outcomes, outcome(batch))
	}
	return outcomes
}

func (n *Notifier) deliver(ctx context.Context, batch *core.Batch) {
	logger := core.LoggerFromContext(ctx, n.logger).With("query", batch.Query, "channel", n.sender.Name())

	ctx, span := tracer.Start(ctx, "jobwatch.deliver", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	text, kept := fit(batch.Query, batch.Postings, n.maxLength)
	if len(kept) < len(batch.Postings) {
		logger.Warn("message too long, dropping postings", "kept", len(kept), "dropped", len(batch.Postings)-len(kept))
	}
	batch.Postings = kept
	batch.Message = text
	span.SetAttributes(
		attribute.String("jobwatch.query", batch.Query),
		attribute.String("jobwatch.run_id", core.RunIDFromContext(ctx)),
		attribute.String("jobwatch.channel", n.sender.Name()),
		attribute.Int("jobwatch.postings", len(kept)),
	)
	if len(kept) == 0 {
		batch.State = core.BatchStateFailed
		batch.Err = fmt.Errorf("%w: no posting fits within %d characters", core.ErrDelivery, n.maxLength)
		span.RecordError(batch.Err)
		span.SetStatus(codes.Error, "message too long")
		logger.Warn("batch not sent", "error", batch.Err)
		return
	}

	if err := n.sender.Send(ctx, text); err != nil {
		batch.State = core.BatchStateFailed
		batch.Err = fmt.Errorf("%w: %s: %w", core.ErrDelivery, n.sender.Name(), err)
		span.RecordError(batch.Err)
		span.SetStatus(codes.Error, "send failed")
		logger.Error("failed to send batch", "error", batch.Err)
		return
	}
	batch.State = core.BatchStateDelivered

	// The message is out; a shutdown must not stop it from being recorded.
	if err := n.store.Append(context.WithoutCancel(ctx), batch.Links()); err != nil {
		batch.State = core.BatchStateFailed
		batch.Err = fmt.Errorf("%w: record delivered batch: %w", core.ErrPersistence, err)
		span.RecordError(batch.Err)
		span.SetStatus(codes.Error, "record failed")
		logger.Error("batch sent but not recorded, it will be sent again", "error", batch.Err)
		return
	}
	batch.State = core.BatchStateRecorded
	logger.Info("sent new jobs", "postings", len(kept))
}

func outcome(batch *core.Batch) core.BatchOutcome {
	out := core.BatchOutcome{
		Query:    batch.Query,
		Postings: len(batch.Postings),
		State:    batch.State,
	}
	if batch.Err != nil {
		out.Error = batch.Err.Error()
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
