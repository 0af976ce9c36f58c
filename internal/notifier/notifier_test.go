package notifier

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	channelmock "github.com/bakkerme/jobwatch/internal/channel/mock"
	"github.com/bakkerme/jobwatch/internal/config"
	"github.com/bakkerme/jobwatch/internal/core"
	"github.com/bakkerme/jobwatch/internal/history"
	historymock "github.com/bakkerme/jobwatch/internal/history/mock"
)

func batch(query string, links ...string) *core.Batch {
	postings := make([]core.Posting, 0, len(links))
	for _, link := range links {
		postings = append(postings, core.Posting{Title: "Job " + link, Link: link})
	}
	return &core.Batch{Query: query, Postings: postings, State: core.BatchStatePending}
}

func newFileStore(t *testing.T) *history.FileStore {
	t.Helper()
	store, err := history.NewFileStore(filepath.Join(t.TempDir(), "sent_jobs.log"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return store
}

func newNotifier(t *testing.T, sender *channelmock.Sender, store history.Store) (*Notifier, *[]time.Duration) {
	t.Helper()
	n, err := New(config.DeliveryConfig{}, sender, store, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	var waits []time.Duration
	n.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return n, &waits
}

func TestNotifyRecordsDeliveredBatches(t *testing.T) {
	sender := &channelmock.Sender{}
	store := newFileStore(t)
	n, waits := newNotifier(t, sender, store)

	batches := []*core.Batch{batch("A", "L1", "L2"), batch("B", "L3")}
	outcomes := n.Notify(context.Background(), batches)

	if len(sender.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sender.Messages))
	}
	for i, o := range outcomes {
		if o.State != core.BatchStateRecorded || o.Error != "" {
			t.Fatalf("batch %d: unexpected outcome %+v", i, o)
		}
	}
	seen, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for _, link := range []string{"L1", "L2", "L3"} {
		if !seen.Has(link) {
			t.Fatalf("expected %s to be recorded", link)
		}
	}
	if len(*waits) != 1 || (*waits)[0] != config.DefaultInterMessageDelay {
		t.Fatalf("expected one default pause between two deliveries, got %v", *waits)
	}
	if !strings.HasPrefix(batches[0].Message, "✨ *2 New Jobs for 'A'*:") {
		t.Fatalf("unexpected message %q", batches[0].Message)
	}
}

func TestNotifyDeliveryFailureLeavesHistoryUnchanged(t *testing.T) {
	sender := &channelmock.Sender{ErrFor: func(text string) error {
		if strings.Contains(text, "'A'") {
			return errors.New("chat not found")
		}
		return nil
	}}
	store := &historymock.Store{}
	n, _ := newNotifier(t, sender, store)

	batches := []*core.Batch{batch("A", "L1"), batch("B", "L2")}
	outcomes := n.Notify(context.Background(), batches)

	if outcomes[0].State != core.BatchStateFailed || !errors.Is(batches[0].Err, core.ErrDelivery) {
		t.Fatalf("expected delivery failure for A, got %+v", outcomes[0])
	}
	if outcomes[1].State != core.BatchStateRecorded {
		t.Fatalf("expected B to continue and be recorded, got %+v", outcomes[1])
	}
	if len(store.Appends) != 1 || store.Appends[0][0] != "L2" {
		t.Fatalf("expected only L2 to be recorded, got %v", store.Appends)
	}
}

func TestNotifyAppendFailureMarksBatchFailed(t *testing.T) {
	sender := &channelmock.Sender{}
	store := &historymock.Store{AppendErr: errors.New("disk full")}
	n, _ := newNotifier(t, sender, store)

	batches := []*core.Batch{batch("A", "L1")}
	outcomes := n.Notify(context.Background(), batches)

	if len(sender.Messages) != 1 {
		t.Fatalf("expected the message to be sent")
	}
	if outcomes[0].State != core.BatchStateFailed || !errors.Is(batches[0].Err, core.ErrPersistence) {
		t.Fatalf("expected persistence failure, got %+v err=%v", outcomes[0], batches[0].Err)
	}
}

func TestNotifyRecordsAfterCancellationDuringSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sender := &channelmock.Sender{ErrFor: func(string) error {
		cancel()
		return nil
	}}
	store := newFileStore(t)
	n, _ := newNotifier(t, sender, store)

	outcomes := n.Notify(ctx, []*core.Batch{batch("A", "L1")})
	if outcomes[0].State != core.BatchStateRecorded {
		t.Fatalf("expected delivered batch to be recorded despite cancellation, got %+v", outcomes[0])
	}
	seen, err := store.Load(context.Background())
	if err != nil || !seen.Has("L1") {
		t.Fatalf("expected L1 recorded, err=%v", err)
	}
}

func TestNotifyCancelledPauseFailsRemainingBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sender := &channelmock.Sender{}
	store := &historymock.Store{}
	n, _ := newNotifier(t, sender, store)
	n.wait = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	batches := []*core.Batch{batch("A", "L1"), batch("B", "L2"), batch("C", "L3")}
	outcomes := n.Notify(ctx, batches)

	if len(outcomes) != 3 {
		t.Fatalf("expected an outcome per batch, got %d", len(outcomes))
	}
	if outcomes[0].State != core.BatchStateRecorded {
		t.Fatalf("expected A recorded, got %+v", outcomes[0])
	}
	for _, o := range outcomes[1:] {
		if o.State != core.BatchStateFailed {
			t.Fatalf("expected remaining batches failed, got %+v", o)
		}
	}
	if len(sender.Messages) != 1 || len(store.Appends) != 1 {
		t.Fatalf("expected only the first batch sent and recorded")
	}
}

func TestNotifyTruncatesLongMessagesAndRecordsOnlyKept(t *testing.T) {
	sender := &channelmock.Sender{}
	store := &historymock.Store{}
	n, err := New(config.DeliveryConfig{MaxMessageLength: 90}, sender, store, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	n.wait = func(context.Context, time.Duration) error { return nil }

	b := batch("q", "https://example.com/1", "https://example.com/2", "https://example.com/3")
	outcomes := n.Notify(context.Background(), []*core.Batch{b})

	if outcomes[0].State != core.BatchStateRecorded {
		t.Fatalf("unexpected outcome %+v", outcomes[0])
	}
	if outcomes[0].Postings >= 3 || len(store.Appends[0]) != outcomes[0].Postings {
		t.Fatalf("expected recorded links to match the truncated message, got %+v / %v", outcomes[0], store.Appends)
	}
	if len([]rune(sender.Messages[0])) > 90 {
		t.Fatalf("message exceeds limit: %d", len([]rune(sender.Messages[0])))
	}
}

func TestNotifyDoesNotSendBatchThatCannotFit(t *testing.T) {
	sender := &channelmock.Sender{}
	store := &historymock.Store{}
	n, err := New(config.DeliveryConfig{MaxMessageLength: 100}, sender, store, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	n.wait = func(context.Context, time.Duration) error { return nil }

	b := &core.Batch{
		Query:    "q",
		Postings: []core.Posting{{Title: "Engineer", Link: "https://example.com/" + strings.Repeat("a", 200)}},
		State:    core.BatchStatePending,
	}
	outcomes := n.Notify(context.Background(), []*core.Batch{b})

	if outcomes[0].State != core.BatchStateFailed || !errors.Is(b.Err, core.ErrDelivery) {
		t.Fatalf("expected failed delivery, got %+v", outcomes[0])
	}
	if len(sender.Messages) != 0 {
		t.Fatalf("expected nothing sent, got %q", sender.Messages)
	}
	if len(store.Appends) != 0 {
		t.Fatalf("expected nothing recorded, got %v", store.Appends)
	}
}

func TestNotifyNoBatches(t *testing.T) {
	sender := &channelmock.Sender{}
	n, waits := newNotifier(t, sender, &historymock.Store{})
	if outcomes := n.Notify(context.Background(), nil); len(outcomes) != 0 {
		t.Fatalf("expected no outcomes")
	}
	if len(sender.Messages) != 0 || len(*waits) != 0 {
		t.Fatalf("expected nothing sent")
	}
}

func TestSleepContextReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
