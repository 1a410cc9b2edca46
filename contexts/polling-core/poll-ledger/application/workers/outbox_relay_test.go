package workers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/adapters/memory"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application/workers"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"
)

type stubPublisher struct {
	published []string
	failAfter int
	err       error
}

func (p *stubPublisher) Publish(_ context.Context, topic string, _ ports.EventEnvelope) error {
	if p.err != nil && len(p.published) >= p.failAfter {
		return p.err
	}
	p.published = append(p.published, topic)
	return nil
}

func seedOutbox(t *testing.T, store *memory.Store, eventTypes ...string) {
	t.Helper()
	ctx := context.Background()
	for _, eventType := range eventTypes {
		err := store.AppendOutbox(ctx, ports.EventEnvelope{
			EventType:  eventType,
			OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("append outbox failed: %v", err)
		}
	}
}

func TestRunOncePublishesAndMarksBatch(t *testing.T) {
	store := memory.NewStore("operator")
	seedOutbox(t, store, "poll.created", "vote.cast", "poll.closed")
	publisher := &stubPublisher{}

	relay := workers.OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once failed: %v", err)
	}

	want := []string{"poll.created", "vote.cast", "poll.closed"}
	if len(publisher.published) != len(want) {
		t.Fatalf("published %d events, want %d", len(publisher.published), len(want))
	}
	for i, topic := range want {
		if publisher.published[i] != topic {
			t.Fatalf("published[%d] = %q, want %q", i, publisher.published[i], topic)
		}
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after relay = %d, want 0", len(pending))
	}
}

func TestRunOnceStopsOnPublishFailureAndKeepsRowsPending(t *testing.T) {
	store := memory.NewStore("operator")
	seedOutbox(t, store, "poll.created", "vote.cast", "poll.closed")
	publisher := &stubPublisher{failAfter: 1, err: errors.New("broker down")}

	relay := workers.OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure to surface")
	}

	if len(publisher.published) != 1 {
		t.Fatalf("published %d events before failure, want 1", len(publisher.published))
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending after failure = %d, want 2 unpublished rows", len(pending))
	}

	// A later cycle picks the remaining rows back up.
	publisher.err = nil
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry cycle failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after retry = %d, want 0", len(pending))
	}
}

func TestRunOnceRespectsBatchSize(t *testing.T) {
	store := memory.NewStore("operator")
	seedOutbox(t, store, "vote.cast", "vote.cast", "vote.cast", "vote.cast")
	publisher := &stubPublisher{}

	relay := workers.OutboxRelay{Outbox: store, Publisher: publisher, Clock: store, BatchSize: 3}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	if len(publisher.published) != 3 {
		t.Fatalf("published %d events, want batch of 3", len(publisher.published))
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending after bounded cycle = %d, want 1", len(pending))
	}
}
