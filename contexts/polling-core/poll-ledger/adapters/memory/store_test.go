package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/adapters/memory"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
	domainerrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"
)

func TestInTxCommitsOnSuccess(t *testing.T) {
	store := memory.NewStore("operator")
	ctx := context.Background()

	err := store.InTx(ctx, func(repo ports.Repository) error {
		id, err := repo.NextPollID(ctx)
		if err != nil {
			return err
		}
		if err := repo.SavePoll(ctx, entities.Poll{PollID: id, Question: "Committed?", Options: []string{"yes", "no"}, VoteCounts: []uint64{0, 0}, Open: true}); err != nil {
			return err
		}
		return repo.AppendOutbox(ctx, ports.EventEnvelope{EventType: "poll.created", OccurredAt: time.Now().UTC()})
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	poll, err := store.GetPoll(ctx, 1)
	if err != nil {
		t.Fatalf("get poll after commit: %v", err)
	}
	if poll.Question != "Committed?" {
		t.Fatalf("poll question = %q", poll.Question)
	}
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending outbox = %d, want 1", len(pending))
	}
}

func TestInTxRollsBackAllWritesOnError(t *testing.T) {
	store := memory.NewStore("operator")
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.InTx(ctx, func(repo ports.Repository) error {
		id, err := repo.NextPollID(ctx)
		if err != nil {
			return err
		}
		if err := repo.SavePoll(ctx, entities.Poll{PollID: id, Question: "Lost?", Options: []string{"yes", "no"}, VoteCounts: []uint64{0, 0}, Open: true}); err != nil {
			return err
		}
		if err := repo.IncrementQuota(ctx, "alice", 20000); err != nil {
			return err
		}
		if err := repo.AppendOutbox(ctx, ports.EventEnvelope{EventType: "poll.created", OccurredAt: time.Now().UTC()}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the transaction error back", err)
	}

	if _, err := store.GetPoll(ctx, 1); !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("poll survived rollback: %v", err)
	}
	count, err := store.QuotaCount(ctx, "alice", 20000)
	if err != nil {
		t.Fatalf("quota count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("quota count = %d, want 0", count)
	}
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending outbox = %d, want 0", len(pending))
	}

	// The sequence must not burn ids on a rolled back transaction.
	var next uint64
	if err := store.InTx(ctx, func(repo ports.Repository) error {
		var err error
		next, err = repo.NextPollID(ctx)
		return err
	}); err != nil {
		t.Fatalf("second transaction failed: %v", err)
	}
	if next != 1 {
		t.Fatalf("next poll id = %d, want 1", next)
	}
}

func TestTransactionViewIsIsolatedFromReaders(t *testing.T) {
	store := memory.NewStore("operator")
	ctx := context.Background()

	seed := entities.Poll{PollID: 7, Question: "Original", Options: []string{"a", "b"}, VoteCounts: []uint64{0, 0}, Open: true}
	if err := store.SavePoll(ctx, seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	read, err := store.GetPoll(ctx, 7)
	if err != nil {
		t.Fatalf("get poll failed: %v", err)
	}
	read.Question = "mutated copy"
	read.Options[0] = "zzz"

	again, err := store.GetPoll(ctx, 7)
	if err != nil {
		t.Fatalf("get poll failed: %v", err)
	}
	if again.Question != "Original" || again.Options[0] != "a" {
		t.Fatalf("stored poll leaked caller mutation: %+v", again)
	}
}

func TestMarkOutboxPublishedRemovesFromPending(t *testing.T) {
	store := memory.NewStore("operator")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.AppendOutbox(ctx, ports.EventEnvelope{EventType: "vote.cast", OccurredAt: time.Now().UTC()}); err != nil {
			t.Fatalf("append outbox failed: %v", err)
		}
	}
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("pending = %d, want 3", len(pending))
	}

	if err := store.MarkOutboxPublished(ctx, pending[0].OutboxID, time.Now().UTC()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	remaining, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("pending after mark = %d, want 2", len(remaining))
	}
	for _, row := range remaining {
		if row.OutboxID == pending[0].OutboxID {
			t.Fatalf("published row still pending")
		}
	}
}
