package pollledger_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pollledger "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/adapters/memory"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application/commands"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
)

const testOperator = "operator"

func newLedger(t *testing.T) (pollledger.Module, *memory.Store, time.Time) {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	module := pollledger.NewInMemoryModule(testOperator, nil)
	module.Store.SetNow(base)
	return module, module.Store, base
}

func mustCreatePoll(
	t *testing.T,
	module pollledger.Module,
	creator string,
	feePerVote uint64,
	duration time.Duration,
) entities.Poll {
	t.Helper()
	poll, err := module.Handler.Polls.CreatePoll(context.Background(), commands.CreatePollCommand{
		Creator:    creator,
		Question:   "Which option wins?",
		Options:    []string{"alpha", "beta"},
		FeePerVote: feePerVote,
		Duration:   duration,
	})
	if err != nil {
		t.Fatalf("create poll for %s failed: %v", creator, err)
	}
	return poll
}

func mustCastVote(
	t *testing.T,
	module pollledger.Module,
	pollID uint64,
	voter string,
	optionIndex int,
	payment uint64,
) commands.CastVoteResult {
	t.Helper()
	result, err := module.Handler.Votes.CastVote(context.Background(), commands.CastVoteCommand{
		PollID:      pollID,
		Voter:       voter,
		OptionIndex: optionIndex,
		Payment:     payment,
	})
	if err != nil {
		t.Fatalf("cast vote by %s on poll %d failed: %v", voter, pollID, err)
	}
	return result
}

// eventsOfType decodes the payload of every outbox event with the given type,
// in append order.
func eventsOfType(t *testing.T, store *memory.Store, eventType string) []map[string]any {
	t.Helper()
	var decoded []map[string]any
	for _, event := range store.OutboxEvents() {
		if event.EventType != eventType {
			continue
		}
		var data map[string]any
		if err := json.Unmarshal(event.Data, &data); err != nil {
			t.Fatalf("decode %s payload failed: %v", eventType, err)
		}
		decoded = append(decoded, data)
	}
	return decoded
}
