package commands

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"
)

const sourceService = "poll-ledger"

// Event types appended to the outbox. Together with the store they form the
// complete audit trail of the ledger.
const (
	EventPollCreated       = "poll.created"
	EventPollEdited        = "poll.edited"
	EventPollClosed        = "poll.closed"
	EventPollSponsored     = "poll.sponsored"
	EventVoteCast          = "vote.cast"
	EventTierChanged       = "tier.changed"
	EventCreatorWithdrawal = "withdrawal.creator"
	EventBuilderWithdrawal = "withdrawal.builder"
	EventFeesUpdated       = "fees.updated"
	EventOperatorProposed  = "operator.proposed"
	EventOperatorAccepted  = "operator.accepted"
	EventPauseToggled      = "pause.toggled"
	EventDailyLimitUpdated = "daily_limit.updated"
	EventAllowListUpdated  = "allowlist.updated"
)

func newLedgerEnvelope(
	eventID string,
	eventType string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    sourceService,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "partition_key",
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}

// appendEvent writes one envelope to the outbox inside the caller's
// transaction, so the event commits or rolls back with the state change it
// describes.
func appendEvent(
	ctx context.Context,
	repo ports.Repository,
	idgen ports.IDGenerator,
	eventType string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) error {
	eventID, err := idgen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newLedgerEnvelope(eventID, eventType, partitionKey, occurredAt, data)
	if err != nil {
		return err
	}
	return repo.AppendOutbox(ctx, envelope)
}

func pollPartition(pollID uint64) string {
	return strconv.FormatUint(pollID, 10)
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
