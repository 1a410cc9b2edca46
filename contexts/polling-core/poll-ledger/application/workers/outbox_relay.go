package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"
)

// OutboxRelay drains committed ledger events from the outbox onto the bus.
// Each row is marked published only after its broker publish succeeds, so a
// crash between the two steps re-delivers rather than drops.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce relays at most one batch of pending rows. It stops at the first
// failure and leaves the remaining rows pending for the next cycle.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.LayerLogger(r.Logger, "worker")
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("listing pending outbox rows failed",
			"event", "ledger_outbox_list_failed",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	publishedAt := time.Now().UTC()
	if r.Clock != nil {
		publishedAt = r.Clock.Now().UTC()
	}
	for _, row := range pending {
		if err := r.relayRow(ctx, logger, row, publishedAt); err != nil {
			return err
		}
	}

	logger.Info("ledger outbox batch relayed",
		"event", "ledger_outbox_relayed",
		"count", len(pending),
	)
	return nil
}

func (r OutboxRelay) relayRow(ctx context.Context, logger *slog.Logger, row ports.OutboxMessage, publishedAt time.Time) error {
	var event ports.EventEnvelope
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		logger.Error("outbox payload is not a valid envelope",
			"event", "ledger_outbox_decode_failed",
			"outbox_id", row.OutboxID,
			"error", err.Error(),
		)
		return err
	}

	topic := event.EventType
	if topic == "" {
		topic = row.EventType
	}
	if err := r.Publisher.Publish(ctx, topic, event); err != nil {
		logger.Error("publishing ledger event failed",
			"event", "ledger_outbox_publish_failed",
			"outbox_id", row.OutboxID,
			"event_type", topic,
			"error", err.Error(),
		)
		return err
	}

	if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, publishedAt); err != nil {
		logger.Error("marking outbox row published failed",
			"event", "ledger_outbox_mark_failed",
			"outbox_id", row.OutboxID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}
