package ports

import (
	"context"
	"time"

	contractsv1 "github.com/adrianocaiafa/onchain-polls/contracts/gen/events/v1"

	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
)

// Repository is the keyed view over the ledger store. GetAccount returns a
// zero-value ledger (not an error) for accounts the store has never seen.
type Repository interface {
	NextPollID(ctx context.Context) (uint64, error)
	GetPoll(ctx context.Context, pollID uint64) (entities.Poll, error)
	SavePoll(ctx context.Context, poll entities.Poll) error
	ListPolls(ctx context.Context) ([]entities.Poll, error)

	HasVoted(ctx context.Context, pollID uint64, voter string) (bool, error)
	SaveVoteRecord(ctx context.Context, record entities.VoteRecord) error

	GetAccount(ctx context.Context, account string) (entities.AccountLedger, error)
	SaveAccount(ctx context.Context, ledger entities.AccountLedger) error
	GetBuilder(ctx context.Context) (entities.BuilderLedger, error)
	SaveBuilder(ctx context.Context, ledger entities.BuilderLedger) error

	GetConfig(ctx context.Context) (entities.LedgerConfig, error)
	SaveConfig(ctx context.Context, cfg entities.LedgerConfig) error

	QuotaCount(ctx context.Context, account string, dayIndex int64) (int, error)
	IncrementQuota(ctx context.Context, account string, dayIndex int64) error
	IsAllowListed(ctx context.Context, account string) (bool, error)
	SetAllowListed(ctx context.Context, account string, allowed bool) error

	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// Store is a Repository with an atomic operation boundary. Every mutating
// command runs entirely inside one InTx call: either every write in the
// callback commits, or none does. Direct Repository calls on the Store are
// autocommit and reserved for reads and wiring.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(Repository) error) error
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// PayoutGateway performs the outgoing native-value transfer of a withdrawal.
// The transfer rail itself is an external collaborator; the ledger only
// requires that a failure is reported as an error.
type PayoutGateway interface {
	Transfer(ctx context.Context, account string, amount uint64) error
}
