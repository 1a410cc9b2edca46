package postgresadapter

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
)

// singletonRowID keys the builder ledger, the config row and the poll id
// sequence, which each have exactly one row.
const singletonRowID = 1

type pollModel struct {
	ID              uint64     `gorm:"column:id;primaryKey"`
	Creator         string     `gorm:"column:creator;index"`
	Question        string     `gorm:"column:question"`
	Options         []byte     `gorm:"column:options;type:jsonb"`
	VoteCounts      []byte     `gorm:"column:vote_counts;type:jsonb"`
	TotalVotes      uint64     `gorm:"column:total_votes"`
	Open            bool       `gorm:"column:open"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	ClosedAt        *time.Time `gorm:"column:closed_at"`
	EndTime         *time.Time `gorm:"column:end_time"`
	FeePerVote      uint64     `gorm:"column:fee_per_vote"`
	BuilderShareBps uint64     `gorm:"column:builder_share_bps"`
	TotalVoteFees   uint64     `gorm:"column:total_vote_fees"`
	BuilderFees     uint64     `gorm:"column:builder_fees"`
	CreatorFees     uint64     `gorm:"column:creator_fees"`
	Sponsor         string     `gorm:"column:sponsor"`
	SponsorFee      uint64     `gorm:"column:sponsor_fee"`
	ContentHash     string     `gorm:"column:content_hash"`
}

func (pollModel) TableName() string {
	return "poll_rows"
}

func pollModelFromEntity(poll entities.Poll) (pollModel, error) {
	options, err := json.Marshal(poll.Options)
	if err != nil {
		return pollModel{}, err
	}
	counts, err := json.Marshal(poll.VoteCounts)
	if err != nil {
		return pollModel{}, err
	}
	row := pollModel{
		ID:              poll.PollID,
		Creator:         strings.TrimSpace(poll.Creator),
		Question:        poll.Question,
		Options:         options,
		VoteCounts:      counts,
		TotalVotes:      poll.TotalVotes,
		Open:            poll.Open,
		CreatedAt:       poll.CreatedAt.UTC(),
		FeePerVote:      poll.FeePerVote,
		BuilderShareBps: poll.BuilderShareBps,
		TotalVoteFees:   poll.TotalVoteFees,
		BuilderFees:     poll.BuilderFees,
		CreatorFees:     poll.CreatorFees,
		Sponsor:         strings.TrimSpace(poll.Sponsor),
		SponsorFee:      poll.SponsorFee,
		ContentHash:     poll.ContentHash,
	}
	if !poll.ClosedAt.IsZero() {
		closedAt := poll.ClosedAt.UTC()
		row.ClosedAt = &closedAt
	}
	if !poll.EndTime.IsZero() {
		endTime := poll.EndTime.UTC()
		row.EndTime = &endTime
	}
	return row, nil
}

func (m pollModel) toEntity() (entities.Poll, error) {
	var options []string
	if err := json.Unmarshal(m.Options, &options); err != nil {
		return entities.Poll{}, err
	}
	var counts []uint64
	if err := json.Unmarshal(m.VoteCounts, &counts); err != nil {
		return entities.Poll{}, err
	}
	poll := entities.Poll{
		PollID:          m.ID,
		Creator:         m.Creator,
		Question:        m.Question,
		Options:         options,
		VoteCounts:      counts,
		TotalVotes:      m.TotalVotes,
		Open:            m.Open,
		CreatedAt:       m.CreatedAt.UTC(),
		FeePerVote:      m.FeePerVote,
		BuilderShareBps: m.BuilderShareBps,
		TotalVoteFees:   m.TotalVoteFees,
		BuilderFees:     m.BuilderFees,
		CreatorFees:     m.CreatorFees,
		Sponsor:         m.Sponsor,
		SponsorFee:      m.SponsorFee,
		ContentHash:     m.ContentHash,
	}
	if m.ClosedAt != nil {
		poll.ClosedAt = m.ClosedAt.UTC()
	}
	if m.EndTime != nil {
		poll.EndTime = m.EndTime.UTC()
	}
	return poll, nil
}

type voteRecordModel struct {
	PollID      uint64    `gorm:"column:poll_id;primaryKey"`
	Voter       string    `gorm:"column:voter;primaryKey"`
	OptionIndex int       `gorm:"column:option_index"`
	CastAt      time.Time `gorm:"column:cast_at"`
}

func (voteRecordModel) TableName() string {
	return "vote_records"
}

type accountModel struct {
	Account            string `gorm:"column:account;primaryKey"`
	Withdrawable       uint64 `gorm:"column:withdrawable"`
	TotalVotesReceived uint64 `gorm:"column:total_votes_received"`
	Tier               int    `gorm:"column:tier"`
	PollIDs            []byte `gorm:"column:poll_ids;type:jsonb"`
}

func (accountModel) TableName() string {
	return "account_ledgers"
}

func accountModelFromEntity(ledger entities.AccountLedger) (accountModel, error) {
	pollIDs, err := json.Marshal(ledger.PollIDs)
	if err != nil {
		return accountModel{}, err
	}
	return accountModel{
		Account:            strings.TrimSpace(ledger.Account),
		Withdrawable:       ledger.Withdrawable,
		TotalVotesReceived: ledger.TotalVotesReceived,
		Tier:               int(ledger.Tier),
		PollIDs:            pollIDs,
	}, nil
}

func (m accountModel) toEntity() (entities.AccountLedger, error) {
	var pollIDs []uint64
	if len(m.PollIDs) > 0 {
		if err := json.Unmarshal(m.PollIDs, &pollIDs); err != nil {
			return entities.AccountLedger{}, err
		}
	}
	return entities.AccountLedger{
		Account:            m.Account,
		Withdrawable:       m.Withdrawable,
		TotalVotesReceived: m.TotalVotesReceived,
		Tier:               entities.Tier(m.Tier),
		PollIDs:            pollIDs,
	}, nil
}

type builderModel struct {
	ID           int    `gorm:"column:id;primaryKey"`
	Withdrawable uint64 `gorm:"column:withdrawable"`
	CreateFees   uint64 `gorm:"column:create_fees"`
	SponsorFees  uint64 `gorm:"column:sponsor_fees"`
	VoteFeeCuts  uint64 `gorm:"column:vote_fee_cuts"`
}

func (builderModel) TableName() string {
	return "builder_ledger"
}

type configModel struct {
	ID              int    `gorm:"column:id;primaryKey"`
	CreateFee       uint64 `gorm:"column:create_fee"`
	BuilderShareBps uint64 `gorm:"column:builder_share_bps"`
	DailyLimit      int    `gorm:"column:daily_limit"`
	Paused          bool   `gorm:"column:paused"`
	Operator        string `gorm:"column:operator"`
	PendingOperator string `gorm:"column:pending_operator"`
}

func (configModel) TableName() string {
	return "ledger_config"
}

type quotaModel struct {
	Account  string `gorm:"column:account;primaryKey"`
	DayIndex int64  `gorm:"column:day_index;primaryKey"`
	Count    int    `gorm:"column:count"`
}

func (quotaModel) TableName() string {
	return "quota_counters"
}

type allowlistModel struct {
	Account string `gorm:"column:account;primaryKey"`
	Allowed bool   `gorm:"column:allowed"`
}

func (allowlistModel) TableName() string {
	return "allowlist_entries"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "poll_outbox"
}

type sequenceModel struct {
	ID         int    `gorm:"column:id;primaryKey"`
	NextPollID uint64 `gorm:"column:next_poll_id"`
}

func (sequenceModel) TableName() string {
	return "poll_sequence"
}
