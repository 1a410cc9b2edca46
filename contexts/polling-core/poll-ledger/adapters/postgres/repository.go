package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
	domainerrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates the ledger tables. There is no migration path beyond
// creation; the schema is fixed per deploy.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&pollModel{},
		&voteRecordModel{},
		&accountModel{},
		&builderModel{},
		&configModel{},
		&quotaModel{},
		&allowlistModel{},
		&outboxModel{},
		&sequenceModel{},
	)
}

// EnsureConfig seeds the singleton config, builder and sequence rows when
// they do not exist yet. Existing rows are left untouched so a restart never
// resets operator-managed settings.
func (r *Repository) EnsureConfig(ctx context.Context, cfg entities.LedgerConfig) error {
	configRow := configModel{
		ID:              singletonRowID,
		CreateFee:       cfg.CreateFee,
		BuilderShareBps: cfg.BuilderShareBps,
		DailyLimit:      cfg.DailyLimit,
		Paused:          cfg.Paused,
		Operator:        strings.TrimSpace(cfg.Operator),
		PendingOperator: strings.TrimSpace(cfg.PendingOperator),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&configRow).Error; err != nil {
		return r.logError("ledger_repo_ensure_config_failed", err)
	}
	builderRow := builderModel{ID: singletonRowID}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&builderRow).Error; err != nil {
		return r.logError("ledger_repo_ensure_builder_failed", err)
	}
	sequenceRow := sequenceModel{ID: singletonRowID}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&sequenceRow).Error; err != nil {
		return r.logError("ledger_repo_ensure_sequence_failed", err)
	}
	return nil
}

// InTx runs fn against a repository bound to one database transaction. gorm
// rolls back on error, commits otherwise.
func (r *Repository) InTx(ctx context.Context, fn func(ports.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, logger: r.logger})
	})
}

// NextPollID locks the sequence row and claims the next id. Callers invoke
// it inside InTx so concurrent claims serialize on the row lock.
func (r *Repository) NextPollID(ctx context.Context) (uint64, error) {
	var row sequenceModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", singletonRowID).
		First(&row).Error; err != nil {
		return 0, r.logError("ledger_repo_next_poll_id_failed", err)
	}
	row.NextPollID++
	if err := r.db.WithContext(ctx).
		Model(&sequenceModel{}).
		Where("id = ?", singletonRowID).
		Update("next_poll_id", row.NextPollID).Error; err != nil {
		return 0, r.logError("ledger_repo_next_poll_id_update_failed", err)
	}
	return row.NextPollID, nil
}

func (r *Repository) GetPoll(ctx context.Context, pollID uint64) (entities.Poll, error) {
	var row pollModel
	err := r.db.WithContext(ctx).
		Where("id = ?", pollID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, domainerrors.ErrPollNotFound
		}
		return entities.Poll{}, r.logError("ledger_repo_get_poll_failed", err, "poll_id", pollID)
	}
	return row.toEntity()
}

func (r *Repository) SavePoll(ctx context.Context, poll entities.Poll) error {
	row, err := pollModelFromEntity(poll)
	if err != nil {
		return r.logError("ledger_repo_encode_poll_failed", err, "poll_id", poll.PollID)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"question":    row.Question,
			"options":     row.Options,
			"vote_counts": row.VoteCounts,
			"total_votes": row.TotalVotes,
			"open":        row.Open,
			"closed_at":   row.ClosedAt,
			"end_time":    row.EndTime,

			"total_vote_fees": row.TotalVoteFees,
			"builder_fees":    row.BuilderFees,
			"creator_fees":    row.CreatorFees,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ledger_repo_save_poll_failed", create.Error, "poll_id", poll.PollID)
	}
	return nil
}

func (r *Repository) ListPolls(ctx context.Context) ([]entities.Poll, error) {
	var rows []pollModel
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_polls_failed", err)
	}
	polls := make([]entities.Poll, 0, len(rows))
	for _, row := range rows {
		poll, err := row.toEntity()
		if err != nil {
			return nil, r.logError("ledger_repo_decode_poll_failed", err, "poll_id", row.ID)
		}
		polls = append(polls, poll)
	}
	return polls, nil
}

func (r *Repository) HasVoted(ctx context.Context, pollID uint64, voter string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&voteRecordModel{}).
		Where("poll_id = ?", pollID).
		Where("voter = ?", strings.TrimSpace(voter)).
		Count(&count).
		Error
	if err != nil {
		return false, r.logError("ledger_repo_has_voted_failed", err, "poll_id", pollID)
	}
	return count > 0, nil
}

// SaveVoteRecord inserts the (poll, voter) row. The composite primary key
// doubles as the one-vote-per-account guard, so a unique violation surfaces
// as ErrAlreadyVoted.
func (r *Repository) SaveVoteRecord(ctx context.Context, record entities.VoteRecord) error {
	row := voteRecordModel{
		PollID:      record.PollID,
		Voter:       strings.TrimSpace(record.Voter),
		OptionIndex: record.OptionIndex,
		CastAt:      record.CastAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyVoted
		}
		return r.logError("ledger_repo_save_vote_record_failed", err,
			"poll_id", record.PollID,
			"voter", strings.TrimSpace(record.Voter),
		)
	}
	return nil
}

func (r *Repository) GetAccount(ctx context.Context, account string) (entities.AccountLedger, error) {
	account = strings.TrimSpace(account)
	var row accountModel
	err := r.db.WithContext(ctx).
		Where("account = ?", account).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AccountLedger{Account: account}, nil
		}
		return entities.AccountLedger{}, r.logError("ledger_repo_get_account_failed", err, "account", account)
	}
	return row.toEntity()
}

func (r *Repository) SaveAccount(ctx context.Context, ledger entities.AccountLedger) error {
	row, err := accountModelFromEntity(ledger)
	if err != nil {
		return r.logError("ledger_repo_encode_account_failed", err, "account", ledger.Account)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}},
		DoUpdates: clause.Assignments(map[string]any{
			"withdrawable":         row.Withdrawable,
			"total_votes_received": row.TotalVotesReceived,
			"tier":                 row.Tier,
			"poll_ids":             row.PollIDs,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ledger_repo_save_account_failed", create.Error, "account", ledger.Account)
	}
	return nil
}

func (r *Repository) GetBuilder(ctx context.Context) (entities.BuilderLedger, error) {
	var row builderModel
	err := r.db.WithContext(ctx).
		Where("id = ?", singletonRowID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.BuilderLedger{}, nil
		}
		return entities.BuilderLedger{}, r.logError("ledger_repo_get_builder_failed", err)
	}
	return entities.BuilderLedger{
		Withdrawable: row.Withdrawable,
		CreateFees:   row.CreateFees,
		SponsorFees:  row.SponsorFees,
		VoteFeeCuts:  row.VoteFeeCuts,
	}, nil
}

func (r *Repository) SaveBuilder(ctx context.Context, ledger entities.BuilderLedger) error {
	row := builderModel{
		ID:           singletonRowID,
		Withdrawable: ledger.Withdrawable,
		CreateFees:   ledger.CreateFees,
		SponsorFees:  ledger.SponsorFees,
		VoteFeeCuts:  ledger.VoteFeeCuts,
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"withdrawable": row.Withdrawable,
			"create_fees":  row.CreateFees,
			"sponsor_fees": row.SponsorFees,
			"vote_fee_cuts": row.VoteFeeCuts,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ledger_repo_save_builder_failed", create.Error)
	}
	return nil
}

func (r *Repository) GetConfig(ctx context.Context) (entities.LedgerConfig, error) {
	var row configModel
	err := r.db.WithContext(ctx).
		Where("id = ?", singletonRowID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.LedgerConfig{}, domainerrors.ErrInvalidConfig
		}
		return entities.LedgerConfig{}, r.logError("ledger_repo_get_config_failed", err)
	}
	return entities.LedgerConfig{
		CreateFee:       row.CreateFee,
		BuilderShareBps: row.BuilderShareBps,
		DailyLimit:      row.DailyLimit,
		Paused:          row.Paused,
		Operator:        row.Operator,
		PendingOperator: row.PendingOperator,
	}, nil
}

func (r *Repository) SaveConfig(ctx context.Context, cfg entities.LedgerConfig) error {
	row := configModel{
		ID:              singletonRowID,
		CreateFee:       cfg.CreateFee,
		BuilderShareBps: cfg.BuilderShareBps,
		DailyLimit:      cfg.DailyLimit,
		Paused:          cfg.Paused,
		Operator:        strings.TrimSpace(cfg.Operator),
		PendingOperator: strings.TrimSpace(cfg.PendingOperator),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"create_fee":        row.CreateFee,
			"builder_share_bps": row.BuilderShareBps,
			"daily_limit":       row.DailyLimit,
			"paused":            row.Paused,
			"operator":          row.Operator,
			"pending_operator":  row.PendingOperator,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ledger_repo_save_config_failed", create.Error)
	}
	return nil
}

func (r *Repository) QuotaCount(ctx context.Context, account string, dayIndex int64) (int, error) {
	var row quotaModel
	err := r.db.WithContext(ctx).
		Where("account = ?", strings.TrimSpace(account)).
		Where("day_index = ?", dayIndex).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, r.logError("ledger_repo_quota_count_failed", err, "account", strings.TrimSpace(account))
	}
	return row.Count, nil
}

func (r *Repository) IncrementQuota(ctx context.Context, account string, dayIndex int64) error {
	row := quotaModel{
		Account:  strings.TrimSpace(account),
		DayIndex: dayIndex,
		Count:    1,
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}, {Name: "day_index"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count": gorm.Expr("quota_counters.count + 1"),
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ledger_repo_increment_quota_failed", create.Error, "account", row.Account)
	}
	return nil
}

func (r *Repository) IsAllowListed(ctx context.Context, account string) (bool, error) {
	var row allowlistModel
	err := r.db.WithContext(ctx).
		Where("account = ?", strings.TrimSpace(account)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, r.logError("ledger_repo_is_allow_listed_failed", err, "account", strings.TrimSpace(account))
	}
	return row.Allowed, nil
}

func (r *Repository) SetAllowListed(ctx context.Context, account string, allowed bool) error {
	row := allowlistModel{
		Account: strings.TrimSpace(account),
		Allowed: allowed,
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}},
		DoUpdates: clause.Assignments(map[string]any{
			"allowed": row.Allowed,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ledger_repo_set_allow_listed_failed", create.Error, "account", row.Account)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("ledger_repo_encode_outbox_failed", err, "event_type", envelope.EventType)
	}
	row := outboxModel{
		OutboxID:     uuid.NewString(),
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("ledger_repo_append_outbox_failed", err, "event_type", envelope.EventType)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ledger_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "polling-core/poll-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ledger repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Store = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
