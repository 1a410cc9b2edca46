package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	application "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
	domainerrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"
)

// CreatePollCommand is the write-model input for opening a new poll.
// Payment is the native value provided with the call.
type CreatePollCommand struct {
	Creator    string
	Question   string
	Options    []string
	FeePerVote uint64
	Duration   time.Duration
	Sponsor    string
	SponsorFee uint64
	Payment    uint64
}

// EditPollCommand rewrites a poll's content wholesale. Permitted only to the
// creator, only while the poll is open and has no votes.
type EditPollCommand struct {
	PollID   uint64
	Caller   string
	Question string
	Options  []string
	Duration time.Duration
}

// PollUseCase owns the poll life-cycle state machine: create, edit, close,
// and the lazy expiry transition.
type PollUseCase struct {
	Store  ports.Store
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// CreatePoll opens a poll. The pause gate, the quota gate, validation, fee
// routing, id assignment and event emission all commit as one unit.
func (uc PollUseCase) CreatePoll(ctx context.Context, cmd CreatePollCommand) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	creator := strings.TrimSpace(cmd.Creator)
	if creator == "" {
		return entities.Poll{}, domainerrors.ErrInvalidAccount
	}
	now := resolveNow(uc.Clock)

	var created entities.Poll
	err := uc.Store.InTx(ctx, func(repo ports.Repository) error {
		cfg, err := repo.GetConfig(ctx)
		if err != nil {
			return err
		}
		if cfg.Paused {
			return domainerrors.ErrPaused
		}
		if err := checkAndConsumeQuota(ctx, repo, creator, now, cfg.DailyLimit); err != nil {
			return err
		}
		if err := validatePollContent(cmd.Question, cmd.Options, cmd.FeePerVote, cmd.Duration); err != nil {
			return err
		}
		sponsor := strings.TrimSpace(cmd.Sponsor)
		if cmd.SponsorFee > 0 && sponsor == "" {
			return domainerrors.ErrSponsorRequired
		}
		if cmd.SponsorFee > math.MaxUint64-cfg.CreateFee {
			return domainerrors.ErrInsufficientPayment
		}
		due := cfg.CreateFee + cmd.SponsorFee
		if cmd.Payment < due {
			return domainerrors.ErrInsufficientPayment
		}

		// Creation and sponsor fees route entirely to the builder ledger.
		builder, err := repo.GetBuilder(ctx)
		if err != nil {
			return err
		}
		builder.Withdrawable += due
		builder.CreateFees += cfg.CreateFee
		builder.SponsorFees += cmd.SponsorFee
		if err := repo.SaveBuilder(ctx, builder); err != nil {
			return err
		}

		pollID, err := repo.NextPollID(ctx)
		if err != nil {
			return err
		}
		var endTime time.Time
		if cmd.Duration > 0 {
			endTime = now.Add(cmd.Duration)
		}
		poll := entities.Poll{
			PollID:          pollID,
			Creator:         creator,
			Question:        cmd.Question,
			Options:         append([]string(nil), cmd.Options...),
			VoteCounts:      make([]uint64, len(cmd.Options)),
			Open:            true,
			CreatedAt:       now,
			EndTime:         endTime,
			FeePerVote:      cmd.FeePerVote,
			BuilderShareBps: cfg.BuilderShareBps,
			Sponsor:         sponsor,
			SponsorFee:      cmd.SponsorFee,
			ContentHash:     contentHash(creator, now, cmd.Question, pollID),
		}
		if err := repo.SavePoll(ctx, poll); err != nil {
			return err
		}

		account, err := repo.GetAccount(ctx, creator)
		if err != nil {
			return err
		}
		account.Account = creator
		account.PollIDs = append(account.PollIDs, pollID)
		if err := repo.SaveAccount(ctx, account); err != nil {
			return err
		}

		if err := appendEvent(ctx, repo, uc.IDGen, EventPollCreated, pollPartition(pollID), now, map[string]any{
			"poll_id":           pollID,
			"creator":           creator,
			"question":          cmd.Question,
			"option_count":      len(cmd.Options),
			"fee_per_vote":      cmd.FeePerVote,
			"builder_share_bps": cfg.BuilderShareBps,
			"end_time":          formatEndTime(endTime),
			"content_hash":      poll.ContentHash,
		}); err != nil {
			return err
		}
		if cmd.SponsorFee > 0 {
			if err := appendEvent(ctx, repo, uc.IDGen, EventPollSponsored, pollPartition(pollID), now, map[string]any{
				"poll_id":     pollID,
				"sponsor":     sponsor,
				"sponsor_fee": cmd.SponsorFee,
			}); err != nil {
				return err
			}
		}
		created = poll
		return nil
	})
	if err != nil {
		logger.Warn("poll create rejected",
			"event", "poll_create_rejected",
			"module", "polling-core/poll-ledger",
			"layer", "application",
			"creator", creator,
			"error", err.Error(),
		)
		return entities.Poll{}, err
	}

	logger.Info("poll created",
		"event", "poll_created",
		"module", "polling-core/poll-ledger",
		"layer", "application",
		"poll_id", created.PollID,
		"creator", creator,
		"fee_per_vote", created.FeePerVote,
		"builder_share_bps", created.BuilderShareBps,
	)
	return created, nil
}

// EditPoll replaces question, options and duration before the first vote.
// Options and counts are swapped wholesale; counts reset to zero, which is
// consistent because no votes exist yet. The new end time is relative to
// now, not to the original creation time.
func (uc PollUseCase) EditPoll(ctx context.Context, cmd EditPollCommand) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	if caller == "" {
		return entities.Poll{}, domainerrors.ErrInvalidAccount
	}
	now := resolveNow(uc.Clock)

	var edited entities.Poll
	var lazilyClosed bool
	err := uc.Store.InTx(ctx, func(repo ports.Repository) error {
		poll, err := repo.GetPoll(ctx, cmd.PollID)
		if err != nil {
			return err
		}
		if poll.ExpiredAt(now) {
			if err := settleExpiry(ctx, repo, uc.IDGen, poll, now); err != nil {
				return err
			}
			lazilyClosed = true
			return nil
		}
		if poll.Creator != caller {
			return domainerrors.ErrNotCreator
		}
		if !poll.Open {
			return domainerrors.ErrPollClosed
		}
		if poll.TotalVotes > 0 {
			return domainerrors.ErrPollHasVotes
		}
		if err := validatePollContent(cmd.Question, cmd.Options, poll.FeePerVote, cmd.Duration); err != nil {
			return err
		}

		poll.Question = cmd.Question
		poll.Options = append([]string(nil), cmd.Options...)
		poll.VoteCounts = make([]uint64, len(cmd.Options))
		if cmd.Duration > 0 {
			poll.EndTime = now.Add(cmd.Duration)
		} else {
			poll.EndTime = time.Time{}
		}
		if err := repo.SavePoll(ctx, poll); err != nil {
			return err
		}
		if err := appendEvent(ctx, repo, uc.IDGen, EventPollEdited, pollPartition(poll.PollID), now, map[string]any{
			"poll_id":      poll.PollID,
			"question":     poll.Question,
			"option_count": len(poll.Options),
			"end_time":     formatEndTime(poll.EndTime),
		}); err != nil {
			return err
		}
		edited = poll
		return nil
	})
	if err != nil {
		return entities.Poll{}, err
	}
	if lazilyClosed {
		// The expiry transition committed on its own; the edit itself fails.
		return entities.Poll{}, domainerrors.ErrPollClosed
	}

	logger.Info("poll edited",
		"event", "poll_edited",
		"module", "polling-core/poll-ledger",
		"layer", "application",
		"poll_id", edited.PollID,
		"creator", caller,
	)
	return edited, nil
}

// ClosePoll transitions an open poll to its terminal state at the creator's
// request.
func (uc PollUseCase) ClosePoll(ctx context.Context, pollID uint64, caller string) error {
	logger := application.ResolveLogger(uc.Logger)
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return domainerrors.ErrInvalidAccount
	}
	now := resolveNow(uc.Clock)

	var lazilyClosed bool
	err := uc.Store.InTx(ctx, func(repo ports.Repository) error {
		poll, err := repo.GetPoll(ctx, pollID)
		if err != nil {
			return err
		}
		if poll.ExpiredAt(now) {
			if err := settleExpiry(ctx, repo, uc.IDGen, poll, now); err != nil {
				return err
			}
			lazilyClosed = true
			return nil
		}
		if poll.Creator != caller {
			return domainerrors.ErrNotCreator
		}
		if !poll.Open {
			return domainerrors.ErrPollClosed
		}
		poll.Open = false
		poll.ClosedAt = now
		if err := repo.SavePoll(ctx, poll); err != nil {
			return err
		}
		return appendEvent(ctx, repo, uc.IDGen, EventPollClosed, pollPartition(poll.PollID), now, map[string]any{
			"poll_id":     poll.PollID,
			"creator":     poll.Creator,
			"total_votes": poll.TotalVotes,
			"reason":      "closed_by_creator",
		})
	})
	if err != nil {
		return err
	}
	if lazilyClosed {
		return domainerrors.ErrPollClosed
	}

	logger.Info("poll closed",
		"event", "poll_closed",
		"module", "polling-core/poll-ledger",
		"layer", "application",
		"poll_id", pollID,
		"creator", caller,
	)
	return nil
}

// settleExpiry writes the lazy closed transition for a poll whose end time
// has passed while the stored flag still reads open. Callers commit this on
// its own and then report ErrPollClosed for the operation that touched the
// poll.
func settleExpiry(ctx context.Context, repo ports.Repository, idgen ports.IDGenerator, poll entities.Poll, now time.Time) error {
	poll.Open = false
	poll.ClosedAt = now
	if err := repo.SavePoll(ctx, poll); err != nil {
		return err
	}
	return appendEvent(ctx, repo, idgen, EventPollClosed, pollPartition(poll.PollID), now, map[string]any{
		"poll_id":     poll.PollID,
		"creator":     poll.Creator,
		"total_votes": poll.TotalVotes,
		"reason":      "expired",
	})
}

func validatePollContent(question string, options []string, feePerVote uint64, duration time.Duration) error {
	if len(question) < entities.MinQuestionLen || len(question) > entities.MaxQuestionLen {
		return domainerrors.ErrInvalidQuestion
	}
	if len(options) < entities.MinOptionCount || len(options) > entities.MaxOptionCount {
		return domainerrors.ErrInvalidOptions
	}
	for _, option := range options {
		if len(option) == 0 || len(option) > entities.MaxOptionLen {
			return domainerrors.ErrInvalidOptions
		}
	}
	if feePerVote > entities.MaxFeePerVote {
		return domainerrors.ErrInvalidFee
	}
	if duration != 0 && duration < entities.MinPollDuration {
		return domainerrors.ErrInvalidDuration
	}
	return nil
}

func contentHash(creator string, createdAt time.Time, question string, pollID uint64) string {
	raw := creator + "|" + strconv.FormatInt(createdAt.Unix(), 10) + "|" + question + "|" + strconv.FormatUint(pollID, 10)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func formatEndTime(endTime time.Time) string {
	if endTime.IsZero() {
		return ""
	}
	return endTime.UTC().Format(time.RFC3339)
}
