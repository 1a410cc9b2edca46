package commands

import (
	"context"
	"log/slog"
	"strings"

	application "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
	domainerrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/services"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"
)

// CastVoteCommand is the write-model input for a single vote. Payment must
// equal the poll's per-vote fee exactly (zero for free polls).
type CastVoteCommand struct {
	PollID      uint64
	Voter       string
	OptionIndex int
	Payment     uint64
}

// CastVoteResult reports the committed vote plus the tier transition it
// caused, if any.
type CastVoteResult struct {
	Poll        entities.Poll
	BuilderCut  uint64
	CreatorCut  uint64
	TierChanged bool
	NewTier     entities.Tier
}

// VoteUseCase records votes. Every accepted vote updates the poll counts,
// the fee ledgers and the creator's reputation in one transaction: either
// every update applies or none does.
type VoteUseCase struct {
	Store  ports.Store
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	voter := strings.TrimSpace(cmd.Voter)
	if voter == "" {
		return CastVoteResult{}, domainerrors.ErrInvalidAccount
	}
	now := resolveNow(uc.Clock)

	var result CastVoteResult
	var lazilyClosed bool
	err := uc.Store.InTx(ctx, func(repo ports.Repository) error {
		cfg, err := repo.GetConfig(ctx)
		if err != nil {
			return err
		}
		if cfg.Paused {
			return domainerrors.ErrPaused
		}
		poll, err := repo.GetPoll(ctx, cmd.PollID)
		if err != nil {
			return err
		}
		if poll.ExpiredAt(now) {
			// The expired poll flips to closed as a committed side effect;
			// the vote itself then fails.
			if err := settleExpiry(ctx, repo, uc.IDGen, poll, now); err != nil {
				return err
			}
			lazilyClosed = true
			return nil
		}
		if !poll.Open {
			return domainerrors.ErrPollClosed
		}
		if cmd.OptionIndex < 0 || cmd.OptionIndex >= len(poll.Options) {
			return domainerrors.ErrInvalidOption
		}
		voted, err := repo.HasVoted(ctx, cmd.PollID, voter)
		if err != nil {
			return err
		}
		if voted {
			return domainerrors.ErrAlreadyVoted
		}

		// Fee settlement against the share frozen at creation. No overpay,
		// no underpay.
		if poll.FeePerVote == 0 {
			if cmd.Payment != 0 {
				return domainerrors.ErrWrongPayment
			}
		} else if cmd.Payment != poll.FeePerVote {
			return domainerrors.ErrWrongPayment
		}
		builderCut, creatorCut := services.SplitVoteFee(poll.FeePerVote, poll.BuilderShareBps)

		creator, err := repo.GetAccount(ctx, poll.Creator)
		if err != nil {
			return err
		}
		creator.Account = poll.Creator
		creator.Withdrawable += creatorCut
		creator.TotalVotesReceived++

		builder, err := repo.GetBuilder(ctx)
		if err != nil {
			return err
		}
		builder.Withdrawable += builderCut
		builder.VoteFeeCuts += builderCut

		poll.VoteCounts[cmd.OptionIndex]++
		poll.TotalVotes++
		poll.TotalVoteFees += poll.FeePerVote
		poll.BuilderFees += builderCut
		poll.CreatorFees += creatorCut

		if err := repo.SaveVoteRecord(ctx, entities.VoteRecord{
			PollID:      cmd.PollID,
			Voter:       voter,
			OptionIndex: cmd.OptionIndex,
			CastAt:      now,
		}); err != nil {
			return err
		}
		if err := repo.SavePoll(ctx, poll); err != nil {
			return err
		}
		if err := repo.SaveBuilder(ctx, builder); err != nil {
			return err
		}

		// Reputation recompute with write avoidance: the stored tier is only
		// overwritten, and a change event emitted, when it actually moves.
		newTier := services.TierFor(creator.TotalVotesReceived)
		tierChanged := newTier != creator.Tier
		if tierChanged {
			creator.Tier = newTier
		}
		if err := repo.SaveAccount(ctx, creator); err != nil {
			return err
		}

		if err := appendEvent(ctx, repo, uc.IDGen, EventVoteCast, pollPartition(poll.PollID), now, map[string]any{
			"poll_id":      poll.PollID,
			"voter":        voter,
			"option_index": cmd.OptionIndex,
			"fee":          poll.FeePerVote,
			"builder_cut":  builderCut,
			"creator_cut":  creatorCut,
			"total_votes":  poll.TotalVotes,
		}); err != nil {
			return err
		}
		if tierChanged {
			if err := appendEvent(ctx, repo, uc.IDGen, EventTierChanged, poll.Creator, now, map[string]any{
				"account":              poll.Creator,
				"tier":                 int(newTier),
				"tier_name":            newTier.String(),
				"total_votes_received": creator.TotalVotesReceived,
			}); err != nil {
				return err
			}
		}

		result = CastVoteResult{
			Poll:        poll,
			BuilderCut:  builderCut,
			CreatorCut:  creatorCut,
			TierChanged: tierChanged,
			NewTier:     creator.Tier,
		}
		return nil
	})
	if err != nil {
		logger.Warn("vote rejected",
			"event", "vote_rejected",
			"module", "polling-core/poll-ledger",
			"layer", "application",
			"poll_id", cmd.PollID,
			"voter", voter,
			"error", err.Error(),
		)
		return CastVoteResult{}, err
	}
	if lazilyClosed {
		return CastVoteResult{}, domainerrors.ErrPollClosed
	}

	logger.Info("vote cast",
		"event", "vote_cast",
		"module", "polling-core/poll-ledger",
		"layer", "application",
		"poll_id", cmd.PollID,
		"voter", voter,
		"option_index", cmd.OptionIndex,
		"builder_cut", result.BuilderCut,
		"creator_cut", result.CreatorCut,
	)
	return result, nil
}
