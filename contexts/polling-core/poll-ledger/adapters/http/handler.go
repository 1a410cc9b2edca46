package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application/commands"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application/queries"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
	httptransport "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/transport/http"
)

type Handler struct {
	Polls       commands.PollUseCase
	Votes       commands.VoteUseCase
	Withdrawals commands.WithdrawUseCase
	Governance  commands.GovernanceUseCase
	Queries     queries.LedgerQueries
	Logger      *slog.Logger
}

func (h Handler) CreatePollHandler(
	ctx context.Context,
	caller string,
	req httptransport.CreatePollRequest,
) (httptransport.PollResponse, error) {
	poll, err := h.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		Creator:    caller,
		Question:   req.Question,
		Options:    req.Options,
		FeePerVote: req.FeePerVote,
		Duration:   time.Duration(req.DurationSeconds) * time.Second,
		Sponsor:    req.Sponsor,
		SponsorFee: req.SponsorFee,
		Payment:    req.Payment,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return toPollResponse(poll, poll.Open), nil
}

func (h Handler) EditPollHandler(
	ctx context.Context,
	caller string,
	pollID uint64,
	req httptransport.EditPollRequest,
) (httptransport.PollResponse, error) {
	poll, err := h.Polls.EditPoll(ctx, commands.EditPollCommand{
		PollID:   pollID,
		Caller:   caller,
		Question: req.Question,
		Options:  req.Options,
		Duration: time.Duration(req.DurationSeconds) * time.Second,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return toPollResponse(poll, poll.Open), nil
}

func (h Handler) ClosePollHandler(ctx context.Context, caller string, pollID uint64) (httptransport.PollResponse, error) {
	if err := h.Polls.ClosePoll(ctx, pollID, caller); err != nil {
		return httptransport.PollResponse{}, err
	}
	details, err := h.Queries.GetPoll(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return toPollResponse(details.Poll, details.IsOpen), nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	caller string,
	pollID uint64,
	req httptransport.VoteRequest,
) (httptransport.VoteResponse, error) {
	result, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		PollID:      pollID,
		Voter:       caller,
		OptionIndex: req.OptionIndex,
		Payment:     req.Payment,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		Poll:        toPollResponse(result.Poll, result.Poll.Open),
		BuilderCut:  result.BuilderCut,
		CreatorCut:  result.CreatorCut,
		TierChanged: result.TierChanged,
		Tier:        result.NewTier.String(),
	}, nil
}

func (h Handler) WithdrawCreatorHandler(ctx context.Context, caller string) (httptransport.WithdrawResponse, error) {
	amount, err := h.Withdrawals.WithdrawCreatorFees(ctx, caller)
	if err != nil {
		return httptransport.WithdrawResponse{}, err
	}
	return httptransport.WithdrawResponse{Account: caller, Amount: amount}, nil
}

func (h Handler) WithdrawBuilderHandler(ctx context.Context, caller string) (httptransport.WithdrawResponse, error) {
	amount, err := h.Withdrawals.WithdrawBuilderFees(ctx, caller)
	if err != nil {
		return httptransport.WithdrawResponse{}, err
	}
	return httptransport.WithdrawResponse{Account: caller, Amount: amount}, nil
}

func (h Handler) GetPollHandler(ctx context.Context, pollID uint64) (httptransport.PollResponse, error) {
	details, err := h.Queries.GetPoll(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return toPollResponse(details.Poll, details.IsOpen), nil
}

func (h Handler) ListPollsHandler(ctx context.Context) (httptransport.PollListResponse, error) {
	items, err := h.Queries.ListPolls(ctx)
	if err != nil {
		return httptransport.PollListResponse{}, err
	}
	out := httptransport.PollListResponse{Items: make([]httptransport.PollResponse, 0, len(items))}
	for _, details := range items {
		out.Items = append(out.Items, toPollResponse(details.Poll, details.IsOpen))
	}
	return out, nil
}

func (h Handler) PollStatusHandler(ctx context.Context, pollID uint64) (httptransport.PollStatusResponse, error) {
	open, err := h.Queries.IsPollOpen(ctx, pollID)
	if err != nil {
		return httptransport.PollStatusResponse{}, err
	}
	return httptransport.PollStatusResponse{PollID: pollID, Open: open}, nil
}

func (h Handler) GetOptionHandler(ctx context.Context, pollID uint64, index int) (httptransport.OptionResponse, error) {
	option, err := h.Queries.GetOption(ctx, pollID, index)
	if err != nil {
		return httptransport.OptionResponse{}, err
	}
	return httptransport.OptionResponse{Index: option.Index, Text: option.Text, Votes: option.Votes}, nil
}

func (h Handler) ListOptionsHandler(ctx context.Context, pollID uint64) (httptransport.OptionsResponse, error) {
	options, err := h.Queries.ListOptions(ctx, pollID)
	if err != nil {
		return httptransport.OptionsResponse{}, err
	}
	out := httptransport.OptionsResponse{PollID: pollID, Items: make([]httptransport.OptionResponse, 0, len(options))}
	for _, option := range options {
		out.Items = append(out.Items, httptransport.OptionResponse{Index: option.Index, Text: option.Text, Votes: option.Votes})
	}
	return out, nil
}

func (h Handler) CreatorPollsHandler(ctx context.Context, account string) (httptransport.CreatorPollsResponse, error) {
	pollIDs, err := h.Queries.CreatorPolls(ctx, account)
	if err != nil {
		return httptransport.CreatorPollsResponse{}, err
	}
	return httptransport.CreatorPollsResponse{Account: account, PollIDs: pollIDs}, nil
}

func (h Handler) CreatorStatsHandler(ctx context.Context, account string) (httptransport.CreatorStatsResponse, error) {
	stats, err := h.Queries.CreatorStats(ctx, account)
	if err != nil {
		return httptransport.CreatorStatsResponse{}, err
	}
	return httptransport.CreatorStatsResponse{
		Account:            stats.Account,
		PollCount:          stats.PollCount,
		TotalVotesReceived: stats.TotalVotesReceived,
		Tier:               stats.Tier.String(),
		Withdrawable:       stats.Withdrawable,
	}, nil
}

func (h Handler) QuotaHandler(ctx context.Context, account string) (httptransport.QuotaResponse, error) {
	count, err := h.Queries.TodayCreationCount(ctx, account)
	if err != nil {
		return httptransport.QuotaResponse{}, err
	}
	return httptransport.QuotaResponse{Account: account, Count: count}, nil
}

func (h Handler) SetFeesHandler(ctx context.Context, caller string, req httptransport.SetFeesRequest) error {
	return h.Governance.SetFees(ctx, caller, req.CreateFee, req.BuilderShareBps)
}

func (h Handler) SetPausedHandler(ctx context.Context, caller string, req httptransport.SetPausedRequest) error {
	return h.Governance.SetPaused(ctx, caller, req.Paused)
}

func (h Handler) SetDailyLimitHandler(ctx context.Context, caller string, req httptransport.SetDailyLimitRequest) error {
	return h.Governance.SetDailyLimit(ctx, caller, req.Limit)
}

func (h Handler) SetAllowListHandler(ctx context.Context, caller string, req httptransport.SetAllowListRequest) error {
	return h.Governance.SetAllowListed(ctx, caller, req.Account, req.Allowed)
}

func (h Handler) ProposeOperatorHandler(ctx context.Context, caller string, req httptransport.OperatorTransferRequest) error {
	return h.Governance.SetPendingOperator(ctx, caller, req.Account)
}

func (h Handler) AcceptOperatorHandler(ctx context.Context, caller string) error {
	return h.Governance.AcceptOperator(ctx, caller)
}

func toPollResponse(poll entities.Poll, isOpen bool) httptransport.PollResponse {
	resp := httptransport.PollResponse{
		PollID:          poll.PollID,
		Creator:         poll.Creator,
		Question:        poll.Question,
		Options:         poll.Options,
		VoteCounts:      poll.VoteCounts,
		TotalVotes:      poll.TotalVotes,
		Open:            isOpen,
		CreatedAt:       poll.CreatedAt.UTC().Format(time.RFC3339),
		FeePerVote:      poll.FeePerVote,
		BuilderShareBps: poll.BuilderShareBps,
		TotalVoteFees:   poll.TotalVoteFees,
		BuilderFees:     poll.BuilderFees,
		CreatorFees:     poll.CreatorFees,
		Sponsor:         poll.Sponsor,
		SponsorFee:      poll.SponsorFee,
		ContentHash:     poll.ContentHash,
	}
	if !poll.ClosedAt.IsZero() {
		resp.ClosedAt = poll.ClosedAt.UTC().Format(time.RFC3339)
	}
	if !poll.EndTime.IsZero() {
		resp.EndTime = poll.EndTime.UTC().Format(time.RFC3339)
	}
	return resp
}
