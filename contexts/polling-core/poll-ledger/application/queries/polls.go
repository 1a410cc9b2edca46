package queries

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application/commands"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
	domainerrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"
)

// PollDetails pairs a stored poll with its live-computed open status. The
// open boolean is never persisted from here; reads recompute it against the
// clock every time.
type PollDetails struct {
	Poll   entities.Poll
	IsOpen bool
}

type OptionCount struct {
	Index int
	Text  string
	Votes uint64
}

type CreatorStats struct {
	Account            string
	PollCount          int
	TotalVotesReceived uint64
	Tier               entities.Tier
	Withdrawable       uint64
}

// LedgerQueries is the read-only surface. Queries never mutate state: an
// expired poll reads as closed here while its stored flag stays untouched
// until the next mutating operation settles it.
type LedgerQueries struct {
	Store ports.Store
	Clock ports.Clock
}

func (q LedgerQueries) GetPoll(ctx context.Context, pollID uint64) (PollDetails, error) {
	poll, err := q.Store.GetPoll(ctx, pollID)
	if err != nil {
		return PollDetails{}, err
	}
	return PollDetails{Poll: poll, IsOpen: poll.OpenAt(q.now())}, nil
}

func (q LedgerQueries) IsPollOpen(ctx context.Context, pollID uint64) (bool, error) {
	poll, err := q.Store.GetPoll(ctx, pollID)
	if err != nil {
		return false, err
	}
	return poll.OpenAt(q.now()), nil
}

func (q LedgerQueries) GetOption(ctx context.Context, pollID uint64, index int) (OptionCount, error) {
	poll, err := q.Store.GetPoll(ctx, pollID)
	if err != nil {
		return OptionCount{}, err
	}
	if index < 0 || index >= len(poll.Options) {
		return OptionCount{}, domainerrors.ErrInvalidOption
	}
	return OptionCount{Index: index, Text: poll.Options[index], Votes: poll.VoteCounts[index]}, nil
}

func (q LedgerQueries) ListOptions(ctx context.Context, pollID uint64) ([]OptionCount, error) {
	poll, err := q.Store.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	items := make([]OptionCount, 0, len(poll.Options))
	for i, text := range poll.Options {
		items = append(items, OptionCount{Index: i, Text: text, Votes: poll.VoteCounts[i]})
	}
	return items, nil
}

// ListPolls returns every poll, newest first.
func (q LedgerQueries) ListPolls(ctx context.Context) ([]PollDetails, error) {
	polls, err := q.Store.ListPolls(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(polls, func(i, j int) bool {
		return polls[i].PollID > polls[j].PollID
	})
	now := q.now()
	items := make([]PollDetails, 0, len(polls))
	for _, poll := range polls {
		items = append(items, PollDetails{Poll: poll, IsOpen: poll.OpenAt(now)})
	}
	return items, nil
}

func (q LedgerQueries) CreatorPolls(ctx context.Context, account string) ([]uint64, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, domainerrors.ErrInvalidAccount
	}
	ledger, err := q.Store.GetAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	return append([]uint64(nil), ledger.PollIDs...), nil
}

func (q LedgerQueries) CreatorStats(ctx context.Context, account string) (CreatorStats, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return CreatorStats{}, domainerrors.ErrInvalidAccount
	}
	ledger, err := q.Store.GetAccount(ctx, account)
	if err != nil {
		return CreatorStats{}, err
	}
	return CreatorStats{
		Account:            account,
		PollCount:          len(ledger.PollIDs),
		TotalVotesReceived: ledger.TotalVotesReceived,
		Tier:               ledger.Tier,
		Withdrawable:       ledger.Withdrawable,
	}, nil
}

// TodayCreationCount reports how many polls the account created in the
// current quota day.
func (q LedgerQueries) TodayCreationCount(ctx context.Context, account string) (int, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return 0, domainerrors.ErrInvalidAccount
	}
	return q.Store.QuotaCount(ctx, account, commands.DayIndexFor(q.now()))
}

func (q LedgerQueries) now() time.Time {
	if q.Clock != nil {
		return q.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
