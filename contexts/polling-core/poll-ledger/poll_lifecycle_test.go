package pollledger_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application/commands"
	domainerrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
)

func TestCreatePollValidationBoundaries(t *testing.T) {
	module, _, _ := newLedger(t)
	ctx := context.Background()

	base := commands.CreatePollCommand{
		Creator:  "alice",
		Question: "Which option wins?",
		Options:  []string{"alpha", "beta"},
	}

	cases := []struct {
		name    string
		mutate  func(cmd *commands.CreatePollCommand)
		wantErr error
	}{
		{
			name:    "one option rejected",
			mutate:  func(cmd *commands.CreatePollCommand) { cmd.Options = []string{"only"} },
			wantErr: domainerrors.ErrInvalidOptions,
		},
		{
			name: "eleven options rejected",
			mutate: func(cmd *commands.CreatePollCommand) {
				cmd.Options = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
			},
			wantErr: domainerrors.ErrInvalidOptions,
		},
		{
			name:    "empty option rejected",
			mutate:  func(cmd *commands.CreatePollCommand) { cmd.Options = []string{"alpha", ""} },
			wantErr: domainerrors.ErrInvalidOptions,
		},
		{
			name:    "option over 100 bytes rejected",
			mutate:  func(cmd *commands.CreatePollCommand) { cmd.Options = []string{"alpha", strings.Repeat("x", 101)} },
			wantErr: domainerrors.ErrInvalidOptions,
		},
		{
			name:    "empty question rejected",
			mutate:  func(cmd *commands.CreatePollCommand) { cmd.Question = "" },
			wantErr: domainerrors.ErrInvalidQuestion,
		},
		{
			name:    "question over 280 bytes rejected",
			mutate:  func(cmd *commands.CreatePollCommand) { cmd.Question = strings.Repeat("q", 281) },
			wantErr: domainerrors.ErrInvalidQuestion,
		},
		{
			name:    "fee above cap rejected",
			mutate:  func(cmd *commands.CreatePollCommand) { cmd.FeePerVote = 1_000_000_000_001 },
			wantErr: domainerrors.ErrInvalidFee,
		},
		{
			name:    "duration below one minute rejected",
			mutate:  func(cmd *commands.CreatePollCommand) { cmd.Duration = 59 * time.Second },
			wantErr: domainerrors.ErrInvalidDuration,
		},
		{
			name:    "sponsor fee without sponsor rejected",
			mutate:  func(cmd *commands.CreatePollCommand) { cmd.SponsorFee = 10; cmd.Payment = 10 },
			wantErr: domainerrors.ErrSponsorRequired,
		},
		{
			name:    "blank creator rejected",
			mutate:  func(cmd *commands.CreatePollCommand) { cmd.Creator = "   " },
			wantErr: domainerrors.ErrInvalidAccount,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := base
			cmd.Options = append([]string(nil), base.Options...)
			tc.mutate(&cmd)
			if _, err := module.Handler.Polls.CreatePoll(ctx, cmd); !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}

	// The boundary values themselves are accepted.
	ok := base
	ok.Question = strings.Repeat("q", 280)
	ok.Options = []string{strings.Repeat("x", 100), "beta"}
	ok.Duration = 60 * time.Second
	ok.FeePerVote = 1_000_000_000_000
	if _, err := module.Handler.Polls.CreatePoll(ctx, ok); err != nil {
		t.Fatalf("boundary-valid poll rejected: %v", err)
	}
}

func TestCreatePollChargesCreateAndSponsorFees(t *testing.T) {
	module, store, _ := newLedger(t)
	ctx := context.Background()

	if err := module.Handler.Governance.SetFees(ctx, testOperator, 40, 250); err != nil {
		t.Fatalf("set fees failed: %v", err)
	}

	cmd := commands.CreatePollCommand{
		Creator:    "alice",
		Question:   "Sponsored?",
		Options:    []string{"yes", "no"},
		Sponsor:    "brand",
		SponsorFee: 60,
		Payment:    99,
	}
	if _, err := module.Handler.Polls.CreatePoll(ctx, cmd); !errors.Is(err, domainerrors.ErrInsufficientPayment) {
		t.Fatalf("underpayment: got %v, want ErrInsufficientPayment", err)
	}

	cmd.Payment = 100
	poll, err := module.Handler.Polls.CreatePoll(ctx, cmd)
	if err != nil {
		t.Fatalf("create sponsored poll failed: %v", err)
	}
	if poll.Sponsor != "brand" || poll.SponsorFee != 60 {
		t.Fatalf("sponsor not recorded: %+v", poll)
	}

	builder, err := store.GetBuilder(ctx)
	if err != nil {
		t.Fatalf("get builder failed: %v", err)
	}
	if builder.Withdrawable != 100 || builder.CreateFees != 40 || builder.SponsorFees != 60 {
		t.Fatalf("builder ledger = %+v, want 100 withdrawable split 40/60", builder)
	}

	if got := eventsOfType(t, store, commands.EventPollSponsored); len(got) != 1 {
		t.Fatalf("sponsored events = %d, want 1", len(got))
	}
}

func TestEditPollRules(t *testing.T) {
	module, _, _ := newLedger(t)
	ctx := context.Background()
	poll := mustCreatePoll(t, module, "alice", 0, 0)

	edit := commands.EditPollCommand{
		PollID:   poll.PollID,
		Caller:   "mallory",
		Question: "Edited question",
		Options:  []string{"one", "two", "three"},
	}
	if _, err := module.Handler.Polls.EditPoll(ctx, edit); !errors.Is(err, domainerrors.ErrNotCreator) {
		t.Fatalf("non-creator edit: got %v, want ErrNotCreator", err)
	}

	edit.Caller = "alice"
	edited, err := module.Handler.Polls.EditPoll(ctx, edit)
	if err != nil {
		t.Fatalf("creator edit failed: %v", err)
	}
	if edited.Question != "Edited question" || len(edited.Options) != 3 {
		t.Fatalf("edit not applied: %+v", edited)
	}
	if len(edited.VoteCounts) != 3 || edited.VoteCounts[0] != 0 {
		t.Fatalf("vote counts not reset with options: %+v", edited.VoteCounts)
	}

	mustCastVote(t, module, poll.PollID, "bob", 0, 0)
	if _, err := module.Handler.Polls.EditPoll(ctx, edit); !errors.Is(err, domainerrors.ErrPollHasVotes) {
		t.Fatalf("edit after vote: got %v, want ErrPollHasVotes", err)
	}

	if err := module.Handler.Polls.ClosePoll(ctx, poll.PollID, "alice"); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := module.Handler.Polls.EditPoll(ctx, edit); !errors.Is(err, domainerrors.ErrPollClosed) {
		t.Fatalf("edit after close: got %v, want ErrPollClosed", err)
	}
}

func TestClosePollIsCreatorOnlyAndTerminal(t *testing.T) {
	module, store, _ := newLedger(t)
	ctx := context.Background()
	poll := mustCreatePoll(t, module, "alice", 0, 0)

	if err := module.Handler.Polls.ClosePoll(ctx, poll.PollID, "mallory"); !errors.Is(err, domainerrors.ErrNotCreator) {
		t.Fatalf("non-creator close: got %v, want ErrNotCreator", err)
	}
	if err := module.Handler.Polls.ClosePoll(ctx, poll.PollID, "alice"); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := module.Handler.Polls.ClosePoll(ctx, poll.PollID, "alice"); !errors.Is(err, domainerrors.ErrPollClosed) {
		t.Fatalf("double close: got %v, want ErrPollClosed", err)
	}

	closes := eventsOfType(t, store, commands.EventPollClosed)
	if len(closes) != 1 {
		t.Fatalf("close events = %d, want 1", len(closes))
	}
	if closes[0]["reason"] != "closed_by_creator" {
		t.Fatalf("close reason = %v, want closed_by_creator", closes[0]["reason"])
	}
}

func TestVoteOnExpiredPollSettlesExpiryLazily(t *testing.T) {
	module, store, base := newLedger(t)
	ctx := context.Background()
	poll := mustCreatePoll(t, module, "alice", 0, time.Hour)

	// One second past the end time: the vote fails, but the poll's stored
	// state flips to closed as a committed side effect.
	store.SetNow(base.Add(time.Hour + time.Second))
	_, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		PollID: poll.PollID,
		Voter:  "bob",
	})
	if !errors.Is(err, domainerrors.ErrPollClosed) {
		t.Fatalf("vote on expired poll: got %v, want ErrPollClosed", err)
	}

	stored, err := store.GetPoll(ctx, poll.PollID)
	if err != nil {
		t.Fatalf("get poll failed: %v", err)
	}
	if stored.Open {
		t.Fatalf("expiry was not settled: poll still stored open")
	}
	if stored.TotalVotes != 0 {
		t.Fatalf("failed vote mutated counts: %d", stored.TotalVotes)
	}

	closes := eventsOfType(t, store, commands.EventPollClosed)
	if len(closes) != 1 || closes[0]["reason"] != "expired" {
		t.Fatalf("expected one expired close event, got %v", closes)
	}

	// Before the end time the same poll reads open.
	other := mustCreatePoll(t, module, "carol", 0, time.Hour)
	open, err := module.Handler.Queries.IsPollOpen(ctx, other.PollID)
	if err != nil || !open {
		t.Fatalf("fresh poll should read open, got %v %v", open, err)
	}
}

func TestEditAndCloseSettleExpiryLazily(t *testing.T) {
	module, store, base := newLedger(t)
	ctx := context.Background()

	// Edit path: the creator's edit past the end time settles the expiry
	// and then fails like any other touch of a closed poll.
	edited := mustCreatePoll(t, module, "alice", 0, time.Hour)
	store.SetNow(base.Add(time.Hour + time.Second))
	_, err := module.Handler.Polls.EditPoll(ctx, commands.EditPollCommand{
		PollID:   edited.PollID,
		Caller:   "alice",
		Question: "Still editable?",
		Options:  []string{"yes", "no"},
	})
	if !errors.Is(err, domainerrors.ErrPollClosed) {
		t.Fatalf("edit on expired poll: got %v, want ErrPollClosed", err)
	}
	stored, err := store.GetPoll(ctx, edited.PollID)
	if err != nil {
		t.Fatalf("get poll failed: %v", err)
	}
	if stored.Open {
		t.Fatalf("edit did not settle expiry: poll still stored open")
	}
	if stored.Question != edited.Question {
		t.Fatalf("failed edit mutated content: %q", stored.Question)
	}

	// Close path: an explicit close after expiry settles with the expired
	// reason, not the creator-close one.
	closed := mustCreatePoll(t, module, "alice", 0, time.Hour)
	store.SetNow(base.Add(2*time.Hour + 2*time.Second))
	if err := module.Handler.Polls.ClosePoll(ctx, closed.PollID, "alice"); !errors.Is(err, domainerrors.ErrPollClosed) {
		t.Fatalf("close on expired poll: got %v, want ErrPollClosed", err)
	}
	stored, err = store.GetPoll(ctx, closed.PollID)
	if err != nil {
		t.Fatalf("get poll failed: %v", err)
	}
	if stored.Open {
		t.Fatalf("close did not settle expiry: poll still stored open")
	}

	closes := eventsOfType(t, store, commands.EventPollClosed)
	if len(closes) != 2 {
		t.Fatalf("close events = %d, want one per settled poll", len(closes))
	}
	for i, event := range closes {
		if event["reason"] != "expired" {
			t.Fatalf("closes[%d] reason = %v, want expired", i, event["reason"])
		}
	}
}

func TestDailyQuotaRollsOverAtUTCDay(t *testing.T) {
	module, store, base := newLedger(t)
	ctx := context.Background()

	if err := module.Handler.Governance.SetDailyLimit(ctx, testOperator, 2); err != nil {
		t.Fatalf("set daily limit failed: %v", err)
	}

	mustCreatePoll(t, module, "alice", 0, 0)
	mustCreatePoll(t, module, "alice", 0, 0)
	if _, err := module.Handler.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		Creator:  "alice",
		Question: "Third today?",
		Options:  []string{"yes", "no"},
	}); !errors.Is(err, domainerrors.ErrQuotaExceeded) {
		t.Fatalf("third create: got %v, want ErrQuotaExceeded", err)
	}

	// Other accounts have their own counter.
	mustCreatePoll(t, module, "bob", 0, 0)

	count, err := module.Handler.Queries.TodayCreationCount(ctx, "alice")
	if err != nil || count != 2 {
		t.Fatalf("today count = %d (%v), want 2", count, err)
	}

	// The next UTC day the counter starts fresh.
	store.SetNow(base.Add(24 * time.Hour))
	mustCreatePoll(t, module, "alice", 0, 0)
}

func TestAllowListedAccountBypassesQuota(t *testing.T) {
	module, _, _ := newLedger(t)
	ctx := context.Background()

	if err := module.Handler.Governance.SetDailyLimit(ctx, testOperator, 1); err != nil {
		t.Fatalf("set daily limit failed: %v", err)
	}
	if err := module.Handler.Governance.SetAllowListed(ctx, testOperator, "alice", true); err != nil {
		t.Fatalf("set allow list failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		mustCreatePoll(t, module, "alice", 0, 0)
	}
	mustCreatePoll(t, module, "bob", 0, 0)
	if _, err := module.Handler.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		Creator:  "bob",
		Question: "Second today?",
		Options:  []string{"yes", "no"},
	}); !errors.Is(err, domainerrors.ErrQuotaExceeded) {
		t.Fatalf("non-exempt account: got %v, want ErrQuotaExceeded", err)
	}
}

func TestPauseGatesCreateAndVote(t *testing.T) {
	module, _, _ := newLedger(t)
	ctx := context.Background()
	poll := mustCreatePoll(t, module, "alice", 0, 0)

	if err := module.Handler.Governance.SetPaused(ctx, testOperator, true); err != nil {
		t.Fatalf("pause failed: %v", err)
	}

	if _, err := module.Handler.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		Creator:  "bob",
		Question: "While paused?",
		Options:  []string{"yes", "no"},
	}); !errors.Is(err, domainerrors.ErrPaused) {
		t.Fatalf("create while paused: got %v, want ErrPaused", err)
	}
	if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		PollID: poll.PollID,
		Voter:  "bob",
	}); !errors.Is(err, domainerrors.ErrPaused) {
		t.Fatalf("vote while paused: got %v, want ErrPaused", err)
	}

	if err := module.Handler.Governance.SetPaused(ctx, testOperator, false); err != nil {
		t.Fatalf("unpause failed: %v", err)
	}
	mustCastVote(t, module, poll.PollID, "bob", 0, 0)
}
