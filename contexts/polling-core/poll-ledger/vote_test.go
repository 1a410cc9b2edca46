package pollledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application/commands"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
	domainerrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
)

func TestCastVoteSplitsFeeAtFrozenShare(t *testing.T) {
	module, store, _ := newLedger(t)
	ctx := context.Background()

	// Default share is 250 bps: a 100-unit fee splits 2 to the builder,
	// 98 to the creator.
	poll := mustCreatePoll(t, module, "alice", 100, 0)
	result := mustCastVote(t, module, poll.PollID, "bob", 1, 100)
	if result.BuilderCut != 2 || result.CreatorCut != 98 {
		t.Fatalf("split = (%d, %d), want (2, 98)", result.BuilderCut, result.CreatorCut)
	}

	creator, err := store.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if creator.Withdrawable != 98 || creator.TotalVotesReceived != 1 {
		t.Fatalf("creator ledger = %+v, want 98 withdrawable and 1 vote", creator)
	}
	builder, err := store.GetBuilder(ctx)
	if err != nil {
		t.Fatalf("get builder failed: %v", err)
	}
	if builder.Withdrawable != 2 || builder.VoteFeeCuts != 2 {
		t.Fatalf("builder ledger = %+v, want 2 from vote cuts", builder)
	}

	stored, err := store.GetPoll(ctx, poll.PollID)
	if err != nil {
		t.Fatalf("get poll failed: %v", err)
	}
	if stored.TotalVoteFees != 100 || stored.BuilderFees != 2 || stored.CreatorFees != 98 {
		t.Fatalf("poll fee totals = %d/%d/%d, want 100/2/98",
			stored.TotalVoteFees, stored.BuilderFees, stored.CreatorFees)
	}
	if stored.VoteCounts[1] != 1 || stored.TotalVotes != 1 {
		t.Fatalf("counts not updated: %+v", stored.VoteCounts)
	}
}

func TestCastVoteRequiresExactPayment(t *testing.T) {
	module, _, _ := newLedger(t)
	ctx := context.Background()
	paid := mustCreatePoll(t, module, "alice", 100, 0)
	free := mustCreatePoll(t, module, "alice", 0, 0)

	for _, payment := range []uint64{0, 99, 101} {
		if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
			PollID:  paid.PollID,
			Voter:   "bob",
			Payment: payment,
		}); !errors.Is(err, domainerrors.ErrWrongPayment) {
			t.Fatalf("payment %d: got %v, want ErrWrongPayment", payment, err)
		}
	}
	if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		PollID:  free.PollID,
		Voter:   "bob",
		Payment: 1,
	}); !errors.Is(err, domainerrors.ErrWrongPayment) {
		t.Fatalf("overpay on free poll: got %v, want ErrWrongPayment", err)
	}
	mustCastVote(t, module, free.PollID, "bob", 0, 0)
}

func TestCastVoteRejectsDuplicateAndBadOption(t *testing.T) {
	module, store, _ := newLedger(t)
	ctx := context.Background()
	poll := mustCreatePoll(t, module, "alice", 0, 0)

	if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		PollID:      poll.PollID,
		Voter:       "bob",
		OptionIndex: 2,
	}); !errors.Is(err, domainerrors.ErrInvalidOption) {
		t.Fatalf("out-of-range option: got %v, want ErrInvalidOption", err)
	}
	if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		PollID:      poll.PollID,
		Voter:       "bob",
		OptionIndex: -1,
	}); !errors.Is(err, domainerrors.ErrInvalidOption) {
		t.Fatalf("negative option: got %v, want ErrInvalidOption", err)
	}

	mustCastVote(t, module, poll.PollID, "bob", 0, 0)
	if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		PollID: poll.PollID,
		Voter:  "bob",
	}); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("duplicate vote: got %v, want ErrAlreadyVoted", err)
	}

	stored, err := store.GetPoll(ctx, poll.PollID)
	if err != nil {
		t.Fatalf("get poll failed: %v", err)
	}
	var sum uint64
	for _, count := range stored.VoteCounts {
		sum += count
	}
	if sum != stored.TotalVotes || stored.TotalVotes != 1 {
		t.Fatalf("count identity broken: sum %d, total %d", sum, stored.TotalVotes)
	}
}

func TestFrozenShareSurvivesFeeChanges(t *testing.T) {
	module, _, _ := newLedger(t)
	ctx := context.Background()

	before := mustCreatePoll(t, module, "alice", 10_000, 0)
	if err := module.Handler.Governance.SetFees(ctx, testOperator, 0, 1000); err != nil {
		t.Fatalf("set fees failed: %v", err)
	}
	after := mustCreatePoll(t, module, "alice", 10_000, 0)

	// The earlier poll keeps its creation-time share; the later poll froze
	// the new one.
	oldSplit := mustCastVote(t, module, before.PollID, "bob", 0, 10_000)
	if oldSplit.BuilderCut != 250 {
		t.Fatalf("pre-change poll builder cut = %d, want 250", oldSplit.BuilderCut)
	}
	newSplit := mustCastVote(t, module, after.PollID, "bob", 0, 10_000)
	if newSplit.BuilderCut != 1000 {
		t.Fatalf("post-change poll builder cut = %d, want 1000", newSplit.BuilderCut)
	}
}

func TestTierWalkEmitsExactlyOneEventPerThreshold(t *testing.T) {
	module, store, _ := newLedger(t)
	ctx := context.Background()

	// Spread alice's votes across polls so the walk does not hit the
	// one-vote-per-account guard.
	var polls []entities.Poll
	for i := 0; i < 2; i++ {
		polls = append(polls, mustCreatePoll(t, module, "alice", 0, 0))
	}

	tierAt := func(votes uint64) entities.Tier {
		account, err := store.GetAccount(ctx, "alice")
		if err != nil {
			t.Fatalf("get account failed: %v", err)
		}
		if account.TotalVotesReceived != votes {
			t.Fatalf("vote total = %d, want %d", account.TotalVotesReceived, votes)
		}
		return account.Tier
	}

	cast := func(from, to uint64) {
		for i := from; i < to; i++ {
			voter := fmt.Sprintf("voter-%04d", i)
			mustCastVote(t, module, polls[i%2].PollID, voter, 0, 0)
		}
	}

	cast(0, 99)
	if got := tierAt(99); got != entities.TierNone {
		t.Fatalf("tier at 99 = %v, want none", got)
	}
	cast(99, 100)
	if got := tierAt(100); got != entities.TierBronze {
		t.Fatalf("tier at 100 = %v, want bronze", got)
	}
	cast(100, 150)
	if got := tierAt(150); got != entities.TierBronze {
		t.Fatalf("tier at 150 = %v, want bronze still", got)
	}
	cast(150, 200)
	if got := tierAt(200); got != entities.TierSilver {
		t.Fatalf("tier at 200 = %v, want silver", got)
	}
	cast(200, 500)
	if got := tierAt(500); got != entities.TierGold {
		t.Fatalf("tier at 500 = %v, want gold", got)
	}
	cast(500, 1000)
	if got := tierAt(1000); got != entities.TierDiamond {
		t.Fatalf("tier at 1000 = %v, want diamond", got)
	}

	changes := eventsOfType(t, store, commands.EventTierChanged)
	if len(changes) != 4 {
		t.Fatalf("tier change events = %d, want exactly 4 (one per threshold)", len(changes))
	}
	wantTiers := []string{"bronze", "silver", "gold", "diamond"}
	for i, change := range changes {
		if change["tier_name"] != wantTiers[i] {
			t.Fatalf("change %d tier = %v, want %s", i, change["tier_name"], wantTiers[i])
		}
	}
}

func TestVoteEventCarriesSettlement(t *testing.T) {
	module, store, _ := newLedger(t)
	poll := mustCreatePoll(t, module, "alice", 100, 0)
	mustCastVote(t, module, poll.PollID, "bob", 1, 100)

	votes := eventsOfType(t, store, commands.EventVoteCast)
	if len(votes) != 1 {
		t.Fatalf("vote events = %d, want 1", len(votes))
	}
	if votes[0]["builder_cut"] != float64(2) || votes[0]["creator_cut"] != float64(98) {
		t.Fatalf("vote event settlement = %v/%v, want 2/98", votes[0]["builder_cut"], votes[0]["creator_cut"])
	}
}
