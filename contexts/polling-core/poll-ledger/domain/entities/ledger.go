package entities

import "time"

// Tier is the reputation classification of a creator, derived purely from
// the cumulative vote count across all their polls.
type Tier int

const (
	TierNone Tier = iota
	TierBronze
	TierSilver
	TierGold
	TierDiamond
)

func (t Tier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierDiamond:
		return "diamond"
	default:
		return "none"
	}
}

// VoteRecord marks that an account voted on a poll. Existence keyed by
// (PollID, Voter) is the permanent has-voted flag; records are never
// removed.
type VoteRecord struct {
	PollID      uint64
	Voter       string
	OptionIndex int
	CastAt      time.Time
}

// AccountLedger tracks a creator's withdrawable balance, lifetime vote
// intake, derived tier and the ids of every poll they created.
type AccountLedger struct {
	Account            string
	Withdrawable       uint64
	TotalVotesReceived uint64
	Tier               Tier
	PollIDs            []uint64
}

func (l AccountLedger) Clone() AccountLedger {
	out := l
	out.PollIDs = append([]uint64(nil), l.PollIDs...)
	return out
}

// BuilderLedger is the singleton platform-operator ledger. It accrues
// creation fees, sponsor fees and the builder cut of every vote fee.
type BuilderLedger struct {
	Withdrawable uint64
	CreateFees   uint64
	SponsorFees  uint64
	VoteFeeCuts  uint64
}

// LedgerConfig is the mutable global configuration. BuilderShareBps is read
// once at poll creation and copied into the poll; later updates never touch
// existing polls.
type LedgerConfig struct {
	CreateFee       uint64
	BuilderShareBps uint64
	DailyLimit      int
	Paused          bool
	Operator        string
	PendingOperator string
}
