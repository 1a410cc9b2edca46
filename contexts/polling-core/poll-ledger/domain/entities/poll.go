package entities

import "time"

// Validation limits for poll content and pricing. These are protocol
// constants, not configuration: they are the same for every poll ever
// created.
const (
	MinQuestionLen = 1
	MaxQuestionLen = 280
	MinOptionCount = 2
	MaxOptionCount = 10
	MaxOptionLen   = 100

	// MinPollDuration is the shortest non-zero lifetime a poll may have.
	// Zero duration means the poll never expires.
	MinPollDuration = 60 * time.Second

	// MaxFeePerVote caps the per-vote price in native base units.
	MaxFeePerVote = uint64(1_000_000_000_000)

	// BpsDenominator is the basis-point denominator for the builder share.
	// MaxBuilderShareBps limits the builder to at most 10% of a vote fee.
	BpsDenominator     = uint64(10_000)
	MaxBuilderShareBps = uint64(1_000)
)

// Poll is the ledger record for one poll. Counts and fee totals only ever
// grow; Options and VoteCounts stay index-aligned at all times.
type Poll struct {
	PollID   uint64
	Creator  string
	Question string

	Options    []string
	VoteCounts []uint64
	TotalVotes uint64

	Open      bool
	CreatedAt time.Time
	ClosedAt  time.Time
	// EndTime is the expiry instant; the zero value means no expiry.
	EndTime time.Time

	FeePerVote uint64
	// BuilderShareBps is the basis-point share copied from the global
	// configuration when the poll was created. It is never re-read from the
	// live configuration afterwards.
	BuilderShareBps uint64

	// Running fee totals for this poll. TotalVoteFees always equals
	// BuilderFees + CreatorFees.
	TotalVoteFees uint64
	BuilderFees   uint64
	CreatorFees   uint64

	Sponsor    string
	SponsorFee uint64

	// ContentHash is an informational fingerprint of creator, creation time,
	// question and id.
	ContentHash string
}

// OpenAt reports the live open status at the given instant. The stored flag
// can lag behind expiry because the closed transition is written lazily on
// the next mutating touch, so reads combine the flag with the time check.
func (p Poll) OpenAt(now time.Time) bool {
	if !p.Open {
		return false
	}
	return p.EndTime.IsZero() || !now.After(p.EndTime)
}

// ExpiredAt reports whether the poll outlived its end time while the stored
// flag still reads open.
func (p Poll) ExpiredAt(now time.Time) bool {
	return p.Open && !p.EndTime.IsZero() && now.After(p.EndTime)
}

// Clone returns a deep copy so callers can mutate option and count slices
// without aliasing stored state.
func (p Poll) Clone() Poll {
	out := p
	out.Options = append([]string(nil), p.Options...)
	out.VoteCounts = append([]uint64(nil), p.VoteCounts...)
	return out
}
