package services

import (
	"math/bits"

	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
)

// SplitVoteFee divides a vote fee between the builder and the poll creator
// using the share frozen into the poll at creation. The builder cut is
// floor(fee * shareBps / 10000) computed through a 128-bit intermediate, so
// the multiply cannot overflow even with both factors near their maximum
// magnitudes. The creator receives the exact remainder, keeping
// builderCut + creatorCut == fee.
func SplitVoteFee(fee uint64, shareBps uint64) (builderCut uint64, creatorCut uint64) {
	if shareBps > entities.MaxBuilderShareBps {
		shareBps = entities.MaxBuilderShareBps
	}
	if fee == 0 || shareBps == 0 {
		return 0, fee
	}
	// shareBps < BpsDenominator guarantees the 128-bit quotient fits in 64
	// bits, which Div64 requires.
	hi, lo := bits.Mul64(fee, shareBps)
	builderCut, _ = bits.Div64(hi, lo, entities.BpsDenominator)
	return builderCut, fee - builderCut
}
