package services

import "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"

// Tier thresholds in cumulative votes received.
const (
	bronzeThreshold  = 100
	silverThreshold  = 200
	goldThreshold    = 500
	diamondThreshold = 1000
)

// TierFor maps a creator's cumulative vote intake to a reputation tier.
// Vote totals never decrease, so the derived tier is monotone over time.
func TierFor(votesReceived uint64) entities.Tier {
	switch {
	case votesReceived >= diamondThreshold:
		return entities.TierDiamond
	case votesReceived >= goldThreshold:
		return entities.TierGold
	case votesReceived >= silverThreshold:
		return entities.TierSilver
	case votesReceived >= bronzeThreshold:
		return entities.TierBronze
	default:
		return entities.TierNone
	}
}
