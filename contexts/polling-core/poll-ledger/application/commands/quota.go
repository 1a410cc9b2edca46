package commands

import (
	"context"
	"time"

	domainerrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"
)

const secondsPerDay = 86400

// DayIndexFor buckets an instant into the calendar-day key used by the
// creation quota. Counters are keyed by (account, day index) and never
// reset; a new day simply uses a new key.
func DayIndexFor(now time.Time) int64 {
	return now.UTC().Unix() / secondsPerDay
}

// checkAndConsumeQuota enforces the per-day creation limit. Allow-listed
// accounts pass unconditionally with no bookkeeping; everyone else consumes
// one unit of today's counter or fails when the limit is already reached.
// Runs inside the creation transaction, so a later validation failure also
// rolls the consumed unit back.
func checkAndConsumeQuota(
	ctx context.Context,
	repo ports.Repository,
	account string,
	now time.Time,
	limit int,
) error {
	allowed, err := repo.IsAllowListed(ctx, account)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}
	day := DayIndexFor(now)
	count, err := repo.QuotaCount(ctx, account, day)
	if err != nil {
		return err
	}
	if count >= limit {
		return domainerrors.ErrQuotaExceeded
	}
	return repo.IncrementQuota(ctx, account, day)
}
