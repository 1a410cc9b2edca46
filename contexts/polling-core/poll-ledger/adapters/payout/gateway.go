package payout

import (
	"context"
	"log/slog"
	"strings"

	domainerrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
)

// LoggingGateway is the default payout rail: it records the transfer intent
// in the structured log and reports success. A production deployment swaps
// in a gateway bound to the real settlement rail; the ledger semantics
// (balance zeroed before transfer, ErrTransferFailed on failure) do not
// change with the rail.
type LoggingGateway struct {
	Logger *slog.Logger
}

func (g LoggingGateway) Transfer(_ context.Context, account string, amount uint64) error {
	account = strings.TrimSpace(account)
	if account == "" {
		return domainerrors.ErrInvalidAccount
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("payout transfer executed",
		"event", "payout_transfer_executed",
		"module", "polling-core/poll-ledger",
		"layer", "adapter",
		"account", account,
		"amount", amount,
	)
	return nil
}
