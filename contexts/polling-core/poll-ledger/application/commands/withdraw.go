package commands

import (
	"context"
	"log/slog"
	"strings"

	application "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application"
	domainerrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"
)

// WithdrawUseCase pays out accrued balances. The balance is captured and
// zeroed in a committed transaction before the outgoing transfer is issued,
// so a re-entrant call during the transfer always observes an empty balance.
// If the transfer itself fails the balance stays at zero and the caller sees
// ErrTransferFailed (fail-forward; the withdrawal event in the outbox is the
// reconciliation record).
type WithdrawUseCase struct {
	Store   ports.Store
	Payouts ports.PayoutGateway
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

// WithdrawCreatorFees pays the caller's accrued creator balance out.
func (uc WithdrawUseCase) WithdrawCreatorFees(ctx context.Context, caller string) (uint64, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return 0, domainerrors.ErrInvalidAccount
	}
	now := resolveNow(uc.Clock)

	var amount uint64
	err := uc.Store.InTx(ctx, func(repo ports.Repository) error {
		ledger, err := repo.GetAccount(ctx, caller)
		if err != nil {
			return err
		}
		if ledger.Withdrawable == 0 {
			return domainerrors.ErrNothingToWithdraw
		}
		amount = ledger.Withdrawable
		ledger.Account = caller
		ledger.Withdrawable = 0
		if err := repo.SaveAccount(ctx, ledger); err != nil {
			return err
		}
		return appendEvent(ctx, repo, uc.IDGen, EventCreatorWithdrawal, caller, now, map[string]any{
			"account": caller,
			"amount":  amount,
		})
	})
	if err != nil {
		return 0, err
	}

	if err := uc.Payouts.Transfer(ctx, caller, amount); err != nil {
		logger.Error("creator payout transfer failed",
			"event", "creator_withdrawal_transfer_failed",
			"module", "polling-core/poll-ledger",
			"layer", "application",
			"account", caller,
			"amount", amount,
			"error", err.Error(),
		)
		return 0, domainerrors.ErrTransferFailed
	}

	logger.Info("creator fees withdrawn",
		"event", "creator_withdrawal",
		"module", "polling-core/poll-ledger",
		"layer", "application",
		"account", caller,
		"amount", amount,
	)
	return amount, nil
}

// WithdrawBuilderFees pays the builder ledger out to the operator. Only the
// current operator may call it.
func (uc WithdrawUseCase) WithdrawBuilderFees(ctx context.Context, caller string) (uint64, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return 0, domainerrors.ErrInvalidAccount
	}
	now := resolveNow(uc.Clock)

	var amount uint64
	err := uc.Store.InTx(ctx, func(repo ports.Repository) error {
		cfg, err := repo.GetConfig(ctx)
		if err != nil {
			return err
		}
		if caller != cfg.Operator {
			return domainerrors.ErrNotOperator
		}
		builder, err := repo.GetBuilder(ctx)
		if err != nil {
			return err
		}
		if builder.Withdrawable == 0 {
			return domainerrors.ErrNothingToWithdraw
		}
		amount = builder.Withdrawable
		builder.Withdrawable = 0
		if err := repo.SaveBuilder(ctx, builder); err != nil {
			return err
		}
		return appendEvent(ctx, repo, uc.IDGen, EventBuilderWithdrawal, caller, now, map[string]any{
			"operator": caller,
			"amount":   amount,
		})
	})
	if err != nil {
		return 0, err
	}

	if err := uc.Payouts.Transfer(ctx, caller, amount); err != nil {
		logger.Error("builder payout transfer failed",
			"event", "builder_withdrawal_transfer_failed",
			"module", "polling-core/poll-ledger",
			"layer", "application",
			"operator", caller,
			"amount", amount,
			"error", err.Error(),
		)
		return 0, domainerrors.ErrTransferFailed
	}

	logger.Info("builder fees withdrawn",
		"event", "builder_withdrawal",
		"module", "polling-core/poll-ledger",
		"layer", "application",
		"operator", caller,
		"amount", amount,
	)
	return amount, nil
}
