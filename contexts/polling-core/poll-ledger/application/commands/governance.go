package commands

import (
	"context"
	"log/slog"
	"strings"

	application "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
	domainerrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"
)

// GovernanceUseCase owns the operator-only parameter surface: fee rates, the
// pause switch, the daily creation limit, the allow-list, and the two-step
// operator transfer handshake. Rate changes never touch the share copies
// frozen into existing polls.
type GovernanceUseCase struct {
	Store  ports.Store
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc GovernanceUseCase) SetFees(ctx context.Context, caller string, createFee uint64, builderShareBps uint64) error {
	caller = strings.TrimSpace(caller)
	now := resolveNow(uc.Clock)
	err := uc.Store.InTx(ctx, func(repo ports.Repository) error {
		cfg, err := requireOperator(ctx, repo, caller)
		if err != nil {
			return err
		}
		if builderShareBps > entities.MaxBuilderShareBps {
			return domainerrors.ErrInvalidConfig
		}
		cfg.CreateFee = createFee
		cfg.BuilderShareBps = builderShareBps
		if err := repo.SaveConfig(ctx, cfg); err != nil {
			return err
		}
		return appendEvent(ctx, repo, uc.IDGen, EventFeesUpdated, caller, now, map[string]any{
			"create_fee":        createFee,
			"builder_share_bps": builderShareBps,
		})
	})
	if err != nil {
		return err
	}
	uc.logChange("fees updated", "fees_updated", "create_fee", createFee, "builder_share_bps", builderShareBps)
	return nil
}

func (uc GovernanceUseCase) SetPendingOperator(ctx context.Context, caller string, pending string) error {
	caller = strings.TrimSpace(caller)
	pending = strings.TrimSpace(pending)
	if pending == "" {
		return domainerrors.ErrInvalidAccount
	}
	now := resolveNow(uc.Clock)
	err := uc.Store.InTx(ctx, func(repo ports.Repository) error {
		cfg, err := requireOperator(ctx, repo, caller)
		if err != nil {
			return err
		}
		cfg.PendingOperator = pending
		if err := repo.SaveConfig(ctx, cfg); err != nil {
			return err
		}
		return appendEvent(ctx, repo, uc.IDGen, EventOperatorProposed, caller, now, map[string]any{
			"operator":         caller,
			"pending_operator": pending,
		})
	})
	if err != nil {
		return err
	}
	uc.logChange("operator transfer proposed", "operator_proposed", "pending_operator", pending)
	return nil
}

func (uc GovernanceUseCase) AcceptOperator(ctx context.Context, caller string) error {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return domainerrors.ErrInvalidAccount
	}
	now := resolveNow(uc.Clock)
	err := uc.Store.InTx(ctx, func(repo ports.Repository) error {
		cfg, err := repo.GetConfig(ctx)
		if err != nil {
			return err
		}
		if cfg.PendingOperator == "" || caller != cfg.PendingOperator {
			return domainerrors.ErrNotPendingOperator
		}
		cfg.Operator = caller
		cfg.PendingOperator = ""
		if err := repo.SaveConfig(ctx, cfg); err != nil {
			return err
		}
		return appendEvent(ctx, repo, uc.IDGen, EventOperatorAccepted, caller, now, map[string]any{
			"operator": caller,
		})
	})
	if err != nil {
		return err
	}
	uc.logChange("operator transfer accepted", "operator_accepted", "operator", caller)
	return nil
}

func (uc GovernanceUseCase) SetPaused(ctx context.Context, caller string, paused bool) error {
	caller = strings.TrimSpace(caller)
	now := resolveNow(uc.Clock)
	err := uc.Store.InTx(ctx, func(repo ports.Repository) error {
		cfg, err := requireOperator(ctx, repo, caller)
		if err != nil {
			return err
		}
		cfg.Paused = paused
		if err := repo.SaveConfig(ctx, cfg); err != nil {
			return err
		}
		return appendEvent(ctx, repo, uc.IDGen, EventPauseToggled, caller, now, map[string]any{
			"paused": paused,
		})
	})
	if err != nil {
		return err
	}
	uc.logChange("pause toggled", "pause_toggled", "paused", paused)
	return nil
}

func (uc GovernanceUseCase) SetDailyLimit(ctx context.Context, caller string, limit int) error {
	caller = strings.TrimSpace(caller)
	now := resolveNow(uc.Clock)
	err := uc.Store.InTx(ctx, func(repo ports.Repository) error {
		cfg, err := requireOperator(ctx, repo, caller)
		if err != nil {
			return err
		}
		if limit < 1 {
			return domainerrors.ErrInvalidConfig
		}
		cfg.DailyLimit = limit
		if err := repo.SaveConfig(ctx, cfg); err != nil {
			return err
		}
		return appendEvent(ctx, repo, uc.IDGen, EventDailyLimitUpdated, caller, now, map[string]any{
			"daily_limit": limit,
		})
	})
	if err != nil {
		return err
	}
	uc.logChange("daily limit updated", "daily_limit_updated", "daily_limit", limit)
	return nil
}

func (uc GovernanceUseCase) SetAllowListed(ctx context.Context, caller string, account string, allowed bool) error {
	caller = strings.TrimSpace(caller)
	account = strings.TrimSpace(account)
	if account == "" {
		return domainerrors.ErrInvalidAccount
	}
	now := resolveNow(uc.Clock)
	err := uc.Store.InTx(ctx, func(repo ports.Repository) error {
		if _, err := requireOperator(ctx, repo, caller); err != nil {
			return err
		}
		if err := repo.SetAllowListed(ctx, account, allowed); err != nil {
			return err
		}
		return appendEvent(ctx, repo, uc.IDGen, EventAllowListUpdated, account, now, map[string]any{
			"account": account,
			"allowed": allowed,
		})
	})
	if err != nil {
		return err
	}
	uc.logChange("allow-list updated", "allowlist_updated", "account", account, "allowed", allowed)
	return nil
}

func requireOperator(ctx context.Context, repo ports.Repository, caller string) (entities.LedgerConfig, error) {
	cfg, err := repo.GetConfig(ctx)
	if err != nil {
		return entities.LedgerConfig{}, err
	}
	if caller == "" || caller != cfg.Operator {
		return entities.LedgerConfig{}, domainerrors.ErrNotOperator
	}
	return cfg, nil
}

func (uc GovernanceUseCase) logChange(msg string, event string, args ...any) {
	fields := append([]any{
		"event", event,
		"module", "polling-core/poll-ledger",
		"layer", "application",
	}, args...)
	application.ResolveLogger(uc.Logger).Info(msg, fields...)
}
