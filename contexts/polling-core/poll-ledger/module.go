package pollledger

import (
	"log/slog"

	httpadapter "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/adapters/http"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/adapters/memory"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application/commands"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/application/queries"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Store   ports.Store
	Payouts ports.PayoutGateway
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

func NewModule(deps Dependencies) Module {
	pollUseCase := commands.PollUseCase{
		Store:  deps.Store,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		Store:  deps.Store,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	withdrawUseCase := commands.WithdrawUseCase{
		Store:   deps.Store,
		Payouts: deps.Payouts,
		Clock:   deps.Clock,
		IDGen:   deps.IDGen,
		Logger:  deps.Logger,
	}
	governanceUseCase := commands.GovernanceUseCase{
		Store:  deps.Store,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	ledgerQueries := queries.LedgerQueries{
		Store: deps.Store,
		Clock: deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Polls:       pollUseCase,
			Votes:       voteUseCase,
			Withdrawals: withdrawUseCase,
			Governance:  governanceUseCase,
			Queries:     ledgerQueries,
			Logger:      deps.Logger,
		},
	}
}

// NewInMemoryModule wires the whole service against one memory.Store, which
// doubles as the clock, id generator and payout journal. Used by tests and
// by the API when no database is configured.
func NewInMemoryModule(operator string, logger *slog.Logger) Module {
	store := memory.NewStore(operator)
	module := NewModule(Dependencies{
		Store:   store,
		Payouts: store,
		Clock:   store,
		IDGen:   store,
		Logger:  logger,
	})
	module.Store = store
	return module
}
