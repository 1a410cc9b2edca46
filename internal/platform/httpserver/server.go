package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	pollledger "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger"
	ledgerhttp "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/adrianocaiafa/onchain-polls/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	ledger pollledger.Module
}

func New(ledger pollledger.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		ledger: ledger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for httptest-based tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/polls", s.handleCreatePoll)
	s.mux.HandleFunc("GET /v1/polls", s.handleListPolls)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}", s.handleGetPoll)
	s.mux.HandleFunc("PUT /v1/polls/{poll_id}", s.handleEditPoll)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/close", s.handleClosePoll)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/status", s.handlePollStatus)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/options", s.handleListOptions)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/options/{index}", s.handleGetOption)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/votes", s.handleCastVote)

	s.mux.HandleFunc("GET /v1/creators/{account}/polls", s.handleCreatorPolls)
	s.mux.HandleFunc("GET /v1/creators/{account}/stats", s.handleCreatorStats)
	s.mux.HandleFunc("GET /v1/creators/{account}/quota", s.handleQuota)

	s.mux.HandleFunc("POST /v1/withdrawals/creator", s.handleWithdrawCreator)
	s.mux.HandleFunc("POST /v1/withdrawals/builder", s.handleWithdrawBuilder)

	s.mux.HandleFunc("PUT /v1/admin/fees", s.handleSetFees)
	s.mux.HandleFunc("PUT /v1/admin/paused", s.handleSetPaused)
	s.mux.HandleFunc("PUT /v1/admin/daily-limit", s.handleSetDailyLimit)
	s.mux.HandleFunc("PUT /v1/admin/allowlist", s.handleSetAllowList)
	s.mux.HandleFunc("POST /v1/admin/operator", s.handleProposeOperator)
	s.mux.HandleFunc("POST /v1/admin/operator/accept", s.handleAcceptOperator)
}

func writeLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
