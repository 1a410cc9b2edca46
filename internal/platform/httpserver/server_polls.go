package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	ledgererrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
	ledgerhttp "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/transport/http"
)

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	var req ledgerhttp.CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.CreatePollHandler(r.Context(), caller, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.ListPollsHandler(r.Context())
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.GetPollHandler(r.Context(), pollID)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEditPoll(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}
	var req ledgerhttp.EditPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.EditPollHandler(r.Context(), caller, pollID, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClosePoll(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.ClosePollHandler(r.Context(), caller, pollID)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePollStatus(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.PollStatusHandler(r.Context(), pollID)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListOptions(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.ListOptionsHandler(r.Context(), pollID)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOption(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_option_index", "option index must be an integer")
		return
	}
	resp, err := s.ledger.Handler.GetOptionHandler(r.Context(), pollID, index)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}
	var req ledgerhttp.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.CastVoteHandler(r.Context(), caller, pollID, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCreatorPolls(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	resp, err := s.ledger.Handler.CreatorPollsHandler(r.Context(), account)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatorStats(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	resp, err := s.ledger.Handler.CreatorStatsHandler(r.Context(), account)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	resp, err := s.ledger.Handler.QuotaHandler(r.Context(), account)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdrawCreator(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.WithdrawCreatorHandler(r.Context(), caller)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdrawBuilder(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.WithdrawBuilderHandler(r.Context(), caller)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := r.Header.Get("X-User-Id")
	if caller == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return caller, true
}

func parsePollID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	pollID, err := strconv.ParseUint(r.PathValue("poll_id"), 10, 64)
	if err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_poll_id", "poll id must be an unsigned integer")
		return 0, false
	}
	return pollID, true
}

func writeLedgerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgererrors.ErrInvalidAccount),
		errors.Is(err, ledgererrors.ErrInvalidQuestion),
		errors.Is(err, ledgererrors.ErrInvalidOptions),
		errors.Is(err, ledgererrors.ErrInvalidFee),
		errors.Is(err, ledgererrors.ErrInvalidDuration),
		errors.Is(err, ledgererrors.ErrSponsorRequired),
		errors.Is(err, ledgererrors.ErrInsufficientPayment),
		errors.Is(err, ledgererrors.ErrWrongPayment),
		errors.Is(err, ledgererrors.ErrInvalidOption),
		errors.Is(err, ledgererrors.ErrInvalidConfig):
		writeLedgerError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ledgererrors.ErrNotCreator),
		errors.Is(err, ledgererrors.ErrNotOperator),
		errors.Is(err, ledgererrors.ErrNotPendingOperator):
		writeLedgerError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ledgererrors.ErrPollNotFound):
		writeLedgerError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, ledgererrors.ErrPollClosed),
		errors.Is(err, ledgererrors.ErrPollHasVotes),
		errors.Is(err, ledgererrors.ErrAlreadyVoted),
		errors.Is(err, ledgererrors.ErrQuotaExceeded),
		errors.Is(err, ledgererrors.ErrNothingToWithdraw):
		writeLedgerError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, ledgererrors.ErrPaused):
		writeLedgerError(w, http.StatusServiceUnavailable, "paused", err.Error())
	case errors.Is(err, ledgererrors.ErrTransferFailed):
		writeLedgerError(w, http.StatusBadGateway, "transfer_failed", err.Error())
	default:
		writeLedgerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
