package errors

import "errors"

var (
	ErrPaused        = errors.New("ledger is paused")
	ErrQuotaExceeded = errors.New("daily poll creation quota exceeded")

	ErrInvalidAccount      = errors.New("account identity is required")
	ErrInvalidQuestion     = errors.New("poll question length is invalid")
	ErrInvalidOptions      = errors.New("poll options are invalid")
	ErrInvalidFee          = errors.New("fee per vote exceeds the allowed cap")
	ErrInvalidDuration     = errors.New("poll duration is invalid")
	ErrSponsorRequired     = errors.New("sponsor fee requires a sponsor account")
	ErrInsufficientPayment = errors.New("payment does not cover creation fees")

	ErrPollNotFound = errors.New("poll not found")
	ErrNotCreator   = errors.New("caller is not the poll creator")
	ErrPollClosed   = errors.New("poll is closed")
	ErrPollHasVotes = errors.New("poll already has votes")

	ErrInvalidOption = errors.New("option index is out of range")
	ErrAlreadyVoted  = errors.New("account already voted on this poll")
	ErrWrongPayment  = errors.New("payment must equal the poll vote fee exactly")

	ErrNothingToWithdraw = errors.New("nothing to withdraw")
	ErrTransferFailed    = errors.New("outgoing value transfer failed")

	ErrNotOperator        = errors.New("caller is not the operator")
	ErrNotPendingOperator = errors.New("caller is not the pending operator")
	ErrInvalidConfig      = errors.New("configuration value is invalid")
)
