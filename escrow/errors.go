package escrow

import "errors"

var (
	// ErrMalformedOrder is returned before any on-chain call when an order or
	// its timelocks are unusable. It is never retried.
	ErrMalformedOrder = errors.New("malformed order")

	ErrTooEarly          = errors.New("too early")
	ErrTooLate           = errors.New("too late")
	ErrInvalidSecret     = errors.New("invalid secret")
	ErrInvalidCaller     = errors.New("invalid caller")
	ErrAlreadyFinalized  = errors.New("escrow already finalized")
	ErrAlreadyAnchored   = errors.New("timelocks already anchored")
	ErrNotAnchored       = errors.New("timelocks not anchored")
	ErrUnsupportedAction = errors.New("action not supported on this side")

	ErrDuplicateEscrow      = errors.New("escrow already exists for order and side")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInsufficientApproval = errors.New("insufficient approval")
	ErrInvalidSignature     = errors.New("invalid order signature")
	ErrOrderFilled          = errors.New("order already filled")
	ErrEscrowNotFound       = errors.New("escrow not found")
	ErrInvalidCreationTime  = errors.New("invalid creation time")
)

// IsRecoverable reports whether the orchestrator may wait, remediate and try
// again. Phase guards and funding problems are recoverable; secret mismatches,
// malformed orders and duplicate escrows are not.
func IsRecoverable(err error) bool {
	switch {
	case errors.Is(err, ErrTooEarly),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInsufficientApproval):
		return true
	default:
		return false
	}
}
