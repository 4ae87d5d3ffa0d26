// internal/pkg/errs/errs.go
package errs

import "errors"

// Sentinel errors shared across domain services. Handlers translate these
// into HTTP statuses with errors.Is; services wrap them with context via
// fmt.Errorf("...: %w", ...).
var (
	// ErrNotFound covers unknown products, cart lines, orders, and intents.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument covers malformed input such as a non-positive
	// quantity or an empty cart at checkout.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrForbidden is returned when a caller touches a resource owned by
	// another user.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable signals that the payment gateway is not configured or
	// not reachable; the request is retryable once configuration is fixed.
	ErrUnavailable = errors.New("unavailable")

	// ErrVerificationFailed is terminal for a settlement attempt: the
	// signature or the intent correlation did not check out. The order
	// stays unpaid.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrAlreadyPaid rejects a second settlement with a different receipt.
	ErrAlreadyPaid = errors.New("already paid")
)
