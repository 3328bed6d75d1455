package gateway

import "errors"

// Invocation errors form a closed taxonomy. Callers classify with errors.Is;
// the circuit breaker counts ErrTimeout and ErrRemoteUnavailable toward its
// failure threshold, while ErrRemoteRejected indicates a caller-side problem
// and is never counted or retried.
var (
	// ErrUnknownAction is returned when an action outside the closed set is
	// requested. No I/O is performed.
	ErrUnknownAction = errors.New("gateway: unknown action")

	// ErrInvalidPayload is returned when the payload fails schema validation
	// for the requested action. No I/O is performed.
	ErrInvalidPayload = errors.New("gateway: invalid payload")

	// ErrTimeout is returned when the invocation deadline elapses.
	ErrTimeout = errors.New("gateway: request timed out")

	// ErrRemoteRejected is returned when the provider rejects the request
	// (4xx-equivalent, or an envelope with success=false).
	ErrRemoteRejected = errors.New("gateway: request rejected by provider")

	// ErrRemoteUnavailable is returned on 5xx responses and transport errors.
	ErrRemoteUnavailable = errors.New("gateway: provider unavailable")
)

// Retryable reports whether an invocation error may be retried. Only
// transient provider failures qualify; rejections indicate a caller bug.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRemoteUnavailable)
}
