package notifications

import (
	"errors"
	"fmt"

	"github.com/bissquit/incident-relay/internal/domain"
)

// Dispatch validation errors. These are the only errors Dispatch returns;
// per-channel failures are reported inside the result set instead.
var (
	ErrEmptyDispatch  = errors.New("dispatch requires at least one notification request")
	ErrMissingTarget  = errors.New("notification request is missing a target")
	ErrUnknownChannel = errors.New("unknown notification channel")
	ErrNoSender       = errors.New("no sender configured for channel")
	ErrUnknownStatus  = errors.New("unknown incident status")
)

// ChannelDeliveryError reports that one channel's send failed after the
// retry budget was exhausted or a permanent error occurred.
type ChannelDeliveryError struct {
	Channel domain.ChannelType
	Status  int
	Message string
}

func (e *ChannelDeliveryError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s delivery failed (%d): %s", e.Channel, e.Status, e.Message)
	}
	return fmt.Sprintf("%s delivery failed: %s", e.Channel, e.Message)
}

// RetryableError wraps a transient transport failure (connection error,
// timeout, 5xx, rate limit) that the router may retry.
type RetryableError struct {
	Status  int
	Message string
}

func (e *RetryableError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transport error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("transport error: %s", e.Message)
}

// IsRetryable marks the error as retryable.
func (e *RetryableError) IsRetryable() bool { return true }

// PermanentError wraps a failure that retrying cannot fix (4xx, malformed
// target, invalid credentials).
type PermanentError struct {
	Status  int
	Message string
}

func (e *PermanentError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("permanent error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("permanent error: %s", e.Message)
}

// IsRetryable marks the error as non-retryable.
func (e *PermanentError) IsRetryable() bool { return false }

// isRetryable checks if an error advertises retryability. Unknown errors
// default to retryable so flaky transports get their retry budget.
func isRetryable(err error) bool {
	type retryable interface {
		IsRetryable() bool
	}
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return true
}
