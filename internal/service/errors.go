package service

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransaction is returned by the analyzer on malformed input:
// a negative amount or an unknown transaction type.
var ErrInvalidTransaction = errors.New("invalid transaction")

// ThrottledError is returned by Generate when the user already has a valid
// recommendation and force was not set. RetryAfter is the moment the current
// recommendation expires and generation becomes possible again.
type ThrottledError struct {
	RetryAfter time.Time
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("cannot generate recommendation yet, retry after %s", e.RetryAfter.Format(time.RFC3339))
}

// IsThrottled unwraps err as a *ThrottledError.
func IsThrottled(err error) (*ThrottledError, bool) {
	var throttled *ThrottledError
	if errors.As(err, &throttled) {
		return throttled, true
	}
	return nil, false
}
