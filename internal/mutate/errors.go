package mutate

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned when an action is requested with no
// active session. The failure is immediate: no network call is issued
// and the cache is untouched.
var ErrUnauthenticated = errors.New("not authenticated")

// ValidationError rejects an intent before any optimistic projection,
// e.g. empty comment text or an out-of-range rating.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}
