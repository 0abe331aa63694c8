package gmail

import (
	"errors"
	"fmt"
)

// FetchError describes a failed backend call. Status is 0 when no HTTP
// response was received (network failure or timeout).
type FetchError struct {
	Op      string
	Status  int
	Body    string
	Timeout bool
	Err     error
}

func (e *FetchError) Error() string {
	if e.Body == "" && e.Err != nil {
		return fmt.Sprintf("%s failed (%d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s failed (%d): %s", e.Op, e.Status, e.Body)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err wraps a FetchError and returns it
func IsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// ErrUserNotFound is returned when the backend has no user for an email
var ErrUserNotFound = errors.New("user not found")
