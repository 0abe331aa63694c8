package services

import (
	"errors"
	"net/http"

	"github.com/ajramos/mailrag/internal/gmail"
)

// Standard service errors
var (
	// Network and connectivity errors
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrTimeout            = errors.New("operation timed out")
	ErrServiceUnavailable = errors.New("service unavailable")

	// Data errors
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input provided")

	// Identity errors
	ErrUserNotFound       = gmail.ErrUserNotFound
	ErrIdentityUnresolved = errors.New("backend user identity not resolved")

	// Inbox errors
	ErrStaleSelection = errors.New("selection changed before message loaded")
)

// classify maps a transport error onto a service sentinel while keeping the
// original error in the chain.
func classify(err error) error {
	fe, ok := gmail.IsFetchError(err)
	if !ok {
		return err
	}
	switch {
	case fe.Timeout:
		return &classifiedError{kind: ErrTimeout, err: err}
	case fe.Status == 0:
		return &classifiedError{kind: ErrNetworkUnavailable, err: err}
	case fe.Status == http.StatusNotFound:
		return &classifiedError{kind: ErrNotFound, err: err}
	case fe.Status >= 500:
		return &classifiedError{kind: ErrServiceUnavailable, err: err}
	}
	return err
}

type classifiedError struct {
	kind error
	err  error
}

func (e *classifiedError) Error() string { return e.err.Error() }

func (e *classifiedError) Unwrap() []error { return []error{e.kind, e.err} }

// IsRetryableError reports whether a user-triggered retry may succeed
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServiceUnavailable)
}

// IsPermanentError reports whether retrying cannot help
func IsPermanentError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrIdentityUnresolved)
}
