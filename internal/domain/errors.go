package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSession indicates the shopper session is unknown or expired.
	ErrInvalidSession = errors.New("invalid session")
	// ErrIdentityUnavailable indicates there is no authenticated user/company to own an order.
	ErrIdentityUnavailable = errors.New("identity unavailable")
	// ErrNoActiveOrder indicates an operation needed a working order but none is cached.
	ErrNoActiveOrder = errors.New("no active order")
	// ErrSessionReset indicates the session cache changed underneath an operation, e.g. by logout.
	ErrSessionReset = errors.New("session changed during operation")
	// ErrTransient marks failures without definitive meaning; the caller may retry.
	ErrTransient = errors.New("transient failure")
	// ErrMutationRejected marks a refused add/update/delete of a line item.
	ErrMutationRejected = errors.New("cart change rejected")
	// ErrSubmissionFailed marks a refused or failed order submission.
	ErrSubmissionFailed = errors.New("order submission failed")
)

// ErrorKind classifies a remote store failure.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindNotFound
	KindBadRequest
	KindUnauthorized
	KindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindRejected:
		return "rejected"
	default:
		return "transient"
	}
}

// RemoteError is a structured failure reported by the remote order store.
type RemoteError struct {
	Kind       ErrorKind
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote %s: %s", e.Kind, msg)
	}
	if e.Code != "" {
		return fmt.Sprintf("remote %s (%d %s): %s", e.Kind, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("remote %s (%d): %s", e.Kind, e.StatusCode, msg)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// RemoteKind extracts the kind of a remote failure. Errors that are not
// RemoteErrors are treated as transient.
func RemoteKind(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindTransient
}

// IsRemoteKind reports whether err is a RemoteError of one of the given kinds.
func IsRemoteKind(err error, kinds ...ErrorKind) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return false
	}
	for _, k := range kinds {
		if re.Kind == k {
			return true
		}
	}
	return false
}
