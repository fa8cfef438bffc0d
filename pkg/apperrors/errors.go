package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrLastAdmin      = errors.New("cannot remove last admin")
	ErrUnknownDomain  = errors.New("unknown domain")
	ErrNotInitialized = errors.New("database not initialized")
	ErrRegistryClosed = errors.New("registry closed during initialization")
)

// ConnectionError reports that a store could not be reached or opened.
// Timeout is set when the failure was a deadline rather than a refusal.
type ConnectionError struct {
	Engine  string
	Op      string
	Timeout bool
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s timed out: %v", e.Op, e.Engine, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Engine, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryErrorKind tells the HTTP boundary how a failed statement should be reported.
type QueryErrorKind int

const (
	QueryInternal QueryErrorKind = iota
	QueryBadRequest
	QueryConflict
	QueryTimeout
	QueryUnavailable
)

func (k QueryErrorKind) String() string {
	switch k {
	case QueryBadRequest:
		return "bad_request"
	case QueryConflict:
		return "conflict"
	case QueryTimeout:
		return "timeout"
	case QueryUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// QueryError is a single statement failure. It never invalidates the handle.
type QueryError struct {
	Kind QueryErrorKind
	Err  error
}

// NewQueryError wraps err with kind.
func NewQueryError(kind QueryErrorKind, err error) *QueryError {
	return &QueryError{Kind: kind, Err: err}
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed (%s): %v", e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// QueryErrorKindOf returns the kind of the first QueryError in err's chain.
func QueryErrorKindOf(err error) (QueryErrorKind, bool) {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind, true
	}
	return QueryInternal, false
}

// BootstrapError reports a failed schema or seed step for a domain.
type BootstrapError struct {
	Domain string
	Step   string
	Err    error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap %s (%s): %v", e.Domain, e.Step, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// InitializationError wraps whatever stopped a domain from becoming ready.
type InitializationError struct {
	Domain string
	Err    error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialize database %q: %v", e.Domain, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }
