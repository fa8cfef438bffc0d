package apperrors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializationError_UnwrapsConnectionError(t *testing.T) {
	connErr := &ConnectionError{Engine: "postgres", Op: "connect", Timeout: true, Err: context.DeadlineExceeded}
	err := &InitializationError{Domain: "umkm", Err: connErr}

	var target *ConnectionError
	require.True(t, errors.As(err, &target))
	assert.True(t, target.Timeout)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), `initialize database "umkm"`)
	assert.Contains(t, err.Error(), "timed out")
}

func TestInitializationError_UnwrapsBootstrapError(t *testing.T) {
	cause := errors.New("disk full")
	err := &InitializationError{Domain: "main", Err: &BootstrapError{Domain: "main", Step: "create table users", Err: cause}}

	var target *BootstrapError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "create table users", target.Step)
	assert.ErrorIs(t, err, cause)
}

func TestQueryErrorKindOf(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), NewQueryError(QueryConflict, errors.New("duplicate key")))

	kind, ok := QueryErrorKindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, QueryConflict, kind)

	_, ok = QueryErrorKindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestQueryErrorKind_String(t *testing.T) {
	assert.Equal(t, "bad_request", QueryBadRequest.String())
	assert.Equal(t, "conflict", QueryConflict.String())
	assert.Equal(t, "timeout", QueryTimeout.String())
	assert.Equal(t, "unavailable", QueryUnavailable.String())
	assert.Equal(t, "internal", QueryInternal.String())
}
