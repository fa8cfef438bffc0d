package datasource

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/desa-digital/portal-engine/pkg/apperrors"
	"github.com/desa-digital/portal-engine/pkg/retry"
)

type fakeHandle struct {
	pingErr   error
	pingPanic bool
	closed    atomic.Int32
}

func (f *fakeHandle) Engine() string { return "fake" }
func (f *fakeHandle) Execute(context.Context, string, []any) (*QueryResult, error) {
	return &QueryResult{Rows: []map[string]any{}}, nil
}
func (f *fakeHandle) PingContext(context.Context) error {
	if f.pingPanic {
		panic("driver exploded")
	}
	return f.pingErr
}
func (f *fakeHandle) Close() error { f.closed.Add(1); return nil }

func fastOptions(t *testing.T) Options {
	return Options{
		ConnectTimeout: 50 * time.Millisecond,
		Retry:          &retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
		Logger:         zaptest.NewLogger(t),
	}
}

func registerFake(t *testing.T, name string, connect ConnectFunc) {
	t.Helper()
	Register(AdapterRegistration{Info: AdapterInfo{Type: name, DisplayName: name}, Connect: connect})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, name)
		registryMu.Unlock()
	})
}

func TestConnect_UnsupportedEngine(t *testing.T) {
	_, err := Connect(context.Background(), "oracle", nil, fastOptions(t))

	var connErr *apperrors.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "oracle", connErr.Engine)
	assert.False(t, connErr.Timeout)
}

func TestConnect_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	registerFake(t, "flaky", func(ctx context.Context, params map[string]any, opts Options) (Handle, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("dial tcp 10.0.0.9:5432: connection refused")
		}
		return &fakeHandle{}, nil
	})

	h, err := Connect(context.Background(), "flaky", nil, fastOptions(t))
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, int32(3), calls.Load())
}

func TestConnect_PermanentFailureNotRetried(t *testing.T) {
	var calls atomic.Int32
	registerFake(t, "badauth", func(ctx context.Context, params map[string]any, opts Options) (Handle, error) {
		calls.Add(1)
		return nil, errors.New(`password authentication failed for user "portal"`)
	})

	_, err := Connect(context.Background(), "badauth", nil, fastOptions(t))

	var connErr *apperrors.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConnect_TimeoutIsFlagged(t *testing.T) {
	registerFake(t, "slow", func(ctx context.Context, params map[string]any, opts Options) (Handle, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	opts := fastOptions(t)
	opts.Retry = &retry.Config{MaxRetries: 0}
	start := time.Now()
	_, err := Connect(context.Background(), "slow", nil, opts)

	var connErr *apperrors.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.True(t, connErr.Timeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPing(t *testing.T) {
	ctx := context.Background()

	assert.True(t, Ping(ctx, &fakeHandle{}))
	assert.False(t, Ping(ctx, &fakeHandle{pingErr: errors.New("server closed the connection")}))
	assert.False(t, Ping(ctx, &fakeHandle{pingPanic: true}))
	assert.False(t, Ping(ctx, nil))
}

func TestRegisteredAdapters_Sorted(t *testing.T) {
	registerFake(t, "zz-test", nil)
	registerFake(t, "aa-test", nil)

	infos := RegisteredAdapters()
	for i := 1; i < len(infos); i++ {
		assert.LessOrEqual(t, infos[i-1].Type, infos[i].Type)
	}
	assert.True(t, IsRegistered("aa-test"))
	assert.False(t, IsRegistered("nope"))
}
