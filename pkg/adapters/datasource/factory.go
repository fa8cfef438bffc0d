package datasource

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/desa-digital/portal-engine/pkg/apperrors"
	"github.com/desa-digital/portal-engine/pkg/retry"
)

// Connect opens a handle for engine using the registered adapter.
// Each attempt is bounded by opts.ConnectTimeout; transient failures are
// retried per opts.Retry. Every failure is an *apperrors.ConnectionError.
func Connect(ctx context.Context, engine string, params map[string]any, opts Options) (Handle, error) {
	connect := GetConnectFunc(engine)
	if connect == nil {
		return nil, &apperrors.ConnectionError{
			Engine: engine,
			Op:     "resolve adapter",
			Err:    fmt.Errorf("unsupported engine %q (not compiled in)", engine),
		}
	}

	opts = opts.WithDefaults()
	attempt := 0
	handle, err := retry.DoWithResultIfRetryable(ctx, opts.Retry, func() (Handle, error) {
		attempt++
		h, err := connectOnce(ctx, engine, connect, params, opts)
		if err != nil {
			opts.Logger.Debug("Connect attempt failed",
				zap.String("engine", engine),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return h, err
	})
	if err != nil {
		var connErr *apperrors.ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		return nil, &apperrors.ConnectionError{Engine: engine, Op: "connect", Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
	}
	return handle, nil
}

func connectOnce(ctx context.Context, engine string, connect ConnectFunc, params map[string]any, opts Options) (Handle, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	h, err := connect(attemptCtx, params, opts)
	if err != nil {
		var connErr *apperrors.ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		return nil, &apperrors.ConnectionError{Engine: engine, Op: "connect", Timeout: timedOut, Err: err}
	}
	return h, nil
}
