package datasource

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/desa-digital/portal-engine/pkg/retry"
)

// Handle is an open, pooled connection to one domain's store.
// Implementations are safe for concurrent use.
type Handle interface {
	// Engine returns the engine name the handle was opened with.
	Engine() string

	// Execute runs one parameterized statement. Placeholders are written as '?'
	// and rewritten for the engine. Failures are *apperrors.QueryError and
	// never invalidate the handle.
	Execute(ctx context.Context, statement string, params []any) (*QueryResult, error)

	// PingContext checks liveness.
	PingContext(ctx context.Context) error

	// Close releases the pool. Safe to call more than once.
	Close() error
}

// QueryResult is the engine-neutral outcome of a statement.
// Rows is empty (never nil) for statements that return no rows; RowCount is then
// the number of affected rows.
type QueryResult struct {
	Columns  []string         `json:"columns,omitempty"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"rowCount"`
	InsertID *int64           `json:"insertId,omitempty"`
}

// Options tune how handles are opened and how statements run.
type Options struct {
	ConnectTimeout  time.Duration
	QueryTimeout    time.Duration
	PoolMaxConns    int32
	PoolMinConns    int32
	ConnMaxIdleTime time.Duration
	Retry           *retry.Config
	Logger          *zap.Logger
}

// DefaultOptions returns the connection defaults: 5s connect, 5s per statement,
// up to 10 pooled connections, three connect attempts.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:  5 * time.Second,
		QueryTimeout:    5 * time.Second,
		PoolMaxConns:    10,
		PoolMinConns:    1,
		ConnMaxIdleTime: 5 * time.Minute,
		Retry:           retry.DefaultConfig(),
		Logger:          zap.NewNop(),
	}
}

// WithDefaults fills zero fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = def.ConnectTimeout
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = def.QueryTimeout
	}
	if o.PoolMaxConns <= 0 {
		o.PoolMaxConns = def.PoolMaxConns
	}
	if o.PoolMinConns < 0 || o.PoolMinConns > o.PoolMaxConns {
		o.PoolMinConns = min(def.PoolMinConns, o.PoolMaxConns)
	}
	if o.ConnMaxIdleTime <= 0 {
		o.ConnMaxIdleTime = def.ConnMaxIdleTime
	}
	if o.Retry == nil {
		o.Retry = def.Retry
	}
	if o.Logger == nil {
		o.Logger = def.Logger
	}
	return o
}
