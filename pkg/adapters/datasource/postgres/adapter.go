package postgres

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	"github.com/desa-digital/portal-engine/pkg/apperrors"
	"github.com/desa-digital/portal-engine/pkg/config"
)

// EngineName is the engine identifier used in domain configuration.
const EngineName = "postgres"

// Handle is a pgxpool-backed datasource.Handle.
type Handle struct {
	pool   *pgxpool.Pool
	config *Config
	opts   datasource.Options
	closed atomic.Bool
}

var _ datasource.Handle = (*Handle)(nil)

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// User-provided fields are escaped so passwords containing @, /, # or ? survive.
// When running in Docker, localhost is resolved to host.docker.internal.
func buildConnectionString(cfg *Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}

	host := config.ResolveHostForDocker(cfg.Host)

	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", host, cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// Connect parses params and opens a pool.
func Connect(ctx context.Context, params map[string]any, opts datasource.Options) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, &apperrors.ConnectionError{Engine: EngineName, Op: "configure", Err: err}
	}
	return Open(ctx, cfg, opts)
}

// Open creates the pool and verifies it with a ping. The pool is closed again
// when the ping fails.
func Open(ctx context.Context, cfg *Config, opts datasource.Options) (*Handle, error) {
	opts = opts.WithDefaults()

	poolConfig, err := pgxpool.ParseConfig(buildConnectionString(cfg))
	if err != nil {
		return nil, &apperrors.ConnectionError{Engine: EngineName, Op: "configure", Err: err}
	}
	poolConfig.MaxConns = opts.PoolMaxConns
	poolConfig.MinConns = opts.PoolMinConns
	poolConfig.MaxConnIdleTime = opts.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = opts.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}

	return &Handle{pool: pool, config: cfg, opts: opts}, nil
}

func (h *Handle) Engine() string { return EngineName }

func (h *Handle) PingContext(ctx context.Context) error {
	if h.closed.Load() {
		return datasource.ErrHandleClosed
	}
	return h.pool.Ping(ctx)
}

// Close releases the pool. Safe to call more than once.
func (h *Handle) Close() error {
	if h.closed.CompareAndSwap(false, true) {
		h.pool.Close()
	}
	return nil
}

// Stats exposes pool counters for diagnostics.
func (h *Handle) Stats() *pgxpool.Stat {
	return h.pool.Stat()
}
