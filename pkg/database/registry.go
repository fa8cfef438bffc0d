package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	"github.com/desa-digital/portal-engine/pkg/apperrors"
	"github.com/desa-digital/portal-engine/pkg/config"
	"github.com/desa-digital/portal-engine/pkg/logging"
	"github.com/desa-digital/portal-engine/pkg/metrics"
)

// Health statuses reported by GetStatus.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusError     = "error"
	StatusUnknown   = "unknown"
)

// DefaultProbeTimeout bounds one liveness probe in GetStatus and TestConnection.
const DefaultProbeTimeout = 2 * time.Second

// Resolver maps domain names to their configuration.
type Resolver interface {
	Resolve(name string) (config.DomainConfig, error)
	Known() []string
}

// Bootstrapper prepares a freshly opened handle before it is published.
type Bootstrapper interface {
	Ensure(ctx context.Context, domain string, h datasource.Handle) error
}

// ConnectFunc opens a handle. datasource.Connect is the default.
type ConnectFunc func(ctx context.Context, engine string, params map[string]any, opts datasource.Options) (datasource.Handle, error)

// HealthRecord is the liveness of one domain at CheckedAt. It is never stored.
type HealthRecord struct {
	Domain      string    `json:"domain"`
	Status      string    `json:"status"`
	Detail      string    `json:"detail,omitempty"`
	Description string    `json:"description"`
	CheckedAt   time.Time `json:"checkedAt"`
}

type entry struct {
	config config.DomainConfig
	handle datasource.Handle
}

// Registry owns at most one live handle per domain. An entry is either absent or
// fully usable: it is published only after connect and bootstrap both succeed.
// Queries take a read lock only to find the handle; the handle's pool does the rest.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	// generation changes on CloseAll so in-flight initializations can tell they lost.
	generation uint64
	group      singleflight.Group

	resolver     Resolver
	bootstrapper Bootstrapper
	connect      ConnectFunc
	opts         datasource.Options
	metrics      *metrics.Metrics
	probeTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithConnectFunc replaces datasource.Connect.
func WithConnectFunc(fn ConnectFunc) RegistryOption {
	return func(r *Registry) {
		r.connect = fn
	}
}

// WithOptions sets the connection options passed to every connect.
func WithOptions(opts datasource.Options) RegistryOption {
	return func(r *Registry) {
		r.opts = opts
	}
}

// WithMetrics records queries and initializations.
func WithMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithProbeTimeout bounds each health probe.
func WithProbeTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.probeTimeout = d
		}
	}
}

// WithClock sets the time source for HealthRecord.CheckedAt.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty Registry. bootstrapper may be nil to skip schema setup.
func NewRegistry(resolver Resolver, bootstrapper Bootstrapper, logger *zap.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		entries:      make(map[string]*entry),
		resolver:     resolver,
		bootstrapper: bootstrapper,
		connect:      datasource.Connect,
		opts:         datasource.Options{},
		probeTimeout: DefaultProbeTimeout,
		now:          time.Now,
		logger:       logger.Named("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.opts.Logger == nil {
		r.opts.Logger = r.logger
	}
	return r
}

// InitializeDatabase connects and bootstraps domain unless it is already ready.
// Concurrent first calls share a single connect and bootstrap, run with the
// first caller's ctx. A caller whose own ctx ends stops waiting; the shared
// attempt keeps running for the others. Failures are
// *apperrors.InitializationError and leave nothing behind.
func (r *Registry) InitializeDatabase(ctx context.Context, domain string) error {
	if r.IsInitialized(domain) {
		return nil
	}
	ch := r.group.DoChan(domain, func() (any, error) {
		return nil, r.initialize(ctx, domain)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return &apperrors.InitializationError{Domain: domain, Err: ctx.Err()}
	}
}

func (r *Registry) initialize(ctx context.Context, domain string) (err error) {
	r.mu.RLock()
	_, ready := r.entries[domain]
	gen := r.generation
	r.mu.RUnlock()
	if ready {
		return nil
	}

	defer func() {
		r.metrics.RecordInitialization(domain, err)
		if err != nil {
			r.logger.Error("Database initialization failed",
				zap.String("domain", domain),
				zap.String("error", logging.SanitizeError(err)))
		}
	}()
	fail := func(cause error) error {
		return &apperrors.InitializationError{Domain: domain, Err: cause}
	}

	cfg, err := r.resolver.Resolve(domain)
	if err != nil {
		return fail(err)
	}

	start := time.Now()
	h, err := r.connect(ctx, cfg.Engine, cfg.Params, r.opts)
	if err != nil {
		return fail(err)
	}

	if r.bootstrapper != nil {
		if err := r.bootstrapper.Ensure(ctx, domain, h); err != nil {
			r.closeQuietly(domain, h)
			return fail(err)
		}
	}

	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		r.closeQuietly(domain, h)
		return fail(apperrors.ErrRegistryClosed)
	}
	r.entries[domain] = &entry{config: cfg, handle: h}
	r.mu.Unlock()

	r.metrics.SetUp(domain, true)
	r.logger.Info("Database initialized",
		zap.String("domain", domain),
		zap.String("engine", cfg.Engine),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *Registry) closeQuietly(domain string, h datasource.Handle) {
	if err := h.Close(); err != nil {
		r.logger.Warn("Failed to close handle",
			zap.String("domain", domain),
			zap.String("error", logging.SanitizeError(err)))
	}
}

func (r *Registry) lookup(domain string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[domain]
	return e, ok
}

// Query runs one statement on domain's handle. A domain without a handle fails
// with apperrors.ErrNotInitialized before any I/O.
func (r *Registry) Query(ctx context.Context, domain, statement string, params ...any) (*datasource.QueryResult, error) {
	e, ok := r.lookup(domain)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrNotInitialized, domain)
	}

	start := time.Now()
	result, err := e.handle.Execute(ctx, statement, params)
	outcome := "ok"
	if err != nil {
		kind, _ := apperrors.QueryErrorKindOf(err)
		outcome = kind.String()
	}
	r.metrics.ObserveQuery(domain, outcome, start)
	return result, err
}

// TestConnection reports whether domain's handle answers a ping.
func (r *Registry) TestConnection(ctx context.Context, domain string) bool {
	e, ok := r.lookup(domain)
	if !ok {
		return false
	}
	return r.probe(ctx, e.handle) == nil
}

// probe pings h within the probe timeout. It returns even when the driver
// ignores ctx.
func (r *Registry) probe(ctx context.Context, h datasource.Handle) error {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- datasource.Probe(ctx, h)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStatus probes every initialized domain concurrently. Known domains this
// process never initialized are reported as unknown without I/O.
func (r *Registry) GetStatus(ctx context.Context) map[string]HealthRecord {
	r.mu.RLock()
	snapshot := make(map[string]*entry, len(r.entries))
	for name, e := range r.entries {
		snapshot[name] = e
	}
	r.mu.RUnlock()

	names := r.resolver.Known()
	for name := range snapshot {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	var (
		mu      sync.Mutex
		g       errgroup.Group
		records = make(map[string]HealthRecord, len(names))
	)
	for _, name := range names {
		e, ok := snapshot[name]
		if !ok {
			rec := HealthRecord{Domain: name, Status: StatusUnknown, Detail: "not initialized in this process", CheckedAt: r.now()}
			if cfg, err := r.resolver.Resolve(name); err == nil {
				rec.Description = cfg.Description
			}
			records[name] = rec
			continue
		}

		g.Go(func() error {
			rec := HealthRecord{Domain: name, Status: StatusHealthy, Description: e.config.Description}
			if err := r.probe(ctx, e.handle); err != nil {
				rec.Status = StatusUnhealthy
				rec.Detail = logging.SanitizeError(err)
				if errors.Is(err, context.DeadlineExceeded) {
					rec.Status = StatusError
					rec.Detail = fmt.Sprintf("probe timed out after %s", r.probeTimeout)
				}
			}
			rec.CheckedAt = r.now()

			mu.Lock()
			records[name] = rec
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return records
}

// CloseAll closes every handle and forgets all domains. It is safe to call
// more than once; initializations still in flight will not publish.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.generation++
	r.mu.Unlock()

	var errs []error
	for name, e := range entries {
		if err := e.handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		r.metrics.SetUp(name, false)
		r.logger.Info("Database closed", zap.String("domain", name))
	}
	return errors.Join(errs...)
}

// IsInitialized reports whether domain holds a handle.
func (r *Registry) IsInitialized(domain string) bool {
	_, ok := r.lookup(domain)
	return ok
}

// Initialized returns the domains holding a handle, sorted.
func (r *Registry) Initialized() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Engine returns the engine of domain's handle.
func (r *Registry) Engine(domain string) (string, bool) {
	e, ok := r.lookup(domain)
	if !ok {
		return "", false
	}
	return e.config.Engine, true
}
