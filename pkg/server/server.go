// Package server runs one domain's backend process: it opens the domain's
// database, serves the HTTP API and closes everything on shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	_ "github.com/desa-digital/portal-engine/pkg/adapters/datasource/engines"
	"github.com/desa-digital/portal-engine/pkg/config"
	"github.com/desa-digital/portal-engine/pkg/database"
	"github.com/desa-digital/portal-engine/pkg/handlers"
	"github.com/desa-digital/portal-engine/pkg/logging"
	"github.com/desa-digital/portal-engine/pkg/metrics"
	"github.com/desa-digital/portal-engine/pkg/middleware"
	"github.com/desa-digital/portal-engine/pkg/retry"
	"github.com/desa-digital/portal-engine/pkg/schema"
)

const shutdownTimeout = 10 * time.Second

// Main loads configuration and runs domain until SIGINT or SIGTERM.
// It returns the process exit code.
func Main(domain, version string) int {
	cfg, err := config.Load(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, cfg, domain, logger); err != nil {
		logger.Error("Server exited with error",
			zap.String("domain", domain),
			zap.String("error", logging.SanitizeError(err)))
		return 1
	}
	return 0
}

// Run resolves domain, initializes its database before listening, serves until
// ctx is done and then shuts the listener down before closing the database.
func Run(ctx context.Context, cfg *config.Config, domain string, logger *zap.Logger) error {
	logger = logger.With(zap.String("domain", domain))

	resolver := config.NewResolver(cfg)
	dc, err := resolver.Resolve(domain)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := datasourceOptions(cfg.Datasource, logger)
	registry := database.NewRegistry(
		resolver,
		schema.NewBootstrapper(cfg.Seed, opts.Retry, logger),
		logger,
		database.WithOptions(opts),
		database.WithMetrics(metrics.New(promRegistry)),
		database.WithProbeTimeout(cfg.Datasource.ProbeTimeout),
	)
	defer func() {
		if err := registry.CloseAll(); err != nil {
			logger.Warn("Failed to close databases", zap.String("error", logging.SanitizeError(err)))
		}
	}()

	if err := registry.InitializeDatabase(ctx, domain); err != nil {
		return err
	}

	addr := net.JoinHostPort(cfg.BindAddr, strconv.Itoa(dc.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(cfg, dc, registry, promRegistry, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          zap.NewStdLog(logger),
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLSCertPath != "" {
			errCh <- srv.ServeTLS(ln, cfg.TLSCertPath, cfg.TLSKeyPath)
			return
		}
		errCh <- srv.Serve(ln)
	}()

	logger.Info("Server started",
		zap.String("addr", ln.Addr().String()),
		zap.String("engine", dc.Engine),
		zap.Bool("tls", cfg.TLSCertPath != ""),
		zap.String("version", cfg.Version))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// NewHandler builds the HTTP surface of one domain process.
func NewHandler(cfg *config.Config, dc config.DomainConfig, registry *database.Registry, gatherer *prometheus.Registry, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	handlers.NewHealthHandler(dc, registry, logger).RegisterRoutes(mux)
	handlers.RegisterResources(mux, dc.Name, registry, logger)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{Registry: gatherer}))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	})

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recover(logger),
		middleware.RequestLogger(logger),
		c.Handler,
	)
}

func datasourceOptions(ds config.DatasourceConfig, logger *zap.Logger) datasource.Options {
	return datasource.Options{
		ConnectTimeout:  ds.ConnectTimeout,
		QueryTimeout:    ds.QueryTimeout,
		PoolMaxConns:    ds.PoolMaxConns,
		PoolMinConns:    ds.PoolMinConns,
		ConnMaxIdleTime: time.Duration(ds.ConnectionTTLMinutes) * time.Minute,
		Retry:           retry.FromAttempts(ds.RetryAttempts, ds.RetryInitialDelay, ds.RetryMaxDelay, ds.RetryMultiplier),
		Logger:          logger,
	}
}
