package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	"github.com/desa-digital/portal-engine/pkg/apperrors"
	"github.com/desa-digital/portal-engine/pkg/config"
)

// EngineName is the engine identifier used in domain configuration.
const EngineName = "mssql"

const driverName = "sqlserver"

// Handle is a SQL Server datasource.Handle.
type Handle struct {
	*datasource.SQLHandle
}

var _ datasource.Handle = (*Handle)(nil)

// buildConnectionString builds a sqlserver:// URL. Credentials are escaped by net/url.
func buildConnectionString(cfg *Config, opts datasource.Options) string {
	query := url.Values{}
	query.Add("database", cfg.Database)
	query.Add("encrypt", cfg.Encrypt)
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if secs := int(opts.ConnectTimeout.Seconds()); secs > 0 {
		query.Add("dial timeout", strconv.Itoa(secs))
		query.Add("connection timeout", strconv.Itoa(secs))
	}
	query.Add("app name", "portal-engine")

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", config.ResolveHostForDocker(cfg.Host), cfg.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// Connect parses params and opens the pool.
func Connect(ctx context.Context, params map[string]any, opts datasource.Options) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, &apperrors.ConnectionError{Engine: EngineName, Op: "configure", Err: err}
	}

	opts = opts.WithDefaults()
	db, err := sql.Open(driverName, buildConnectionString(cfg, opts))
	if err != nil {
		return nil, &apperrors.ConnectionError{Engine: EngineName, Op: "configure", Err: err}
	}
	db.SetMaxOpenConns(int(opts.PoolMaxConns))
	db.SetMaxIdleConns(max(int(opts.PoolMinConns), 1))
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}

	return newHandle(db, opts), nil
}

func newHandle(db *sql.DB, opts datasource.Options) *Handle {
	h := datasource.NewSQLHandle(db, EngineName, datasource.AtPPlaceholders, opts)
	h.Classify = classifyError
	h.Normalize = normalizeValue
	h.Args = namedArgs
	return &Handle{SQLHandle: h}
}
