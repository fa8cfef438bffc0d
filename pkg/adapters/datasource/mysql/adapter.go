package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	"github.com/desa-digital/portal-engine/pkg/apperrors"
	"github.com/desa-digital/portal-engine/pkg/config"
)

// EngineName is the engine identifier used in domain configuration.
const EngineName = "mysql"

// driverConfig translates Config into the driver's own settings.
// Statements are prepared server side and multi-statements are refused.
// Affected-row counts include matched but unchanged rows, as on the other engines.
func driverConfig(cfg *Config, opts datasource.Options) *mysql.Config {
	dc := mysql.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(config.ResolveHostForDocker(cfg.Host), strconv.Itoa(cfg.Port))
	dc.DBName = cfg.Database
	dc.TLSConfig = cfg.TLS
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Collation = "utf8mb4_unicode_ci"
	dc.Timeout = opts.ConnectTimeout
	dc.ReadTimeout = opts.QueryTimeout * 2
	dc.WriteTimeout = opts.QueryTimeout * 2
	dc.MultiStatements = false
	dc.InterpolateParams = false
	dc.ClientFoundRows = true
	return dc
}

// Connect parses params and opens the pool.
func Connect(ctx context.Context, params map[string]any, opts datasource.Options) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, &apperrors.ConnectionError{Engine: EngineName, Op: "configure", Err: err}
	}

	opts = opts.WithDefaults()
	connector, err := mysql.NewConnector(driverConfig(cfg, opts))
	if err != nil {
		return nil, &apperrors.ConnectionError{Engine: EngineName, Op: "configure", Err: err}
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(int(opts.PoolMaxConns))
	db.SetMaxIdleConns(max(int(opts.PoolMinConns), 1))
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}

	return newHandle(db, opts), nil
}

func newHandle(db *sql.DB, opts datasource.Options) *datasource.SQLHandle {
	h := datasource.NewSQLHandle(db, EngineName, datasource.MySQLPlaceholders, opts)
	h.Classify = classifyError
	return h
}

func classifyError(err error) (apperrors.QueryErrorKind, bool) {
	if errors.Is(err, mysql.ErrInvalidConn) {
		return apperrors.QueryUnavailable, true
	}

	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return apperrors.QueryInternal, false
	}

	switch myErr.Number {
	case 1062, 1586:
		return apperrors.QueryConflict, true
	case 1048, 1364, 1451, 1452, 1064, 1054, 1146, 1366, 1265, 1406, 1292, 3819:
		return apperrors.QueryBadRequest, true
	case 3024, 1317:
		return apperrors.QueryTimeout, true
	case 1040, 1205, 1213, 2006, 2013:
		return apperrors.QueryUnavailable, true
	}
	return apperrors.QueryInternal, true
}
