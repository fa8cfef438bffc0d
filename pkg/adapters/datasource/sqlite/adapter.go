package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	"github.com/desa-digital/portal-engine/pkg/apperrors"
)

// EngineName is the engine identifier used in domain configuration.
const EngineName = "sqlite"

const driverName = "sqlite"

// Connect opens the database file, creating it and its directory when missing.
func Connect(ctx context.Context, params map[string]any, opts datasource.Options) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, &apperrors.ConnectionError{Engine: EngineName, Op: "configure", Err: err}
	}
	return Open(ctx, cfg, opts)
}

// Open is Connect with a parsed Config.
func Open(ctx context.Context, cfg *Config, opts datasource.Options) (*datasource.SQLHandle, error) {
	opts = opts.WithDefaults()

	if !cfg.InMemory() {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, &apperrors.ConnectionError{Engine: EngineName, Op: "create data directory", Err: err}
			}
		}
	}

	db, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}

	if cfg.InMemory() {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(int(opts.PoolMaxConns))
		db.SetMaxIdleConns(max(int(opts.PoolMinConns), 1))
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Path, err)
	}

	h := datasource.NewSQLHandle(db, EngineName, datasource.QuestionPlaceholders, opts)
	h.Classify = classifyError
	return h, nil
}

func classifyError(err error) (apperrors.QueryErrorKind, bool) {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return apperrors.QueryInternal, false
	}

	code := se.Code()
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return apperrors.QueryConflict, true
	}
	if strings.Contains(se.Error(), "UNIQUE constraint failed") {
		return apperrors.QueryConflict, true
	}

	switch code & 0xff {
	case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_ERROR, sqlite3.SQLITE_RANGE, sqlite3.SQLITE_TOOBIG:
		return apperrors.QueryBadRequest, true
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return apperrors.QueryUnavailable, true
	case sqlite3.SQLITE_INTERRUPT:
		return apperrors.QueryTimeout, true
	}
	return apperrors.QueryInternal, false
}
