package datasource

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/desa-digital/portal-engine/pkg/apperrors"
	"github.com/desa-digital/portal-engine/pkg/retry"
)

// SQLHandle implements Handle on top of database/sql. Engine packages build one
// and fill in the dialect hooks they need.
type SQLHandle struct {
	DB    *sql.DB
	Style PlaceholderStyle
	Opts  Options

	// Classify maps engine-specific errors; returning false defers to ClassifyCommon.
	Classify func(err error) (apperrors.QueryErrorKind, bool)
	// Normalize converts one scanned value. Defaults to NormalizeValue.
	Normalize func(dbType string, v any) any
	// Args adapts bound parameters before they reach the driver.
	Args func(params []any) []any

	engine string
	closed atomic.Bool
}

// NewSQLHandle wraps db. opts are completed with defaults.
func NewSQLHandle(db *sql.DB, engine string, style PlaceholderStyle, opts Options) *SQLHandle {
	return &SQLHandle{
		DB:     db,
		Style:  style,
		Opts:   opts.WithDefaults(),
		engine: engine,
	}
}

var _ Handle = (*SQLHandle)(nil)

func (h *SQLHandle) Engine() string { return h.engine }

func (h *SQLHandle) PingContext(ctx context.Context) error {
	if h.closed.Load() {
		return ErrHandleClosed
	}
	return h.DB.PingContext(ctx)
}

func (h *SQLHandle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.DB.Close()
}

// Closed reports whether Close has been called.
func (h *SQLHandle) Closed() bool { return h.closed.Load() }

// Bind rebinds statement and adapts params for the driver.
func (h *SQLHandle) Bind(statement string, params []any) (string, []any, error) {
	bound, err := BindParams(statement, params, h.Style)
	if err != nil {
		return "", nil, err
	}
	args := params
	if h.Args != nil {
		args = h.Args(params)
	}
	return bound, args, nil
}

func (h *SQLHandle) Execute(ctx context.Context, statement string, params []any) (*QueryResult, error) {
	if h.closed.Load() {
		return nil, h.WrapError(ErrHandleClosed)
	}
	bound, args, err := h.Bind(statement, params)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, h.Opts.QueryTimeout)
	defer cancel()

	if ReturnsRows(statement) {
		return h.QueryRows(ctx, statement, bound, args)
	}

	res, err := h.DB.ExecContext(ctx, bound, args...)
	if err != nil {
		return nil, h.WrapError(err)
	}

	result := &QueryResult{Rows: []map[string]any{}}
	if affected, err := res.RowsAffected(); err == nil {
		result.RowCount = int(affected)
	}
	if IsInsert(statement) {
		if id, err := res.LastInsertId(); err == nil && id > 0 {
			result.InsertID = &id
		}
	}
	return result, nil
}

// QueryRows runs a row-returning statement. Read-only statements are retried on
// transient failures; anything that may write runs exactly once.
func (h *SQLHandle) QueryRows(ctx context.Context, statement, bound string, args []any) (*QueryResult, error) {
	run := func() (*QueryResult, error) {
		rows, err := h.DB.QueryContext(ctx, bound, args...)
		if err != nil {
			return nil, err
		}
		return h.Collect(rows)
	}

	var result *QueryResult
	var err error
	if IsReadOnly(statement) {
		result, err = retry.DoWithResultIfRetryable(ctx, h.Opts.Retry, run)
	} else {
		result, err = run()
	}
	if err != nil {
		return nil, h.WrapError(err)
	}

	if IsInsert(statement) && len(result.Rows) > 0 {
		if id, ok := AsInt64(result.Rows[len(result.Rows)-1]["id"]); ok {
			result.InsertID = &id
		}
	}
	return result, nil
}

// Collect drains rows into a QueryResult. rows is always closed.
func (h *SQLHandle) Collect(rows *sql.Rows) (*QueryResult, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types := make([]string, len(columns))
	if colTypes, err := rows.ColumnTypes(); err == nil {
		for i, ct := range colTypes {
			types[i] = ct.DatabaseTypeName()
		}
	}

	normalize := h.Normalize
	if normalize == nil {
		normalize = NormalizeValue
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalize(types[i], values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryResult{Columns: columns, Rows: out, RowCount: len(out)}, nil
}

// WrapError classifies err with the handle's hook and the shared rules.
func (h *SQLHandle) WrapError(err error) error {
	return WrapQueryError(err, h.Classify)
}
