package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	"github.com/desa-digital/portal-engine/pkg/apperrors"
	"github.com/desa-digital/portal-engine/pkg/retry"
)

// Execute runs one statement. INSERTs without a RETURNING clause get
// "RETURNING *" appended so the new id can be reported like other engines do.
func (h *Handle) Execute(ctx context.Context, statement string, params []any) (*datasource.QueryResult, error) {
	if h.closed.Load() {
		return nil, datasource.WrapQueryError(datasource.ErrHandleClosed, classifyError)
	}

	bound, err := datasource.BindParams(statement, params, datasource.DollarPlaceholders)
	if err != nil {
		return nil, err
	}
	bound, appended := withReturning(statement, bound)

	ctx, cancel := context.WithTimeout(ctx, h.opts.QueryTimeout)
	defer cancel()

	run := func() (*datasource.QueryResult, error) {
		return h.run(ctx, bound, params)
	}

	var result *datasource.QueryResult
	if datasource.IsReadOnly(statement) {
		result, err = retry.DoWithResultIfRetryable(ctx, h.opts.Retry, run)
	} else {
		result, err = run()
	}
	if err != nil {
		return nil, datasource.WrapQueryError(err, classifyError)
	}

	if datasource.IsInsert(statement) && len(result.Rows) > 0 {
		if id, ok := datasource.AsInt64(result.Rows[len(result.Rows)-1]["id"]); ok {
			result.InsertID = &id
		}
	}
	if appended {
		result.Columns = nil
		result.Rows = []map[string]any{}
	}
	return result, nil
}

func (h *Handle) run(ctx context.Context, bound string, params []any) (*datasource.QueryResult, error) {
	rows, err := h.pool.Query(ctx, bound, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	out := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &datasource.QueryResult{Rows: out}
	if len(fields) > 0 {
		result.Columns = columns
		result.RowCount = len(out)
	} else {
		result.RowCount = int(rows.CommandTag().RowsAffected())
	}
	return result, nil
}

// withReturning appends RETURNING * to an INSERT that has none.
func withReturning(statement, bound string) (string, bool) {
	if !datasource.IsInsert(statement) || datasource.HasReturning(statement) {
		return bound, false
	}
	trimmed := strings.TrimRight(bound, " \t\r\n;")
	return trimmed + " RETURNING *", true
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return datasource.NormalizeValue("", v)
}

func classifyError(err error) (apperrors.QueryErrorKind, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.Code
		switch {
		case code == "23505":
			return apperrors.QueryConflict, true
		case code == "57014":
			return apperrors.QueryTimeout, true
		case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "53"), strings.HasPrefix(code, "57P"):
			return apperrors.QueryUnavailable, true
		case strings.HasPrefix(code, "22"), strings.HasPrefix(code, "23"), strings.HasPrefix(code, "42"):
			return apperrors.QueryBadRequest, true
		}
		return apperrors.QueryInternal, true
	}
	if pgconn.Timeout(err) {
		return apperrors.QueryTimeout, true
	}
	return apperrors.QueryInternal, false
}
