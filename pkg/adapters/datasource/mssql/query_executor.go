package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	"github.com/desa-digital/portal-engine/pkg/apperrors"
)

// insertIDSuffix reports the affected count and identity value in the same
// batch, since the driver does not implement LastInsertId.
const insertIDSuffix = ";\nSELECT CAST(@@ROWCOUNT AS BIGINT) AS affected_rows, CAST(SCOPE_IDENTITY() AS BIGINT) AS insert_id"

// Execute runs one statement. Plain INSERTs are batched with a trailing SELECT
// so the new identity can be reported; statements with an OUTPUT clause return
// their OUTPUT rows instead.
func (h *Handle) Execute(ctx context.Context, statement string, params []any) (*datasource.QueryResult, error) {
	output := datasource.HasOutput(statement)
	if !output && (!datasource.IsInsert(statement) || datasource.ReturnsRows(statement)) {
		return h.SQLHandle.Execute(ctx, statement, params)
	}
	if h.Closed() {
		return nil, h.WrapError(datasource.ErrHandleClosed)
	}

	bound, args, err := h.Bind(statement, params)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, h.Opts.QueryTimeout)
	defer cancel()

	if output {
		return h.QueryRows(ctx, statement, bound, args)
	}
	bound = strings.TrimRight(bound, " \t\r\n;") + insertIDSuffix

	var affected int64
	var insertID sql.NullInt64
	if err := h.DB.QueryRowContext(ctx, bound, args...).Scan(&affected, &insertID); err != nil {
		return nil, h.WrapError(err)
	}

	result := &datasource.QueryResult{Rows: []map[string]any{}, RowCount: int(affected)}
	if insertID.Valid {
		id := insertID.Int64
		result.InsertID = &id
	}
	return result, nil
}

// namedArgs converts positional params into the @p1..@pN names Rebind emits.
func namedArgs(params []any) []any {
	named := make([]any, len(params))
	for i, p := range params {
		named[i] = sql.Named(fmt.Sprintf("p%d", i+1), p)
	}
	return named
}

func normalizeValue(dbType string, v any) any {
	if strings.EqualFold(dbType, "UNIQUEIDENTIFIER") {
		if b, ok := v.([]byte); ok && len(b) == 16 {
			var id mssqldb.UniqueIdentifier
			if err := id.Scan(b); err == nil {
				return id.String()
			}
		}
	}
	return datasource.NormalizeValue(dbType, v)
}

func classifyError(err error) (apperrors.QueryErrorKind, bool) {
	var numbered interface{ SQLErrorNumber() int32 }
	if !errors.As(err, &numbered) {
		return apperrors.QueryInternal, false
	}

	switch numbered.SQLErrorNumber() {
	case 2627, 2601:
		return apperrors.QueryConflict, true
	case 515, 547, 102, 156, 207, 208, 245, 8114, 8152, 2628, 241:
		return apperrors.QueryBadRequest, true
	case 1205:
		return apperrors.QueryUnavailable, true
	case -2:
		return apperrors.QueryTimeout, true
	}
	return apperrors.QueryInternal, true
}
