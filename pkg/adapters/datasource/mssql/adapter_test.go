package mssql

import (
	"context"
	"database/sql"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	"github.com/desa-digital/portal-engine/pkg/apperrors"
)

type numberedErr struct{ n int32 }

func (e numberedErr) Error() string { return "mssql error" }
func (e numberedErr) SQLErrorNumber() int32 { return e.n }

func newMockHandle(t *testing.T) (*Handle, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	h := newHandle(db, datasource.Options{QueryTimeout: time.Second})
	t.Cleanup(func() { _ = h.Close() })
	return h, mock
}

func TestFromMap(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"host":     "mssql.desa.local",
		"port":     1444,
		"database": "admin",
		"user":     "sa",
		"password": "Str0ng!",
		"ssl_mode": "disable",
	})
	require.NoError(t, err)
	assert.Equal(t, 1444, cfg.Port)
	assert.Equal(t, "sa", cfg.Username)
	assert.Equal(t, "disable", cfg.Encrypt)

	_, err = FromMap(map[string]any{"host": "h", "database": "d"})
	assert.ErrorContains(t, err, "username is required")

	_, err = FromMap(map[string]any{"host": "h", "database": "d", "user": "u", "encrypt": "sometimes"})
	assert.Error(t, err)
}

func TestBuildConnectionString(t *testing.T) {
	cfg := &Config{Host: "mssql.desa.local", Port: 1433, Database: "admin", Username: "sa", Password: "p@ss;word", Encrypt: "true"}
	u, err := url.Parse(buildConnectionString(cfg, datasource.Options{ConnectTimeout: 5 * time.Second}))
	require.NoError(t, err)

	assert.Equal(t, "sqlserver", u.Scheme)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss;word", pw)
	assert.Equal(t, "admin", u.Query().Get("database"))
	assert.Equal(t, "5", u.Query().Get("dial timeout"))
}

func TestExecute_InsertReportsIdentity(t *testing.T) {
	h, mock := newMockHandle(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO officials (name, position) VALUES (@p1, @p2);\nSELECT CAST(@@ROWCOUNT AS BIGINT)")).
		WithArgs(sql.Named("p1", "Budi"), sql.Named("p2", "Kepala Desa")).
		WillReturnRows(sqlmock.NewRows([]string{"affected_rows", "insert_id"}).AddRow(int64(1), int64(7)))

	result, err := h.Execute(context.Background(), "INSERT INTO officials (name, position) VALUES (?, ?);", []any{"Budi", "Kepala Desa"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.RowCount)
	assert.Empty(t, result.Rows)
	require.NotNil(t, result.InsertID)
	assert.Equal(t, int64(7), *result.InsertID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_OutputClauseReturnsRows(t *testing.T) {
	h, mock := newMockHandle(t)
	stmt := "INSERT INTO officials (name)\nOUTPUT INSERTED.id\nVALUES (?)"
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO officials (name)\nOUTPUT INSERTED.id\nVALUES (@p1)") + "$").
		WithArgs(sql.Named("p1", "Budi")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

	result, err := h.Execute(context.Background(), stmt, []any{"Budi"})
	require.NoError(t, err)

	require.Equal(t, 1, result.RowCount)
	require.NotNil(t, result.InsertID)
	assert.Equal(t, int64(9), *result.InsertID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_SelectUsesNamedOrdinals(t *testing.T) {
	h, mock := newMockHandle(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM officials WHERE position = @p1")).
		WithArgs(sql.Named("p1", "Sekretaris")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(2), "Ani"))

	result, err := h.Execute(context.Background(), "SELECT id, name FROM officials WHERE position = ?", []any{"Sekretaris"})
	require.NoError(t, err)
	require.Equal(t, 1, result.RowCount)
	assert.Equal(t, "Ani", result.Rows[0]["name"])
}

func TestExecute_UpdateAffectedRows(t *testing.T) {
	h, mock := newMockHandle(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE officials SET phone = @p1 WHERE id = @p2")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := h.Execute(context.Background(), "UPDATE officials SET phone = ? WHERE id = ?", []any{"0812", 2})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.Nil(t, result.InsertID)
}

func TestExecute_DuplicateKeyIsConflict(t *testing.T) {
	h, mock := newMockHandle(t)
	mock.ExpectQuery("INSERT INTO users").WillReturnError(numberedErr{n: 2627})

	_, err := h.Execute(context.Background(), "INSERT INTO users (username) VALUES (?)", []any{"alice"})
	kind, ok := apperrors.QueryErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.QueryConflict, kind)
}

func TestClassifyError(t *testing.T) {
	for n, want := range map[int32]apperrors.QueryErrorKind{
		2601:  apperrors.QueryConflict,
		515:   apperrors.QueryBadRequest,
		208:   apperrors.QueryBadRequest,
		1205:  apperrors.QueryUnavailable,
		50000: apperrors.QueryInternal,
	} {
		kind, ok := classifyError(numberedErr{n: n})
		assert.True(t, ok)
		assert.Equal(t, want, kind, "error %d", n)
	}
}
