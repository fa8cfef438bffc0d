package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	"github.com/desa-digital/portal-engine/pkg/apperrors"
)

func newMockHandle(t *testing.T) (datasource.Handle, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual), sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	h := newHandle(db, datasource.Options{QueryTimeout: time.Second})
	t.Cleanup(func() { _ = h.Close() })
	return h, mock
}

func TestFromMap(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"host":     "mysql.desa.local",
		"user":     "portal",
		"password": "s3cret",
		"database": "location",
		"ssl_mode": "disable",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultPort(), cfg.Port)
	assert.Equal(t, "false", cfg.TLS)

	_, err = FromMap(map[string]any{"host": "h", "user": "u"})
	assert.ErrorContains(t, err, "database is required")

	_, err = FromMap(map[string]any{"host": "h", "user": "u", "database": "d", "port": "abc"})
	assert.Error(t, err)
}

func TestDriverConfig(t *testing.T) {
	dc := driverConfig(&Config{Host: "mysql.desa.local", Port: 3307, User: "portal", Password: "pw", Database: "location", TLS: "false"},
		datasource.Options{ConnectTimeout: 5 * time.Second, QueryTimeout: 5 * time.Second})

	assert.Equal(t, "mysql.desa.local:3307", dc.Addr)
	assert.True(t, dc.ParseTime)
	assert.False(t, dc.MultiStatements)
	assert.False(t, dc.InterpolateParams)
	assert.True(t, dc.ClientFoundRows)
	assert.Equal(t, 5*time.Second, dc.Timeout)
	assert.Equal(t, time.UTC, dc.Loc)
}

func TestExecute_InsertUsesLastInsertID(t *testing.T) {
	h, mock := newMockHandle(t)
	mock.ExpectExec("INSERT INTO locations (name, latitude, longitude) VALUES (?, ?, ?)").
		WithArgs("Balai Desa", -7.25, 112.75).
		WillReturnResult(sqlmock.NewResult(31, 1))

	result, err := h.Execute(context.Background(),
		"INSERT INTO locations (name, latitude, longitude) VALUES (?, ?, ?)", []any{"Balai Desa", -7.25, 112.75})
	require.NoError(t, err)

	assert.Equal(t, 1, result.RowCount)
	require.NotNil(t, result.InsertID)
	assert.Equal(t, int64(31), *result.InsertID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_SelectRows(t *testing.T) {
	h, mock := newMockHandle(t)
	mock.ExpectQuery("SELECT id, name FROM tourism_spots WHERE LOWER(name) LIKE ?").
		WithArgs("%pantai%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "Pantai Indah").
			AddRow(int64(2), "Pantai Pasir Putih"))

	result, err := h.Execute(context.Background(), "SELECT id, name FROM tourism_spots WHERE LOWER(name) LIKE ?", []any{"%pantai%"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "Pantai Pasir Putih", result.Rows[1]["name"])
}

func TestExecute_ErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.QueryErrorKind
	}{
		{"duplicate entry", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'username'"}, apperrors.QueryConflict},
		{"syntax", &mysql.MySQLError{Number: 1064, Message: "You have an error in your SQL syntax"}, apperrors.QueryBadRequest},
		{"execution time", &mysql.MySQLError{Number: 3024, Message: "maximum statement execution time exceeded"}, apperrors.QueryTimeout},
		{"invalid conn", mysql.ErrInvalidConn, apperrors.QueryUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newMockHandle(t)
			mock.ExpectExec("DELETE FROM locations WHERE id = ?").WillReturnError(tt.err)

			_, err := h.Execute(context.Background(), "DELETE FROM locations WHERE id = ?", []any{1})
			kind, ok := apperrors.QueryErrorKindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestPing_FailedPingIsFalse(t *testing.T) {
	h, mock := newMockHandle(t)
	mock.ExpectPing().WillReturnError(mysql.ErrInvalidConn)

	assert.False(t, datasource.Ping(context.Background(), h))
}
