package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desa-digital/portal-engine/pkg/apperrors"
	"github.com/desa-digital/portal-engine/pkg/retry"
)

func newMockHandle(t *testing.T, style PlaceholderStyle) (*SQLHandle, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual), sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	h := NewSQLHandle(db, "mock", style, Options{
		QueryTimeout: time.Second,
		Retry:        &retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
	})
	t.Cleanup(func() { _ = h.Close() })
	return h, mock
}

func TestSQLHandle_InsertReportsRowCountAndID(t *testing.T) {
	h, mock := newMockHandle(t, QuestionPlaceholders)
	mock.ExpectExec("INSERT INTO umkm (business_name, owner_name) VALUES (?, ?)").
		WithArgs("Warung Bu Sri", "Sri").
		WillReturnResult(sqlmock.NewResult(12, 1))

	result, err := h.Execute(context.Background(),
		"INSERT INTO umkm (business_name, owner_name) VALUES (?, ?)", []any{"Warung Bu Sri", "Sri"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.RowCount)
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
	require.NotNil(t, result.InsertID)
	assert.Equal(t, int64(12), *result.InsertID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLHandle_SelectRebindsAndNormalizes(t *testing.T) {
	h, mock := newMockHandle(t, DollarPlaceholders)
	rows := sqlmock.NewRows([]string{"id", "business_name"}).
		AddRow(int64(1), []byte("Warung Bu Sri")).
		AddRow(int64(2), "Kopi Pak Darto")
	mock.ExpectQuery("SELECT id, business_name FROM umkm WHERE owner_name = $1").
		WithArgs("Sri").
		WillReturnRows(rows)

	result, err := h.Execute(context.Background(), "SELECT id, business_name FROM umkm WHERE owner_name = ?", []any{"Sri"})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "business_name"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "Warung Bu Sri", result.Rows[0]["business_name"])
	assert.Equal(t, int64(2), result.Rows[1]["id"])
	assert.Nil(t, result.InsertID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLHandle_EmptySelect(t *testing.T) {
	h, mock := newMockHandle(t, QuestionPlaceholders)
	mock.ExpectQuery("SELECT id FROM news WHERE id = ?").WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	result, err := h.Execute(context.Background(), "SELECT id FROM news WHERE id = ?", []any{int64(404)})
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowCount)
	assert.NotNil(t, result.Rows)
}

func TestSQLHandle_ReadRetriedOnTransientError(t *testing.T) {
	h, mock := newMockHandle(t, QuestionPlaceholders)
	mock.ExpectQuery("SELECT COUNT(*) AS total FROM officials").
		WillReturnError(errors.New("read tcp 10.0.0.4:3306: connection reset by peer"))
	mock.ExpectQuery("SELECT COUNT(*) AS total FROM officials").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(int64(4)))

	result, err := h.Execute(context.Background(), "SELECT COUNT(*) AS total FROM officials", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.Rows[0]["total"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLHandle_WriteNotRetried(t *testing.T) {
	h, mock := newMockHandle(t, QuestionPlaceholders)
	mock.ExpectExec("UPDATE news SET title = ? WHERE id = ?").
		WillReturnError(errors.New("read tcp 10.0.0.4:3306: connection reset by peer"))

	_, err := h.Execute(context.Background(), "UPDATE news SET title = ? WHERE id = ?", []any{"x", 1})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLHandle_ClassifyHook(t *testing.T) {
	h, mock := newMockHandle(t, QuestionPlaceholders)
	h.Classify = func(err error) (apperrors.QueryErrorKind, bool) {
		return apperrors.QueryConflict, true
	}
	mock.ExpectExec("INSERT INTO users (username) VALUES (?)").WillReturnError(errors.New("duplicate"))

	_, err := h.Execute(context.Background(), "INSERT INTO users (username) VALUES (?)", []any{"alice"})
	kind, ok := apperrors.QueryErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.QueryConflict, kind)
}

func TestSQLHandle_PlaceholderMismatchNeverReachesDriver(t *testing.T) {
	h, mock := newMockHandle(t, QuestionPlaceholders)

	_, err := h.Execute(context.Background(), "SELECT * FROM news WHERE id = ?", nil)
	kind, _ := apperrors.QueryErrorKindOf(err)
	assert.Equal(t, apperrors.QueryBadRequest, kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLHandle_PingAndClose(t *testing.T) {
	h, mock := newMockHandle(t, QuestionPlaceholders)
	mock.ExpectPing()
	mock.ExpectClose()

	assert.True(t, Ping(context.Background(), h))
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.False(t, Ping(context.Background(), h))

	_, err := h.Execute(context.Background(), "SELECT 1", nil)
	kind, _ := apperrors.QueryErrorKindOf(err)
	assert.Equal(t, apperrors.QueryUnavailable, kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassifyCommon(t *testing.T) {
	assert.Equal(t, apperrors.QueryTimeout, ClassifyCommon(context.DeadlineExceeded))
	assert.Equal(t, apperrors.QueryUnavailable, ClassifyCommon(ErrHandleClosed))
	assert.Equal(t, apperrors.QueryInternal, ClassifyCommon(errors.New("boom")))
}
