package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desa-digital/portal-engine/pkg/apperrors"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name  string
		stmt  string
		style PlaceholderStyle
		want  string
		count int
	}{
		{
			name:  "sqlite keeps question marks",
			stmt:  "SELECT * FROM umkm WHERE id = ?",
			style: QuestionPlaceholders,
			want:  "SELECT * FROM umkm WHERE id = ?",
			count: 1,
		},
		{
			name:  "postgres dollar numbering",
			stmt:  "INSERT INTO umkm (business_name, owner_name) VALUES (?, ?)",
			style: DollarPlaceholders,
			want:  "INSERT INTO umkm (business_name, owner_name) VALUES ($1, $2)",
			count: 2,
		},
		{
			name:  "sql server named ordinals",
			stmt:  "UPDATE news SET title = ? WHERE id = ?",
			style: AtPPlaceholders,
			want:  "UPDATE news SET title = @p1 WHERE id = @p2",
			count: 2,
		},
		{
			name:  "question mark inside literal is not a placeholder",
			stmt:  "SELECT 'why?' AS q, id FROM news WHERE title = ?",
			style: DollarPlaceholders,
			want:  "SELECT 'why?' AS q, id FROM news WHERE title = $1",
			count: 1,
		},
		{
			name:  "escaped quote inside literal",
			stmt:  "SELECT 'it''s ?' FROM news WHERE id = ?",
			style: DollarPlaceholders,
			want:  "SELECT 'it''s ?' FROM news WHERE id = $1",
			count: 1,
		},
		{
			name:  "comments are skipped",
			stmt:  "SELECT id -- any ?\nFROM news /* really? */ WHERE id = ?",
			style: AtPPlaceholders,
			want:  "SELECT id -- any ?\nFROM news /* really? */ WHERE id = @p1",
			count: 1,
		},
		{
			name:  "quoted identifiers are skipped",
			stmt:  `SELECT "odd?col", [other?col] FROM t WHERE a = ?`,
			style: AtPPlaceholders,
			want:  `SELECT "odd?col", [other?col] FROM t WHERE a = @p1`,
			count: 1,
		},
		{
			name:  "mysql backslash escape",
			stmt:  `SELECT 'a\'?' FROM t WHERE a = ?`,
			style: MySQLPlaceholders,
			want:  `SELECT 'a\'?' FROM t WHERE a = ?`,
			count: 1,
		},
		{
			name:  "no placeholders",
			stmt:  "SELECT COUNT(*) FROM officials",
			style: DollarPlaceholders,
			want:  "SELECT COUNT(*) FROM officials",
			count: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count := Rebind(tt.stmt, tt.style)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.count, count)
		})
	}
}

func TestBindParams_CountMismatch(t *testing.T) {
	_, err := BindParams("SELECT * FROM umkm WHERE id = ? AND owner_name = ?", []any{1}, DollarPlaceholders)
	require.Error(t, err)

	kind, ok := apperrors.QueryErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.QueryBadRequest, kind)
}

func TestStatementClassification(t *testing.T) {
	tests := []struct {
		stmt        string
		returnsRows bool
		readOnly    bool
		insert      bool
	}{
		{"SELECT * FROM news", true, true, false},
		{"  select id from news", true, true, false},
		{"-- leading comment\nSELECT 1", true, true, false},
		{"(SELECT 1) UNION (SELECT 2)", true, true, false},
		{"WITH recent AS (SELECT * FROM news) SELECT * FROM recent", true, true, false},
		{"WITH gone AS (DELETE FROM news RETURNING id) SELECT * FROM gone", true, false, false},
		{"INSERT INTO news (title) VALUES (?)", false, false, true},
		{"INSERT INTO news (title) VALUES (?) RETURNING id", true, false, true},
		{"INSERT INTO news (title) VALUES ('returning')", false, false, true},
		{"UPDATE news SET title = ? WHERE id = ?", false, false, false},
		{"DELETE FROM news WHERE id = ?", false, false, false},
		{"SELECT * INTO backup FROM news", true, false, false},
		{"CREATE TABLE IF NOT EXISTS t (id INTEGER)", false, false, false},
		{"PRAGMA table_info(news)", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			assert.Equal(t, tt.returnsRows, ReturnsRows(tt.stmt), "ReturnsRows")
			assert.Equal(t, tt.readOnly, IsReadOnly(tt.stmt), "IsReadOnly")
			assert.Equal(t, tt.insert, IsInsert(tt.stmt), "IsInsert")
		})
	}
}

func TestHasOutput(t *testing.T) {
	tests := []struct {
		stmt string
		want bool
	}{
		{"INSERT INTO officials (name) OUTPUT INSERTED.id VALUES (?)", true},
		{"INSERT INTO officials (name)\nOUTPUT INSERTED.id\nVALUES (?)", true},
		{"INSERT INTO officials (name)\toutput inserted.id VALUES (?)", true},
		{"INSERT INTO officials (name) VALUES ('output ')", false},
		{"INSERT INTO officials (name) VALUES (?) -- OUTPUT", false},
		{"INSERT INTO officials (name) VALUES (?)", false},
	}

	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			assert.Equal(t, tt.want, HasOutput(tt.stmt))
		})
	}
}
