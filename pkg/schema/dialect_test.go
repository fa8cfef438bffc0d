package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desa-digital/portal-engine/pkg/config"
)

func TestCreateTable_PerEngine(t *testing.T) {
	table := Table{Name: "officials", Columns: []Column{
		{Name: "name", Type: ShortText, NotNull: true},
		{Name: "sort_order", Type: Integer, NotNull: true, Default: "0"},
	}}

	tests := []struct {
		engine   string
		prefix   string
		contains []string
	}{
		{config.EngineSQLite, "CREATE TABLE IF NOT EXISTS officials (", []string{
			"id INTEGER PRIMARY KEY AUTOINCREMENT", "name VARCHAR(255) NOT NULL", "sort_order INTEGER NOT NULL DEFAULT 0",
			"created_at DATETIME DEFAULT CURRENT_TIMESTAMP",
		}},
		{config.EnginePostgres, "CREATE TABLE IF NOT EXISTS officials (", []string{
			"id BIGSERIAL PRIMARY KEY", "sort_order BIGINT NOT NULL DEFAULT 0", "updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
		}},
		{config.EngineMySQL, "CREATE TABLE IF NOT EXISTS officials (", []string{
			"id BIGINT AUTO_INCREMENT PRIMARY KEY", "created_at DATETIME DEFAULT CURRENT_TIMESTAMP",
		}},
		{config.EngineMSSQL, "IF OBJECT_ID(N'officials', N'U') IS NULL CREATE TABLE officials (", []string{
			"id BIGINT IDENTITY(1,1) PRIMARY KEY", "name NVARCHAR(255) NOT NULL", "created_at DATETIME2 DEFAULT CURRENT_TIMESTAMP",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			d, err := DialectFor(tt.engine)
			require.NoError(t, err)

			stmt := d.CreateTable(table)
			assert.Contains(t, stmt, tt.prefix)
			for _, want := range tt.contains {
				assert.Contains(t, stmt, want)
			}
		})
	}
}

func TestDialectFor_Unsupported(t *testing.T) {
	_, err := DialectFor("oracle")
	assert.Error(t, err)
}

func TestTables_UnknownDomain(t *testing.T) {
	assert.Nil(t, Tables("nonexistent"))
	assert.Len(t, Tables(config.DomainMain), 4)
}
