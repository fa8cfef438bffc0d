package schema

import (
	"fmt"
	"strings"

	"github.com/desa-digital/portal-engine/pkg/config"
)

// ColumnType is an engine-neutral column type.
type ColumnType int

const (
	ShortText ColumnType = iota
	LongText
	Integer
	Real
	Timestamp
)

// Column describes one non-key column. Every table also gets an auto-increment
// id plus created_at and updated_at.
type Column struct {
	Name    string
	Type    ColumnType
	NotNull bool
	Unique  bool
	Default string // SQL literal, rendered as-is
}

// Table is a named list of columns.
type Table struct {
	Name    string
	Columns []Column
}

// Dialect renders DDL for one engine.
type Dialect struct {
	engine string
}

// DialectFor returns the dialect for engine.
func DialectFor(engine string) (Dialect, error) {
	if !config.IsSupportedEngine(engine) {
		return Dialect{}, fmt.Errorf("no DDL dialect for engine %q", engine)
	}
	return Dialect{engine: engine}, nil
}

func (d Dialect) idColumn() string {
	switch d.engine {
	case config.EnginePostgres:
		return "id BIGSERIAL PRIMARY KEY"
	case config.EngineMySQL:
		return "id BIGINT AUTO_INCREMENT PRIMARY KEY"
	case config.EngineMSSQL:
		return "id BIGINT IDENTITY(1,1) PRIMARY KEY"
	default:
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

func (d Dialect) typeName(t ColumnType) string {
	switch t {
	case ShortText:
		if d.engine == config.EngineMSSQL {
			return "NVARCHAR(255)"
		}
		return "VARCHAR(255)"
	case LongText:
		if d.engine == config.EngineMSSQL {
			return "NVARCHAR(MAX)"
		}
		return "TEXT"
	case Integer:
		if d.engine == config.EngineSQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case Real:
		switch d.engine {
		case config.EnginePostgres:
			return "DOUBLE PRECISION"
		case config.EngineMySQL:
			return "DOUBLE"
		case config.EngineMSSQL:
			return "FLOAT"
		}
		return "REAL"
	case Timestamp:
		switch d.engine {
		case config.EnginePostgres:
			return "TIMESTAMP"
		case config.EngineMSSQL:
			return "DATETIME2"
		}
		return "DATETIME"
	}
	return "TEXT"
}

func (d Dialect) column(c Column) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte(' ')
	b.WriteString(d.typeName(c.Type))
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Unique {
		b.WriteString(" UNIQUE")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

// CreateTable renders an idempotent CREATE TABLE statement.
func (d Dialect) CreateTable(t Table) string {
	defs := make([]string, 0, len(t.Columns)+3)
	defs = append(defs, d.idColumn())
	for _, c := range t.Columns {
		defs = append(defs, d.column(c))
	}
	defs = append(defs,
		d.column(Column{Name: "created_at", Type: Timestamp, Default: "CURRENT_TIMESTAMP"}),
		d.column(Column{Name: "updated_at", Type: Timestamp, Default: "CURRENT_TIMESTAMP"}),
	)

	body := "(\n    " + strings.Join(defs, ",\n    ") + "\n)"
	if d.engine == config.EngineMSSQL {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s %s", t.Name, t.Name, body)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s", t.Name, body)
}
