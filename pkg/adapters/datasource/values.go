package datasource

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeValue converts a driver value into the small set of types handlers
// see regardless of engine: int64, float64, string, bool, time.Time, []byte
// and nil. dbType is the driver's DatabaseTypeName and may be empty.
func NormalizeValue(dbType string, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return normalizeBytes(strings.ToUpper(dbType), val)
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val)
		}
		return strconv.FormatUint(val, 10)
	case float32:
		return float64(val)
	case sql.RawBytes:
		return normalizeBytes(strings.ToUpper(dbType), []byte(val))
	}
	return v
}

func normalizeBytes(dbType string, b []byte) any {
	switch {
	case isBinaryType(dbType):
		return append([]byte(nil), b...)
	case isIntegerType(dbType):
		if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			return n
		}
	case isDecimalType(dbType):
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
	}
	return string(b)
}

func isBinaryType(t string) bool {
	switch t {
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BINARY", "VARBINARY", "IMAGE", "BYTEA":
		return true
	}
	return false
}

func isIntegerType(t string) bool {
	switch t {
	case "INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT",
		"UNSIGNED INT", "UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT", "UNSIGNED BIGINT", "YEAR":
		return true
	}
	return false
}

func isDecimalType(t string) bool {
	switch t {
	case "DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}

// AsInt64 converts the integer-ish values engines hand back for ids and counts.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true
		}
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	case []byte:
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// MustColumn returns rows[0][column] or an error naming the missing column.
func MustColumn(result *QueryResult, column string) (any, error) {
	if result == nil || len(result.Rows) == 0 {
		return nil, fmt.Errorf("expected a row with column %q, got none", column)
	}
	v, ok := result.Rows[0][column]
	if !ok {
		return nil, fmt.Errorf("column %q missing from result", column)
	}
	return v, nil
}
