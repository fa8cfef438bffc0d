package datasource

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		dbType string
		in     any
		want   any
	}{
		{"nil", "TEXT", nil, nil},
		{"int32 widened", "INT4", int32(7), int64(7)},
		{"float32 widened", "REAL", float32(1.5), float64(1.5)},
		{"text bytes", "VARCHAR", []byte("Warung Bu Sri"), "Warung Bu Sri"},
		{"untyped bytes", "", []byte("x"), "x"},
		{"integer bytes", "BIGINT", []byte("42"), int64(42)},
		{"decimal bytes", "DECIMAL", []byte("-6.2088"), -6.2088},
		{"binary stays binary", "BLOB", []byte{0x00, 0x01}, []byte{0x00, 0x01}},
		{"time untouched", "DATETIME", now, now},
		{"bool untouched", "BOOL", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeValue(tt.dbType, tt.in))
		})
	}
}

func TestNormalizeValue_CopiesBinary(t *testing.T) {
	src := []byte{1, 2, 3}
	got := NormalizeValue("BLOB", src).([]byte)
	src[0] = 9
	assert.Equal(t, byte(1), got[0])
}

func TestAsInt64(t *testing.T) {
	for _, v := range []any{int64(5), 5, int32(5), float64(5), json.Number("5"), "5", []byte("5")} {
		got, ok := AsInt64(v)
		assert.True(t, ok, "%T", v)
		assert.Equal(t, int64(5), got, "%T", v)
	}

	for _, v := range []any{nil, 5.5, "five", true} {
		_, ok := AsInt64(v)
		assert.False(t, ok, "%v", v)
	}
}

func TestMustColumn(t *testing.T) {
	v, err := MustColumn(&QueryResult{Rows: []map[string]any{{"total": int64(1)}}}, "total")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = MustColumn(&QueryResult{Rows: []map[string]any{}}, "total")
	assert.Error(t, err)

	_, err = MustColumn(&QueryResult{Rows: []map[string]any{{"n": 1}}}, "total")
	assert.Error(t, err)
}
