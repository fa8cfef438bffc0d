package datasource

import (
	"fmt"
	"strconv"
)

// ParamString returns the first non-empty string stored under one of keys.
func ParamString(params map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := params[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// ParamInt reads an integer that may arrive as int, float64 (JSON) or string (env).
// A missing key returns def.
func ParamInt(params map[string]any, key string, def int) (int, error) {
	switch v := params[key].(type) {
	case nil:
		return def, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number, got %q", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s has unsupported type %T", key, v)
	}
}
