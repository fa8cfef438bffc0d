// Package sql screens user-supplied values before they are bound to statements.
// Binding already keeps values out of the SQL text; screening rejects obvious
// injection payloads at the edge so they never reach storage or logs.
package sql

import (
	"fmt"
	"slices"

	libinjection "github.com/corazawaf/libinjection-go"
)

// Finding reports a field whose value libinjection recognizes as SQL.
type Finding struct {
	Field       string
	Fingerprint string
}

func (f *Finding) Error() string {
	return fmt.Sprintf("field %q contains a SQL injection pattern (fingerprint %s)", f.Field, f.Fingerprint)
}

// Check returns a Finding when value is a string that looks like SQL injection.
// Non-string values return nil.
func Check(field string, value any) *Finding {
	s, ok := value.(string)
	if !ok || s == "" {
		return nil
	}
	if isSQLi, fingerprint := libinjection.IsSQLi(s); isSQLi {
		return &Finding{Field: field, Fingerprint: string(fingerprint)}
	}
	return nil
}

// Screen checks values in field-name order and returns the first Finding.
func Screen(values map[string]any) *Finding {
	fields := make([]string, 0, len(values))
	for field := range values {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	for _, field := range fields {
		if f := Check(field, values[field]); f != nil {
			return f
		}
	}
	return nil
}
