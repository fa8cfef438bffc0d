package datasource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desa-digital/portal-engine/pkg/apperrors"
)

// PlaceholderStyle is how an engine spells positional parameters.
type PlaceholderStyle int

const (
	// QuestionPlaceholders keeps '?' (sqlite).
	QuestionPlaceholders PlaceholderStyle = iota
	// MySQLPlaceholders keeps '?' and treats backslash as an escape inside string literals.
	MySQLPlaceholders
	// DollarPlaceholders rewrites to $1, $2, ... (postgres).
	DollarPlaceholders
	// AtPPlaceholders rewrites to @p1, @p2, ... (sql server).
	AtPPlaceholders
)

// lexRules are the dialect differences that matter when scanning for code.
type lexRules struct {
	backslashEscapes bool // MySQL string literals
	bracketIdents    bool // SQL Server [quoted identifiers]
}

func (s PlaceholderStyle) lexRules() lexRules {
	return lexRules{
		backslashEscapes: s == MySQLPlaceholders,
		bracketIdents:    s == AtPPlaceholders,
	}
}

// walkCode calls visit with the offset of every byte that is SQL code, that is
// outside string literals, quoted identifiers and comments.
func walkCode(stmt string, rules lexRules, visit func(i int)) {
	n := len(stmt)
	for i := 0; i < n; i++ {
		c := stmt[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(stmt, i, c, rules.backslashEscapes && c == '\'')
		case c == '[' && rules.bracketIdents:
			i = skipQuoted(stmt, i, ']', false)
		case c == '-' && i+1 < n && stmt[i+1] == '-':
			for i < n && stmt[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && stmt[i+1] == '*':
			end := strings.Index(stmt[i+2:], "*/")
			if end < 0 {
				return
			}
			i += end + 3
		default:
			visit(i)
		}
	}
}

// skipQuoted returns the offset of the byte closing the quoted run starting at
// start. A doubled closing quote is an escaped quote.
func skipQuoted(stmt string, start int, closing byte, backslashEscapes bool) int {
	n := len(stmt)
	for i := start + 1; i < n; i++ {
		switch {
		case backslashEscapes && stmt[i] == '\\':
			i++
		case stmt[i] == closing:
			if i+1 < n && stmt[i+1] == closing {
				i++
				continue
			}
			return i
		}
	}
	return n - 1
}

// Rebind rewrites '?' placeholders for style and returns the rewritten statement
// with the number of placeholders found. Question marks inside literals,
// quoted identifiers and comments are left alone.
func Rebind(stmt string, style PlaceholderStyle) (string, int) {
	var positions []int
	walkCode(stmt, style.lexRules(), func(i int) {
		if stmt[i] == '?' {
			positions = append(positions, i)
		}
	})

	if style == QuestionPlaceholders || style == MySQLPlaceholders || len(positions) == 0 {
		return stmt, len(positions)
	}

	prefix := "$"
	if style == AtPPlaceholders {
		prefix = "@p"
	}

	var b strings.Builder
	b.Grow(len(stmt) + len(positions)*3)
	last := 0
	for n, pos := range positions {
		b.WriteString(stmt[last:pos])
		b.WriteString(prefix)
		b.WriteString(strconv.Itoa(n + 1))
		last = pos + 1
	}
	b.WriteString(stmt[last:])
	return b.String(), len(positions)
}

// BindParams rebinds stmt and checks that exactly len(params) placeholders exist.
func BindParams(stmt string, params []any, style PlaceholderStyle) (string, error) {
	bound, count := Rebind(stmt, style)
	if count != len(params) {
		return "", apperrors.NewQueryError(apperrors.QueryBadRequest,
			fmt.Errorf("statement has %d placeholders but %d parameters were supplied", count, len(params)))
	}
	return bound, nil
}

// keywords returns the upper-cased words of stmt that are SQL code.
func keywords(stmt string) []string {
	var words []string
	start, end, prev := -1, -1, -2
	flush := func() {
		if start >= 0 {
			words = append(words, strings.ToUpper(stmt[start:end+1]))
			start = -1
		}
	}
	walkCode(stmt, lexRules{}, func(i int) {
		if i != prev+1 {
			flush()
		}
		prev = i
		c := stmt[i]
		letter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if letter || (start >= 0 && c >= '0' && c <= '9') {
			if start < 0 {
				start = i
			}
			end = i
			return
		}
		flush()
	})
	flush()
	return words
}

func leadingKeyword(stmt string) string {
	if words := keywords(stmt); len(words) > 0 {
		return words[0]
	}
	return ""
}

func hasKeyword(stmt string, want ...string) bool {
	for _, w := range keywords(stmt) {
		for _, k := range want {
			if w == k {
				return true
			}
		}
	}
	return false
}

// ReturnsRows reports whether stmt produces a result set.
func ReturnsRows(stmt string) bool {
	switch leadingKeyword(stmt) {
	case "SELECT", "WITH", "VALUES", "SHOW", "EXPLAIN", "PRAGMA", "DESCRIBE", "TABLE":
		return true
	}
	return HasReturning(stmt)
}

// IsReadOnly reports whether stmt cannot modify data. Only read-only statements
// are retried on transient failures.
func IsReadOnly(stmt string) bool {
	switch leadingKeyword(stmt) {
	case "SELECT", "SHOW", "EXPLAIN", "DESCRIBE", "VALUES", "TABLE":
		return !hasKeyword(stmt, "INTO")
	case "WITH":
		return !hasKeyword(stmt, "INSERT", "UPDATE", "DELETE", "MERGE")
	}
	return false
}

// IsInsert reports whether stmt is an INSERT.
func IsInsert(stmt string) bool {
	return leadingKeyword(stmt) == "INSERT"
}

// HasReturning reports whether stmt carries a RETURNING clause.
func HasReturning(stmt string) bool {
	return hasKeyword(stmt, "RETURNING")
}

// HasOutput reports whether stmt carries an SQL Server OUTPUT clause.
func HasOutput(stmt string) bool {
	return hasKeyword(stmt, "OUTPUT")
}
