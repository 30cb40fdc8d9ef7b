package ddl

import (
	"fmt"
	"strings"
)

// maxIdentifierLen is the maximum length allowed for a view name.
const maxIdentifierLen = 255

// ValidateViewName checks that name can be used as a quoted DuckDB identifier:
//   - Non-empty
//   - At most 255 bytes
//   - No NUL bytes
//
// Any other character is allowed because the name is always quoted.
func ValidateViewName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("name must be at most %d characters", maxIdentifierLen)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("name must not contain NUL bytes")
	}
	return nil
}

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double-quote characters by doubling them (standard SQL).
//
// Always quotes unconditionally; the caller should validate first if needed.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral wraps a string value in single quotes, escaping any
// embedded single-quote characters by doubling them (standard SQL).
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
