package database

import (
	"strconv"
	"strings"

	"dotmac/internal/persistence"
)

// Rebind rewrites ? placeholders to $n for postgres, statements are
// written with ? throughout. Placeholders inside quoted literals are left
// alone.
func Rebind(dialect persistence.Dialect, stmt string) string {
	if dialect != persistence.DialectPostgres {
		return stmt
	}
	var builder strings.Builder
	builder.Grow(len(stmt) + 8)
	index := 0
	inQuote := false
	for _, r := range stmt {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == '?' && !inQuote:
			index++
			builder.WriteByte('$')
			builder.WriteString(strconv.Itoa(index))
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// QuoteIdentifier quotes a column or table name for the dialect
func QuoteIdentifier(dialect persistence.Dialect, name string) string {
	if dialect == persistence.DialectPostgres {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
