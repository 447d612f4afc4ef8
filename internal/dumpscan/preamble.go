package dumpscan

import (
	"regexp"
	"strings"
)

// insertIntoPattern recognizes "INSERT INTO <id>" where <id> may be
// wrapped in backticks, single, or double quotes (spec §4.B/§6). The
// identifier itself is captured so matchesTarget can compare it against
// the configured table name case-insensitively.
var insertIntoPattern = regexp.MustCompile(`(?is)INSERT\s+INTO\s+[` + "`" + `"']?([a-zA-Z0-9_$]+)[` + "`" + `"']?`)

// columnListPattern captures an optional parenthesized column list
// immediately preceding VALUES.
var columnListPattern = regexp.MustCompile(`(?is)\(([^)]+)\)\s*VALUES\s*$`)

// matchesTarget reports whether preamble (everything accumulated between
// the end of the previous statement and "VALUES") is an INSERT INTO
// statement targeting table.
func matchesTarget(preamble, table string) bool {
	m := insertIntoPattern.FindStringSubmatch(preamble)
	if m == nil {
		return false
	}
	return strings.EqualFold(m[1], table)
}

// extractColumns pulls the optional parenthesized column list that
// precedes VALUES, splitting on commas and stripping identifier
// quoting from each name. It returns nil when the statement has no
// explicit column list — the scanner then falls back to whatever
// column order a CREATE TABLE for the same table declared (see
// Scanner.captureDeclaredSchema / internal/ddl).
func extractColumns(preamble string) []string {
	m := columnListPattern.FindStringSubmatch(preamble)
	if m == nil {
		return nil
	}

	parts := strings.Split(m[1], ",")
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		columns = append(columns, strings.Trim(strings.TrimSpace(p), "`\"'"))
	}
	return columns
}
