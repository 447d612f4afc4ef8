package dumpscan

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// tuplePattern matches one parenthesized VALUES tuple, tolerating a single
// level of nested parentheses so a JSON-carrying string field such as
// ('{"mods":[{"acronym":"DT"}]}') still closes correctly.
var tuplePattern = regexp.MustCompile(`(?s)\(([^()]*(?:\([^()]*\)[^()]*)*)\)`)

// insertLinePattern recognizes a single-line "INSERT INTO <id> [(...)]
// VALUES <tuples>;" statement and captures the tuple section.
var insertLinePattern = regexp.MustCompile(`(?is)INSERT\s+INTO\s+[` + "`" + `"']?\w+[` + "`" + `"']?\s+(?:\([^)]+\)\s+)?VALUES\s+(.+?)(?:;\s*)?$`)

// BulkScan is the regex-driven fast-path alternative to Scanner.Scan (spec
// §4.B MAY). It trades Scanner's byte-at-a-time generality for line-oriented
// throughput: it assumes every INSERT INTO statement targeting table is
// emitted on a single line, the layout mysqldump produces with its default
// --extended-insert batching. A dump that wraps a single INSERT across
// multiple lines silently loses that statement's rows under BulkScan —
// callers unsure of their dump's layout should use Scan instead.
//
// A line with its own column list uses it, and that list is then reused
// for later lines that have none; before any explicit list is seen, lines
// fall back to declaredColumns (typically populated from a preceding CREATE
// TABLE, the same fallback Scanner.captureDeclaredSchema performs).
func BulkScan(r io.Reader, table string, declaredColumns []string, handler Handler) (int64, error) {
	var columns []string
	var rowsEmitted int64

	br := bufio.NewScanner(r)
	br.Buffer(make([]byte, 64*1024), 1<<24)

	for br.Scan() {
		line := br.Text()
		upper := strings.ToUpper(line)
		if !strings.Contains(upper, "INSERT") || !strings.Contains(upper, strings.ToUpper(table)) {
			continue
		}
		if !matchesTarget(line, table) {
			continue
		}

		m := insertLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		valuesSection := m[1]

		if cols := extractColumns(line[:strings.Index(upper, "VALUES")+len("VALUES")]); cols != nil {
			columns = cols
		} else if columns == nil {
			columns = declaredColumns
		}

		for _, tupleMatch := range tuplePattern.FindAllStringSubmatch(valuesSection, -1) {
			row := splitTupleFields(tupleMatch[1])
			if len(row) == 0 {
				continue
			}
			rowsEmitted++
			if err := handler(row, columns); err != nil {
				return rowsEmitted, err
			}
		}
	}
	return rowsEmitted, br.Err()
}

// splitTupleFields splits a tuple's inner text on top-level commas,
// honoring quoted strings (with doubled- or backslash-escaped delimiters)
// and nested parentheses, mirroring Scanner's READ_FIELD byte handling but
// operating over an already-extracted line instead of a byte stream.
func splitTupleFields(tuple string) Row {
	var row Row
	var field strings.Builder
	var inString bool
	var quote byte
	var depth int

	runes := []byte(tuple)
	for i := 0; i < len(runes); i++ {
		b := runes[i]
		switch {
		case inString:
			field.WriteByte(b)
			if b == '\\' && i+1 < len(runes) {
				i++
				field.WriteByte(runes[i])
				continue
			}
			if b == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					i++
					field.WriteByte(runes[i])
					continue
				}
				inString = false
			}
		case b == '\'' || b == '"':
			inString = true
			quote = b
			field.WriteByte(b)
		case b == '(':
			depth++
			field.WriteByte(b)
		case b == ')':
			depth--
			field.WriteByte(b)
		case b == ',' && depth == 0:
			if f := strings.TrimSpace(field.String()); f != "" {
				row = append(row, f)
			}
			field.Reset()
		default:
			field.WriteByte(b)
		}
	}
	if f := strings.TrimSpace(field.String()); f != "" {
		row = append(row, f)
	}
	return row
}
