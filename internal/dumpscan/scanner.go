// Package dumpscan implements the streaming SQL-dump decoder described in
// spec §4.B: a byte-oriented state machine that locates INSERT INTO
// statements targeting a configured table and yields completed tuples
// without ever buffering the whole dump file. Peak residency is bounded by
// the length of the longest single statement, not by file size.
package dumpscan

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/grimsoda/ppextender/internal/ddl"
)

// Row is a raw tuple: the ordered lexeme slices exactly as they appeared
// between a row's outermost parentheses, still quoted/escaped. Classifying
// a lexeme into a typed value is the value tokenizer's job (sqlval).
type Row []string

// Handler receives a completed row together with the column list declared
// by the statement that produced it. When the statement has no explicit
// column list, the column order of an earlier CREATE TABLE for the table is
// passed instead; columns is nil only when neither is available.
type Handler func(row Row, columns []string) error

type state int

const (
	stateSearchInsert state = iota
	stateReadValues
	stateReadRow
	stateReadField
)

// Scanner is the byte-at-a-time dump decoder. It is single-use: construct
// one per Scan call.
type Scanner struct {
	table   string
	handler Handler

	state state

	preambleBuf     strings.Builder
	columns         []string
	declaredColumns []string // from a CREATE TABLE seen earlier in the dump, if any

	field      strings.Builder
	row        Row
	parenDepth int

	inString bool
	quote    byte

	rowsEmitted int64
}

// NewScanner constructs a byte-oriented scanner targeting the given table
// name (case-insensitive, backtick/quote wrapper tolerant).
func NewScanner(table string, handler Handler) *Scanner {
	return &Scanner{table: table, handler: handler}
}

// RowsEmitted returns the number of complete tuples handed to the handler
// so far.
func (s *Scanner) RowsEmitted() int64 { return s.rowsEmitted }

// Scan consumes r to EOF, invoking the handler for every complete tuple
// recognized inside an INSERT INTO statement targeting the configured
// table. A statement truncated mid-field or mid-tuple silently drops its
// partial row (spec's LexicalSkip) without aborting the scan — earlier
// complete rows from the same statement remain valid outputs. Scan returns
// an error only for handler errors or I/O failures from r.
func (s *Scanner) Scan(r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)

	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("dumpscan: read: %w", err)
		}

		if !s.inString {
			if b == '-' {
				if peek, perr := br.Peek(1); perr == nil && peek[0] == '-' {
					_, _ = br.ReadByte()
					if skipLineComment(br) != nil {
						return nil
					}
					continue
				}
			}
			if b == '/' {
				if peek, perr := br.Peek(1); perr == nil && peek[0] == '*' {
					_, _ = br.ReadByte()
					if skipBlockComment(br) != nil {
						return nil
					}
					continue
				}
			}
		}

		if err := s.dispatch(br, b); err != nil {
			return err
		}
	}
}

func skipLineComment(br *bufio.Reader) error {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return err
		}
		if c == '\n' {
			return nil
		}
	}
}

func skipBlockComment(br *bufio.Reader) error {
	var prev byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			return err
		}
		if prev == '*' && c == '/' {
			return nil
		}
		prev = c
	}
}

func (s *Scanner) dispatch(br *bufio.Reader, b byte) error {
	switch s.state {
	case stateSearchInsert:
		return s.onSearchInsert(b)
	case stateReadValues:
		return s.onReadValues(b)
	case stateReadRow:
		return s.onReadRow(b)
	case stateReadField:
		return s.onReadField(br, b)
	default:
		return nil
	}
}

func (s *Scanner) onSearchInsert(b byte) error {
	s.preambleBuf.WriteByte(b)
	buf := s.preambleBuf.String()
	upper := strings.ToUpper(buf)

	if b == ';' {
		s.captureDeclaredSchema(buf)
		s.preambleBuf.Reset()
		return nil
	}

	if idx := strings.Index(upper, "VALUES"); idx >= 0 {
		if matchesTarget(buf[:idx], s.table) {
			s.columns = extractColumns(buf[:idx+len("VALUES")])
			if s.columns == nil {
				s.columns = s.declaredColumns
			}
			s.state = stateReadValues
		}
		s.preambleBuf.Reset()
		return nil
	}

	// Bound the preamble buffer: a well-formed "INSERT INTO <id> (...) VALUES"
	// prefix never needs more than a few KB even with hundreds of columns.
	if s.preambleBuf.Len() > 1<<20 {
		s.preambleBuf.Reset()
	}
	return nil
}

// captureDeclaredSchema tries to parse a just-completed statement as the
// target table's CREATE TABLE, caching its declared column order for
// INSERT statements that omit an explicit column list — the default for
// mysqldump output without --complete-insert. A non-CREATE-TABLE
// statement, or a parse error, is silently ignored: this is a best-effort
// fallback, not a requirement for scanning to proceed.
func (s *Scanner) captureDeclaredSchema(stmt string) {
	if s.declaredColumns != nil {
		return
	}
	if !strings.Contains(strings.ToUpper(stmt), "CREATE") {
		return
	}
	schema, err := ddl.Extract(stmt, s.table)
	if err != nil || schema == nil {
		return
	}
	s.declaredColumns = schema.Columns
}

func (s *Scanner) onReadValues(b byte) error {
	switch b {
	case '(':
		s.state = stateReadRow
		s.parenDepth = 1
		s.row = s.row[:0]
		s.field.Reset()
	case ';':
		s.state = stateSearchInsert
		s.preambleBuf.Reset()
	}
	return nil
}

// onReadRow handles the gap between tuples (depth 0) and the dispatch of a
// tuple's very first character (depth 1, empty buffer) — see spec §4.B.
func (s *Scanner) onReadRow(b byte) error {
	switch {
	case (b == '\'' || b == '"') && !s.inString:
		s.inString = true
		s.quote = b
		s.field.WriteByte(b)
		s.state = stateReadField
	case b == '(':
		s.parenDepth++
		if s.parenDepth == 1 {
			s.field.Reset()
			s.row = s.row[:0]
		} else {
			s.field.WriteByte(b)
		}
		s.state = stateReadField
	case b == ')':
		s.parenDepth--
		if s.parenDepth == 0 {
			return s.commitRow()
		}
		s.field.WriteByte(b)
		s.state = stateReadField
	case b == ',' && s.parenDepth == 1:
		s.commitField()
		s.state = stateReadField
	case b == ';' && s.parenDepth == 0:
		s.state = stateSearchInsert
		s.preambleBuf.Reset()
	case isSpace(b):
		// ignore whitespace, whether between tuples or leading a field
	default:
		if s.parenDepth == 0 {
			// between tuples: stray content (commas, noise) is ignored
			return nil
		}
		s.field.WriteByte(b)
		s.state = stateReadField
	}
	return nil
}

// onReadField handles everything once inside a field: string delimiters,
// nested parentheses (JSON-carrying strings may contain them), and field
// / tuple boundaries.
func (s *Scanner) onReadField(br *bufio.Reader, b byte) error {
	if s.inString {
		return s.onStringByte(br, b)
	}

	switch {
	case (b == '\'' || b == '"'):
		s.inString = true
		s.quote = b
		s.field.WriteByte(b)
	case b == '(':
		s.parenDepth++
		s.field.WriteByte(b)
	case b == ')':
		s.parenDepth--
		if s.parenDepth == 0 {
			return s.commitRow()
		}
		s.field.WriteByte(b)
	case b == ',' && s.parenDepth == 1:
		s.commitField()
		// stays in READ_FIELD for the next field, per spec §4.B
	case b == ';' && s.parenDepth == 0:
		s.state = stateSearchInsert
		s.preambleBuf.Reset()
	default:
		s.field.WriteByte(b)
	}
	return nil
}

// onStringByte handles a byte while inside a quoted field, honoring
// doubled-delimiter and backslash escaping by peeking one byte ahead. The
// raw doubled/escaped sequence is preserved verbatim in the field buffer;
// unescaping happens later in the value tokenizer (sqlval).
func (s *Scanner) onStringByte(br *bufio.Reader, b byte) error {
	if b == '\\' {
		if peek, perr := br.Peek(1); perr == nil && peek[0] == s.quote {
			_, _ = br.ReadByte()
			s.field.WriteByte(b)
			s.field.WriteByte(peek[0])
			return nil
		}
		s.field.WriteByte(b)
		return nil
	}

	if b == s.quote {
		if peek, perr := br.Peek(1); perr == nil && peek[0] == s.quote {
			_, _ = br.ReadByte()
			s.field.WriteByte(b)
			s.field.WriteByte(peek[0])
			return nil
		}
		s.field.WriteByte(b)
		s.inString = false
		s.state = stateReadField
		return nil
	}

	s.field.WriteByte(b)
	return nil
}

func (s *Scanner) commitField() {
	f := strings.TrimSpace(s.field.String())
	if f != "" {
		s.row = append(s.row, f)
	}
	s.field.Reset()
}

func (s *Scanner) commitRow() error {
	s.commitField()
	s.state = stateReadRow
	s.parenDepth = 0
	if len(s.row) == 0 {
		return nil
	}
	row := make(Row, len(s.row))
	copy(row, s.row)
	s.row = s.row[:0]
	s.rowsEmitted++
	return s.handler(row, s.columns)
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}
