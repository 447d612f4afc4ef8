// Package batch assembles typed rows into fixed-size columnar batches
// (spec §4.D), inferring each column's physical type from its first
// non-null sample and widening to string on any later conflict.
package batch

import (
	"strconv"

	"github.com/grimsoda/ppextender/internal/dumpscan"
	"github.com/grimsoda/ppextender/internal/modkey"
	"github.com/grimsoda/ppextender/internal/sqlval"
)

// Field describes one column's frozen schema: its name and committed
// physical type.
type Field struct {
	Name string
	Type sqlval.Kind
}

// Schema is the frozen column list of a sealed batch.
type Schema struct {
	Fields []Field
}

// Batch is a rectangular columnar chunk of up to Builder's configured
// batch_rows rows. Columns are stored positionally; Columns[i] holds every
// row's value for Schema.Fields[i].
type Batch struct {
	Schema  Schema
	Columns [][]sqlval.Value
	Rows    int
}

// Builder accumulates typed rows and seals a Batch every time it reaches
// batchRows rows. dataColumn names the JSON payload column that feeds the
// mod normalizer (empty disables derivation).
type Builder struct {
	batchRows  int
	dataColumn string

	columnIdx map[string]int
	fields    []Field
	columns   [][]sqlval.Value
	rows      int
}

// NewBuilder constructs a Builder that seals a batch every batchRows rows.
func NewBuilder(batchRows int, dataColumn string) *Builder {
	return &Builder{
		batchRows:  batchRows,
		dataColumn: dataColumn,
		columnIdx:  make(map[string]int),
	}
}

// Add appends one raw tuple (as produced by dumpscan) to the builder,
// classifying each lexeme, deriving mods_key/speed_mod from dataColumn,
// and sealing + returning a Batch if batchRows is now reached.
func (b *Builder) Add(row dumpscan.Row, columns []string) (*Batch, bool) {
	values := make([]sqlval.Value, len(row))
	var dataRaw *string
	for i, lexeme := range row {
		values[i] = sqlval.Classify(lexeme)
		if columns != nil && i < len(columns) && columns[i] == b.dataColumn && values[i].Kind == sqlval.KindString {
			s := values[i].Str
			dataRaw = &s
		}
	}

	norm := modkey.Derive(dataRaw)
	values = append(values, sqlval.Value{Kind: sqlval.KindString, Str: norm.ModsKey})
	if norm.SpeedMod != nil {
		values = append(values, sqlval.Value{Kind: sqlval.KindString, Str: *norm.SpeedMod})
	} else {
		values = append(values, sqlval.Null)
	}

	names := make([]string, len(values))
	copy(names, columns)
	names[len(values)-2] = "mods_key"
	names[len(values)-1] = "speed_mod"
	for i := len(columns); i < len(values)-2; i++ {
		names[i] = columnNameFallback(i)
	}

	b.appendRow(names, values)
	b.rows++

	if b.rows >= b.batchRows {
		return b.seal(), true
	}
	return nil, false
}

// Flush seals whatever partial batch is buffered, or returns nil if empty.
func (b *Builder) Flush() *Batch {
	if b.rows == 0 {
		return nil
	}
	return b.seal()
}

// appendRow writes one row's values into the builder's columnar storage,
// creating new columns (backfilled with null for prior rows) as needed,
// and backfilling null into any existing column this row didn't supply.
func (b *Builder) appendRow(names []string, values []sqlval.Value) {
	touched := make(map[int]bool, len(names))

	for i, name := range names {
		idx, ok := b.columnIdx[name]
		if !ok {
			idx = len(b.fields)
			b.columnIdx[name] = idx
			b.fields = append(b.fields, Field{Name: name, Type: sqlval.KindNull})
			b.columns = append(b.columns, make([]sqlval.Value, b.rows, b.rows+1))
		}
		b.columns[idx] = append(b.columns[idx], b.coerce(idx, values[i]))
		touched[idx] = true
	}

	for idx := range b.columns {
		if !touched[idx] {
			b.columns[idx] = append(b.columns[idx], sqlval.Null)
		}
	}
}

// coerce applies the type-widening rule from spec §4.D: the first
// non-null value for a column commits its physical type; any later value
// of a different kind forces the whole column to string.
func (b *Builder) coerce(idx int, v sqlval.Value) sqlval.Value {
	field := &b.fields[idx]

	switch {
	case v.IsNull():
		return v
	case field.Type == sqlval.KindNull:
		field.Type = v.Kind
		return v
	case field.Type != v.Kind:
		widenToString(field, b.columns[idx])
		return sqlval.Value{Kind: sqlval.KindString, Str: v.AsString()}
	default:
		return v
	}
}

// widenToString rebuilds column in place as string-typed, per spec §4.D's
// type-conflict rule: no row is dropped, the whole column is downcast.
func widenToString(field *Field, col []sqlval.Value) {
	field.Type = sqlval.KindString
	for i, v := range col {
		if !v.IsNull() {
			col[i] = sqlval.Value{Kind: sqlval.KindString, Str: v.AsString()}
		}
	}
}

func (b *Builder) seal() *Batch {
	schema := Schema{Fields: make([]Field, len(b.fields))}
	copy(schema.Fields, b.fields)

	cols := make([][]sqlval.Value, len(b.columns))
	copy(cols, b.columns)

	batch := &Batch{Schema: schema, Columns: cols, Rows: b.rows}

	b.columnIdx = make(map[string]int)
	b.fields = nil
	b.columns = nil
	b.rows = 0
	return batch
}

func columnNameFallback(i int) string {
	return "col_" + strconv.Itoa(i)
}
