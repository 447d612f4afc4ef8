package shardwriter

import (
	"encoding/json"
	"fmt"

	"github.com/grimsoda/ppextender/internal/batch"
	"github.com/grimsoda/ppextender/internal/sqlval"
)

type jsonSchemaField struct {
	Tag string `json:"Tag"`
}

type jsonSchema struct {
	Tag    string            `json:"Tag"`
	Fields []jsonSchemaField `json:"Fields"`
}

// parquetSchemaOf renders batch.Schema into the JSON schema document
// xitongsys/parquet-go's JSONWriter expects, with dictionary encoding and
// per-column statistics enabled, and every field optional (nullable) since
// the decoder never guarantees a value is present.
func parquetSchemaOf(schema batch.Schema) (string, error) {
	fields := make([]jsonSchemaField, len(schema.Fields))
	for i, f := range schema.Fields {
		fields[i] = jsonSchemaField{Tag: fieldTag(f)}
	}
	doc := jsonSchema{
		Tag:    "name=parquet_go_root, repetitiontype=REQUIRED",
		Fields: fields,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("shardwriter: marshal schema: %w", err)
	}
	return string(b), nil
}

func fieldTag(f batch.Field) string {
	switch f.Type {
	case sqlval.KindInt:
		return fmt.Sprintf("name=%s, type=INT64, encoding=PLAIN_DICTIONARY, repetitiontype=OPTIONAL", f.Name)
	case sqlval.KindFloat:
		return fmt.Sprintf("name=%s, type=DOUBLE, encoding=PLAIN_DICTIONARY, repetitiontype=OPTIONAL", f.Name)
	default:
		return fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY, repetitiontype=OPTIONAL", f.Name)
	}
}

// rowJSON renders row i of batch columnarly into the flat map the
// JSONWriter expects, omitting null cells so the column stays optional.
func rowJSON(b *batch.Batch, row int) (string, error) {
	m := make(map[string]interface{}, len(b.Schema.Fields))
	for i, f := range b.Schema.Fields {
		v := b.Columns[i][row]
		if v.IsNull() {
			continue
		}
		switch f.Type {
		case sqlval.KindInt:
			m[f.Name] = v.Int
		case sqlval.KindFloat:
			m[f.Name] = v.Flt
		default:
			m[f.Name] = v.AsString()
		}
	}
	out, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("shardwriter: marshal row: %w", err)
	}
	return string(out), nil
}
