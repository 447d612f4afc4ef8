// Package shardwriter consumes sealed batches and splits them across
// sequentially numbered Parquet shard files under row-group and file-row
// budgets, computing per-file content hashes and a JSON manifest (spec
// §4.E, §6).
package shardwriter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/grimsoda/ppextender/internal/batch"
	"github.com/grimsoda/ppextender/internal/sqlval"
)

// Compression selects the shard file's column compression codec.
type Compression string

const (
	CompressionSnappy Compression = "snappy"
	CompressionNone   Compression = "none"
)

func codecOf(c Compression) parquet.CompressionCodec {
	if c == CompressionNone {
		return parquet.CompressionCodec_UNCOMPRESSED
	}
	return parquet.CompressionCodec_SNAPPY
}

// Writer is the sharded columnar writer: write_batch + finalize (spec
// §4.E). It is not safe for concurrent use.
type Writer struct {
	dir          string
	table        string
	fileRows     int64
	rowGroupRows int64
	compression  Compression
	ext          string

	shardIndex int
	curPath    string
	curSchema  batch.Schema
	curSource  source.ParquetFile
	curWriter  *writer.JSONWriter
	curRows    int64
	rowsInGrp  int64

	firstSchema *batch.Schema
	files       []ManifestFile
	totalRows   int64
}

// New constructs a Writer that owns dir for the duration of one table-run
// (spec §5: "the writer owns the directory between open and finalize").
func New(dir, table string, fileRows, rowGroupRows int64, compression Compression) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("shardwriter: mkdir %s: %w", dir, err)
	}
	return &Writer{
		dir:          dir,
		table:        table,
		fileRows:     fileRows,
		rowGroupRows: rowGroupRows,
		compression:  compression,
		ext:          "parquet",
	}, nil
}

// WriteBatch writes every row of b, opening a new shard whenever none is
// open, the current shard is full, or b's schema differs from the shard
// currently open (spec §4.E: buffer + file-row budget + row-group budget).
func (w *Writer) WriteBatch(b *batch.Batch) error {
	for row := 0; row < b.Rows; row++ {
		if w.curWriter != nil && !sameSchema(w.curSchema, b.Schema) {
			if err := w.closeShard(); err != nil {
				return err
			}
		}
		if w.curWriter != nil && w.curRows >= w.fileRows {
			if err := w.closeShard(); err != nil {
				return err
			}
		}
		if w.curWriter == nil {
			if err := w.openShard(b.Schema); err != nil {
				return err
			}
		}

		line, err := rowJSON(b, row)
		if err != nil {
			return err
		}
		if err := w.curWriter.Write(line); err != nil {
			return fmt.Errorf("shardwriter: write row: %w", err)
		}
		w.curRows++
		w.rowsInGrp++
		w.totalRows++

		if w.rowsInGrp >= w.rowGroupRows {
			if err := w.curWriter.Flush(false); err != nil {
				return fmt.Errorf("shardwriter: flush row group: %w", err)
			}
			w.rowsInGrp = 0
		}
	}
	return nil
}

// Finalize flushes any buffered rows, closes the open shard if any, and
// writes manifest.json to dir.
func (w *Writer) Finalize() (Manifest, error) {
	if err := w.closeShard(); err != nil {
		return Manifest{}, err
	}

	m := Manifest{
		TableName: w.table,
		Version:   manifestVersion,
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		TotalRows: w.totalRows,
		Files:     w.files,
	}
	if w.firstSchema != nil {
		m.Schema = manifestSchemaOf(*w.firstSchema)
	}

	if err := writeManifest(w.dir, m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func (w *Writer) openShard(schema batch.Schema) error {
	path := filepath.Join(w.dir, fmt.Sprintf("part-%06d.%s", w.shardIndex, w.ext))
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("shardwriter: open %s: %w", path, err)
	}

	schemaJSON, err := parquetSchemaOf(schema)
	if err != nil {
		fw.Close()
		return err
	}

	pw, err := writer.NewJSONWriter(schemaJSON, fw, 4)
	if err != nil {
		fw.Close()
		return fmt.Errorf("shardwriter: new writer: %w", err)
	}
	// RowGroupSize is parquet-go's byte-size auto-flush threshold; we
	// disable it in favor of exact row-count flushes via Flush(false).
	pw.RowGroupSize = 1 << 62
	pw.CompressionType = codecOf(w.compression)

	w.curPath = path
	w.curSchema = schema
	w.curSource = fw
	w.curWriter = pw
	w.curRows = 0
	w.rowsInGrp = 0
	if w.firstSchema == nil {
		s := schema
		w.firstSchema = &s
	}
	return nil
}

func (w *Writer) closeShard() error {
	if w.curWriter == nil {
		return nil
	}
	if err := w.curWriter.WriteStop(); err != nil {
		return fmt.Errorf("shardwriter: write stop: %w", err)
	}
	if err := w.curSource.Close(); err != nil {
		return fmt.Errorf("shardwriter: close %s: %w", w.curPath, err)
	}

	hash, size, err := hashFile(w.curPath)
	if err != nil {
		return err
	}

	w.files = append(w.files, ManifestFile{
		File:      filepath.Base(w.curPath),
		Rows:      w.curRows,
		SizeBytes: size,
		Hash:      hash,
	})

	w.shardIndex++
	w.curWriter = nil
	w.curSource = nil
	w.curPath = ""
	return nil
}

func sameSchema(a, b batch.Schema) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i] != b.Fields[i] {
			return false
		}
	}
	return true
}

func manifestSchemaOf(s batch.Schema) ManifestSchema {
	fields := make([]ManifestField, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = ManifestField{Name: f.Name, Type: kindName(f.Type)}
	}
	return ManifestSchema{Fields: fields}
}

func kindName(k sqlval.Kind) string {
	switch k {
	case sqlval.KindInt:
		return "int64"
	case sqlval.KindFloat:
		return "float64"
	case sqlval.KindString:
		return "string"
	default:
		return "null"
	}
}
