// Package config reads the pipeline's TOML configuration file into a
// canonical Go struct, following the same decode-then-validate shape as
// the schema parser this tool was built alongside.
package config

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Compression names accepted by the [shard].compression key.
const (
	CompressionSnappy = "snappy"
	CompressionNone   = "none"
)

// Pipeline is the canonical, validated configuration for one ingest run:
// dump scanning, batch assembly, shard writing and warehouse
// materialization all read their knobs from here.
type Pipeline struct {
	Table string `toml:"table_name"`

	Batch struct {
		Rows       int    `toml:"batch_rows"`
		DataColumn string `toml:"data_column"`
		FastScan   bool   `toml:"fast_scan"`
	} `toml:"batch"`

	Shard struct {
		RowGroupRows int    `toml:"row_group_rows"`
		FileRows     int    `toml:"file_rows"`
		Compression  string `toml:"compression"`
		ParquetDir   string `toml:"parquet_dir"`
	} `toml:"shard"`

	Warehouse struct {
		Dir          string `toml:"warehouse_dir"`
		DatabaseName string `toml:"database_name"`
	} `toml:"warehouse"`

	Chunk struct {
		Workers int `toml:"workers"`
	} `toml:"chunk"`
}

// defaults mirrors the original pipeline's constants: 50k rows/batch, 64k
// rows/row-group, 2M rows/file, snappy compression.
func defaults() Pipeline {
	var p Pipeline
	p.Table = "scores"
	p.Batch.Rows = 50_000
	p.Batch.DataColumn = "data"
	p.Shard.RowGroupRows = 64_000
	p.Shard.FileRows = 2_000_000
	p.Shard.Compression = CompressionSnappy
	p.Shard.ParquetDir = "parquet"
	p.Warehouse.Dir = "warehouse"
	p.Warehouse.DatabaseName = "ppextender"
	p.Chunk.Workers = runtime.NumCPU() - 1
	if p.Chunk.Workers < 1 {
		p.Chunk.Workers = 1
	}
	return p
}

// Parser reads a pipeline TOML file, filling in defaults for any key the
// file omits and rejecting values that can't form a valid pipeline.
type Parser struct{}

// NewParser creates a new pipeline config parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens the file at path and parses it as pipeline config.
func (p *Parser) ParseFile(path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open file %q: %w", path, err)
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse reads TOML content from r and returns the resulting Pipeline,
// defaults applied for anything the document doesn't set.
func (p *Parser) Parse(r io.Reader) (*Pipeline, error) {
	cfg := defaults()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode error: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Pipeline) validate() error {
	if cfg.Table == "" {
		return fmt.Errorf("config: table_name must not be empty")
	}
	if cfg.Batch.Rows <= 0 {
		return fmt.Errorf("config: batch_rows must be positive, got %d", cfg.Batch.Rows)
	}
	if cfg.Shard.RowGroupRows <= 0 {
		return fmt.Errorf("config: row_group_rows must be positive, got %d", cfg.Shard.RowGroupRows)
	}
	if cfg.Shard.FileRows <= 0 {
		return fmt.Errorf("config: file_rows must be positive, got %d", cfg.Shard.FileRows)
	}
	switch cfg.Shard.Compression {
	case CompressionSnappy, CompressionNone:
	default:
		return fmt.Errorf("config: unsupported compression %q; supported: %s, %s", cfg.Shard.Compression, CompressionSnappy, CompressionNone)
	}
	if cfg.Chunk.Workers <= 0 {
		return fmt.Errorf("config: workers must be positive, got %d", cfg.Chunk.Workers)
	}
	return nil
}
