package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFillsDefaultsForOmittedKeys(t *testing.T) {
	doc := `table_name = "scores"`
	cfg, err := NewParser().Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "scores", cfg.Table)
	assert.Equal(t, 50_000, cfg.Batch.Rows)
	assert.Equal(t, "data", cfg.Batch.DataColumn)
	assert.False(t, cfg.Batch.FastScan)
	assert.Equal(t, 64_000, cfg.Shard.RowGroupRows)
	assert.Equal(t, 2_000_000, cfg.Shard.FileRows)
	assert.Equal(t, CompressionSnappy, cfg.Shard.Compression)
	assert.GreaterOrEqual(t, cfg.Chunk.Workers, 1)
}

func TestParseOverridesDefaults(t *testing.T) {
	doc := `
table_name = "scores"

[batch]
batch_rows = 10
fast_scan = true

[shard]
row_group_rows = 100
file_rows = 500
compression = "none"
parquet_dir = "out/parquet"

[warehouse]
warehouse_dir = "out/warehouse"
database_name = "testdb"

[chunk]
workers = 4
`
	cfg, err := NewParser().Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Batch.Rows)
	assert.True(t, cfg.Batch.FastScan)
	assert.Equal(t, 100, cfg.Shard.RowGroupRows)
	assert.Equal(t, 500, cfg.Shard.FileRows)
	assert.Equal(t, CompressionNone, cfg.Shard.Compression)
	assert.Equal(t, "out/parquet", cfg.Shard.ParquetDir)
	assert.Equal(t, "out/warehouse", cfg.Warehouse.Dir)
	assert.Equal(t, "testdb", cfg.Warehouse.DatabaseName)
	assert.Equal(t, 4, cfg.Chunk.Workers)
}

func TestParseRejectsUnknownCompression(t *testing.T) {
	doc := `
table_name = "scores"
[shard]
compression = "zstd"
`
	_, err := NewParser().Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported compression")
}

func TestParseRejectsEmptyTableName(t *testing.T) {
	doc := `
table_name = ""
[batch]
batch_rows = 10
`
	_, err := NewParser().Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table_name")
}

func TestParseRejectsNonPositiveBatchRows(t *testing.T) {
	doc := `
table_name = "scores"
[batch]
batch_rows = 0
`
	_, err := NewParser().Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_rows")
}

func TestParseFilePropagatesOpenError(t *testing.T) {
	_, err := NewParser().ParseFile("/nonexistent/path/config.toml")
	require.Error(t, err)
}
