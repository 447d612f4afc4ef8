package shardwriter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/grimsoda/ppextender/internal/batch"
	"github.com/grimsoda/ppextender/internal/dumpscan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealedBatch(t *testing.T, rows int) *batch.Batch {
	t.Helper()
	b := batch.NewBuilder(rows, "")
	var sealed *batch.Batch
	for i := 0; i < rows; i++ {
		got, ok := b.Add(dumpscan.Row{"1", "2.5"}, []string{"id", "pp"})
		if ok {
			sealed = got
		}
	}
	require.NotNil(t, sealed)
	return sealed
}

func TestWriterShardsAcrossFileRowsBudget(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "scores", 2500, 1000, CompressionSnappy)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, w.WriteBatch(sealedBatch(t, 1000)))
	}

	m, err := w.Finalize()
	require.NoError(t, err)

	assert.Equal(t, int64(3000), m.TotalRows)
	require.Len(t, m.Files, 2)
	assert.Equal(t, int64(2500), m.Files[0].Rows)
	assert.Equal(t, int64(500), m.Files[1].Rows)
	assert.Equal(t, "part-000000.parquet", m.Files[0].File)
	assert.Equal(t, "part-000001.parquet", m.Files[1].File)

	for _, f := range m.Files {
		assert.Contains(t, f.Hash, "sha256:")
		assert.Greater(t, f.SizeBytes, int64(0))
		info, err := os.Stat(filepath.Join(dir, f.File))
		require.NoError(t, err)
		assert.Equal(t, f.SizeBytes, info.Size())
	}

	manifestBytes, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	var decoded Manifest
	require.NoError(t, json.Unmarshal(manifestBytes, &decoded))
	assert.Equal(t, m.TotalRows, decoded.TotalRows)
}

func TestWriterFinalizeWithoutAnyBatchProducesEmptyManifest(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "scores", 1000, 1000, CompressionNone)
	require.NoError(t, err)

	m, err := w.Finalize()
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.TotalRows)
	assert.Empty(t, m.Files)
	assert.Empty(t, m.Schema.Fields)
}

func TestManifestCacheRoundTrips(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "scores", 1000, 1000, CompressionNone)
	require.NoError(t, err)
	require.NoError(t, w.WriteBatch(sealedBatch(t, 10)))
	m, err := w.Finalize()
	require.NoError(t, err)

	cached, err := readManifestCache(dir)
	require.NoError(t, err)
	assert.Equal(t, m.TotalRows, cached.TotalRows)
	assert.Equal(t, m.Files, cached.Files)
}
