package warehouse

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grimsoda/ppextender/internal/batch"
	"github.com/grimsoda/ppextender/internal/dumpscan"
	"github.com/grimsoda/ppextender/internal/shardwriter"
)

// writeScoresShards builds a tiny scores shard set directly through the
// real batch builder and shard writer, the same way the pipeline would,
// so the materializer test exercises genuine Parquet files rather than
// hand-built fixtures.
func writeScoresShards(t *testing.T, dir string) {
	t.Helper()
	cols := []string{"id", "user_id", "beatmap_id", "playmode", "score", "pp", "data"}
	b := batch.NewBuilder(1000, "data")

	rows := []dumpscan.Row{
		{"1", "10", "100", "0", "900000", "250.5", "NULL"},
		{"2", "10", "100", "0", "800000", "300.1", `'{"mods":[{"acronym":"DT"}]}'`},
		{"3", "11", "100", "0", "950000", "275.0", "NULL"},
		{"4", "10", "100", "1", "999999", "400.0", "NULL"}, // playmode != 0, filtered by stg_scores
	}

	w, err := shardwriter.New(dir, "scores", 10_000, 10_000, shardwriter.CompressionSnappy)
	require.NoError(t, err)

	for _, row := range rows {
		if sealed, ok := b.Add(row, cols); ok {
			require.NoError(t, w.WriteBatch(sealed))
		}
	}
	if rest := b.Flush(); rest != nil {
		require.NoError(t, w.WriteBatch(rest))
	}
	_, err = w.Finalize()
	require.NoError(t, err)
}

func TestMaterializerRunsOrderedPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping duckdb integration test in short mode")
	}

	parquetDir := t.TempDir()
	writeScoresShards(t, filepath.Join(parquetDir, "scores"))

	warehouseDir := t.TempDir()
	ctx := context.Background()
	m, err := Open(ctx, warehouseDir, "warehouse", "parquet", parquetDir, zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	reports, err := m.Run(ctx)
	require.NoError(t, err)

	byTable := make(map[string]int64, len(reports))
	for _, r := range reports {
		byTable[r.Table] = r.Rows
	}

	assert.Equal(t, int64(4), byTable["raw_scores"])
	assert.Equal(t, int64(3), byTable["stg_scores"]) // playmode=1 row filtered
	assert.Equal(t, int64(3), byTable["mart_best_scores"])
	assert.Equal(t, int64(3), byTable["mart_user_topk"])
	assert.Greater(t, byTable["mart_beatmap_user_sets"], int64(0))
	assert.Equal(t, int64(3), byTable["idx_beatmap_lookup"])
	assert.Equal(t, int64(3), byTable["idx_user_lookup"])
}

func TestMaterializerFailsWithoutMandatoryScoresShards(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping duckdb integration test in short mode")
	}

	ctx := context.Background()
	m, err := Open(ctx, t.TempDir(), "warehouse", "parquet", t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Run(ctx)
	assert.Error(t, err)
}
