package chunkdriver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPoolRunAggregatesSuccessesAndFailures(t *testing.T) {
	pool := NewPool(2, zap.NewNop())
	tasks := []ChunkTask{
		{ChunkID: 0, ChunkPath: "a"},
		{ChunkID: 1, ChunkPath: "b"},
		{ChunkID: 2, ChunkPath: "c"},
	}

	summary, err := pool.Run(context.Background(), "scores", tasks, func(ctx context.Context, task ChunkTask) (int64, error) {
		if task.ChunkID == 1 {
			return 0, errors.New("boom")
		}
		return 100, nil
	})

	require.Error(t, err)
	assert.Equal(t, 3, summary.TotalChunks)
	assert.Equal(t, 2, summary.CompletedChunks)
	assert.Equal(t, 1, summary.FailedChunks)
	assert.Equal(t, int64(200), summary.TotalRows)
	assert.InDelta(t, 66.67, summary.SuccessRate(), 0.1)
}

func TestPoolRunAllSucceed(t *testing.T) {
	pool := NewPool(4, zap.NewNop())
	tasks := make([]ChunkTask, 10)
	for i := range tasks {
		tasks[i] = ChunkTask{ChunkID: i}
	}

	summary, err := pool.Run(context.Background(), "scores", tasks, func(ctx context.Context, task ChunkTask) (int64, error) {
		return 10, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 10, summary.CompletedChunks)
	assert.Equal(t, 0, summary.FailedChunks)
	assert.Equal(t, float64(100), summary.SuccessRate())
	assert.Equal(t, int64(100), summary.TotalRows)
}

func TestImportSummaryZeroChunksSuccessRate(t *testing.T) {
	var s ImportSummary
	assert.Equal(t, float64(0), s.SuccessRate())
	assert.Equal(t, float64(0), s.RowsPerSecond())
}
