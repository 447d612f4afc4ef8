package chunkdriver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ProcessFunc processes one chunk task, returning the number of rows it
// produced. A returned error marks the chunk failed; the pool keeps
// draining the remaining tasks regardless (spec §5: "the pool continues
// to drain").
type ProcessFunc func(ctx context.Context, task ChunkTask) (rowsProcessed int64, err error)

// Pool dispatches ChunkTasks to a fixed-size worker pool and aggregates
// results into an ImportSummary.
type Pool struct {
	workers int
	log     *zap.Logger
}

// NewPool constructs a Pool of the given worker count (use a Plan's
// WorkerCount). workers < 1 is treated as 1.
func NewPool(workers int, log *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers, log: log}
}

// Run dispatches one task per chunk across the pool, running process for
// each, and returns the aggregated ImportSummary plus a combined error
// (via multierr) carrying every individual chunk failure — the summary
// itself is always returned even when err is non-nil, since failed chunks
// don't abort the run.
func (p *Pool) Run(ctx context.Context, table string, tasks []ChunkTask, process ProcessFunc) (ImportSummary, error) {
	start := time.Now()

	results := make([]ChunkResult, len(tasks))
	var totalRows atomic.Int64
	var completed atomic.Int64
	var failed atomic.Int64

	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var combined error

	for i, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, task ChunkTask) {
			defer wg.Done()
			defer func() { <-sem }()

			taskStart := time.Now()
			rows, err := process(ctx, task)
			dur := time.Since(taskStart)

			result := ChunkResult{ChunkID: task.ChunkID, Duration: dur, RowsProcessed: rows}
			if err != nil {
				result.Status = StatusFailed
				result.ErrorMessage = err.Error()
				failed.Inc()
				p.log.Warn("chunk failed",
					zap.Int("chunk_id", task.ChunkID),
					zap.String("table", table),
					zap.Error(err),
				)
				mu.Lock()
				combined = multierr.Append(combined, err)
				mu.Unlock()
			} else {
				result.Status = StatusCompleted
				completed.Inc()
				totalRows.Add(rows)
			}
			results[i] = result
		}(i, task)
	}
	wg.Wait()

	summary := ImportSummary{
		Table:           table,
		TotalChunks:     len(tasks),
		CompletedChunks: int(completed.Load()),
		FailedChunks:    int(failed.Load()),
		TotalRows:       totalRows.Load(),
		Duration:        time.Since(start),
		Results:         results,
	}
	return summary, combined
}
