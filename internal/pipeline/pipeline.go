// Package pipeline wires the ingest stages — dump scanning, batch
// assembly, shard writing, and warehouse materialization — into the two
// end-to-end operations the CLI exposes: Ingest and Materialize.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/grimsoda/ppextender/internal/batch"
	"github.com/grimsoda/ppextender/internal/chunkdriver"
	"github.com/grimsoda/ppextender/internal/config"
	"github.com/grimsoda/ppextender/internal/ddl"
	"github.com/grimsoda/ppextender/internal/dumpscan"
	"github.com/grimsoda/ppextender/internal/shardwriter"
	"github.com/grimsoda/ppextender/internal/warehouse"
)

// IngestReport summarizes one dump-to-shard run.
type IngestReport struct {
	RowsScanned int64
	Manifest    shardwriter.Manifest
	Duration    time.Duration
}

// Ingest streams dumpPath through the scanner, batch builder, and shard
// writer in sequence (spec §4.A-E), producing Parquet shards plus a
// manifest under cfg.Shard.ParquetDir/<cfg.Table>.
func Ingest(ctx context.Context, cfg *config.Pipeline, dumpPath string, log *zap.Logger) (IngestReport, error) {
	start := time.Now()

	f, err := os.Open(dumpPath)
	if err != nil {
		return IngestReport{}, fmt.Errorf("pipeline: open dump: %w", err)
	}
	defer f.Close()

	compression := shardwriter.CompressionSnappy
	if cfg.Shard.Compression == config.CompressionNone {
		compression = shardwriter.CompressionNone
	}

	shardDir := cfg.Shard.ParquetDir + "/" + cfg.Table
	sw, err := shardwriter.New(shardDir, cfg.Table, int64(cfg.Shard.FileRows), int64(cfg.Shard.RowGroupRows), compression)
	if err != nil {
		return IngestReport{}, fmt.Errorf("pipeline: open shard writer: %w", err)
	}

	builder := batch.NewBuilder(cfg.Batch.Rows, cfg.Batch.DataColumn)

	handler := func(row dumpscan.Row, columns []string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if sealed, ready := builder.Add(row, columns); ready {
			log.Debug("sealed batch", zap.Int("rows", sealed.Rows))
			if err := sw.WriteBatch(sealed); err != nil {
				return fmt.Errorf("pipeline: write batch: %w", err)
			}
		}
		return nil
	}

	var rowsScanned int64
	if cfg.Batch.FastScan {
		rowsScanned, err = runBulkScan(f, cfg.Table, handler)
	} else {
		rowsScanned, err = runByteScan(f, cfg.Table, handler)
	}
	if err != nil {
		return IngestReport{}, fmt.Errorf("pipeline: scan: %w", err)
	}

	if tail := builder.Flush(); tail != nil {
		if err := sw.WriteBatch(tail); err != nil {
			return IngestReport{}, fmt.Errorf("pipeline: write final batch: %w", err)
		}
	}

	manifest, err := sw.Finalize()
	if err != nil {
		return IngestReport{}, fmt.Errorf("pipeline: finalize shards: %w", err)
	}

	log.Info("ingest complete",
		zap.String("table", cfg.Table),
		zap.Bool("fast_scan", cfg.Batch.FastScan),
		zap.Int64("rows_scanned", rowsScanned),
		zap.Int("files", len(manifest.Files)),
	)

	return IngestReport{
		RowsScanned: rowsScanned,
		Manifest:    manifest,
		Duration:    time.Since(start),
	}, nil
}

// runByteScan drives the general-purpose byte-oriented scanner (spec
// §4.B's MUST path).
func runByteScan(f *os.File, table string, handler dumpscan.Handler) (int64, error) {
	scanner := dumpscan.NewScanner(table, handler)
	if err := scanner.Scan(f); err != nil {
		return 0, err
	}
	return scanner.RowsEmitted(), nil
}

// runBulkScan drives the line-oriented regex fast path (spec §4.B's MAY).
// It first resolves table's declared column order from whatever CREATE
// TABLE appears within the dump's opening bytes, the normal position
// mysqldump places schema DDL, then rewinds f and scans the whole file
// assuming one INSERT INTO statement per line (mysqldump's
// --extended-insert default). A dump that doesn't fit that layout, or
// whose CREATE TABLE falls outside the scanned head, degrades gracefully:
// rows with an explicit column list still resolve; rows that additionally
// have no declared fallback get nil columns, same as the byte scanner.
func runBulkScan(f *os.File, table string, handler dumpscan.Handler) (int64, error) {
	schema, _ := ddl.ExtractFromHead(f, table)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind dump: %w", err)
	}

	var declared []string
	if schema != nil {
		declared = schema.Columns
	}
	return dumpscan.BulkScan(f, table, declared, handler)
}

// VerifyShards reads the mandatory table's manifest and checks every shard
// file's recorded SHA-256 hash and size against its current content,
// dispatching one check per file across a worker pool sized by
// chunkdriver's size-class planner (spec §4.G) and retrying each check on
// transient I/O failure with exponential backoff. A hash or size mismatch
// is not transient and is returned as-is after the retry budget runs out.
func VerifyShards(ctx context.Context, cfg *config.Pipeline, log *zap.Logger) (chunkdriver.ImportSummary, error) {
	dir := filepath.Join(cfg.Shard.ParquetDir, cfg.Table)

	manifest, err := shardwriter.ReadManifest(dir)
	if err != nil {
		return chunkdriver.ImportSummary{}, fmt.Errorf("pipeline: read manifest: %w", err)
	}

	var totalBytes int64
	tasks := make([]chunkdriver.ChunkTask, len(manifest.Files))
	for i, f := range manifest.Files {
		tasks[i] = chunkdriver.ChunkTask{ChunkID: i, ChunkPath: f.File, Table: cfg.Table}
		totalBytes += f.SizeBytes
	}

	plan := chunkdriver.NewPlanner().PlanChunks(totalBytes, manifest.TotalRows)
	pool := chunkdriver.NewPool(plan.WorkerCount, log)

	// Local filesystem reads fail transiently, if ever — a short, few-step
	// backoff is enough to ride out a momentary hiccup without stalling
	// verification of an otherwise-healthy shard set.
	retryCfg := chunkdriver.RetryConfig{MaxRetries: 2, InitialDelay: 20 * time.Millisecond, BackoffFactor: 2}

	summary, err := pool.Run(ctx, cfg.Table, tasks, func(ctx context.Context, task chunkdriver.ChunkTask) (int64, error) {
		file := manifest.Files[task.ChunkID]
		var rows int64
		retryErr := chunkdriver.WithRetry(ctx, retryCfg, func() error {
			if err := shardwriter.VerifyFile(dir, file); err != nil {
				return err
			}
			rows = file.Rows
			return nil
		})
		return rows, retryErr
	})
	if err != nil {
		return summary, fmt.Errorf("pipeline: shard verification failed: %w", err)
	}
	return summary, nil
}

// Materialize verifies the mandatory table's shards, then opens the
// DuckDB warehouse and runs the bronze-silver-gold pipeline over the
// shards cfg describes (spec §4.F).
func Materialize(ctx context.Context, cfg *config.Pipeline, log *zap.Logger) ([]warehouse.TableReport, error) {
	summary, err := VerifyShards(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("shard verification complete",
		zap.String("table", cfg.Table),
		zap.Int("files_checked", summary.TotalChunks),
	)

	mat, err := warehouse.Open(ctx, cfg.Warehouse.Dir, cfg.Warehouse.DatabaseName, "parquet", cfg.Shard.ParquetDir, log)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open warehouse: %w", err)
	}
	defer mat.Close()

	reports, err := mat.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: materialize: %w", err)
	}
	return reports, nil
}
