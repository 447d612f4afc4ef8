// Package warehouse drives a DuckDB analytical database through the
// bronze→silver→gold materialization pipeline of spec §4.F: load shard
// sets as bronze tables, then issue the fixed sequence of silver/gold
// derivations and build the two lookup indexes.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"
)

// TableReport is the row-count record populated for one of the seven
// produced tables (spec §4.F step 8).
type TableReport struct {
	Table string
	Rows  int64
}

// Materializer opens (or creates) a DuckDB database file and runs the
// ordered pipeline against it. The caller owns exclusive access: spec §5
// disallows concurrent materializers against the same database file.
type Materializer struct {
	db         *sql.DB
	log        *zap.Logger
	parquetDir string
	ext        string
}

// Open creates warehouseDir if needed and opens (or creates)
// <warehouseDir>/<dbName>.<ext>, disabling insertion-order preservation
// per spec §4.F step 1.
func Open(ctx context.Context, warehouseDir, dbName, ext, parquetDir string, log *zap.Logger) (*Materializer, error) {
	if err := os.MkdirAll(warehouseDir, 0o755); err != nil {
		return nil, fmt.Errorf("warehouse: mkdir %s: %w", warehouseDir, err)
	}

	dbPath := filepath.Join(warehouseDir, dbName+"."+ext)
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("warehouse: open %s: %w", dbPath, err)
	}

	if _, err := db.ExecContext(ctx, "SET preserve_insertion_order = false"); err != nil {
		db.Close()
		return nil, fmt.Errorf("warehouse: disable insertion order: %w", err)
	}

	return &Materializer{db: db, log: log, parquetDir: parquetDir, ext: ext}, nil
}

// Close releases the underlying database handle.
func (m *Materializer) Close() error { return m.db.Close() }

// DB exposes the underlying connection for read-side query packages
// (e.g. recommend) that need to query the gold tables this Materializer
// already produced, without opening a second connection to the same file.
func (m *Materializer) DB() *sql.DB { return m.db }

// bronzeTables lists every bronze load the pipeline attempts. Only
// raw_scores is mandatory; the rest (spec's supplemented feature #4) are
// loaded opportunistically when their shard directory exists.
var bronzeTables = []string{"scores", "beatmaps", "beatmapsets"}

// Run executes the full ordered pipeline (spec §4.F steps 1-8) and
// returns the per-table row-count report for the manifest.
func (m *Materializer) Run(ctx context.Context) ([]TableReport, error) {
	loadedScores := false
	for _, table := range bronzeTables {
		glob := m.resolveGlob(table)
		if glob == "" {
			if table == "scores" {
				return nil, fmt.Errorf("warehouse: no shard files found for mandatory table %q", table)
			}
			m.log.Info("bronze load skipped: no shard files", zap.String("table", table))
			continue
		}
		if err := m.exec(ctx, "load raw_"+table, bronzeCTAS(table, glob)); err != nil {
			return nil, err
		}
		if table == "scores" {
			loadedScores = true
		}
	}
	if !loadedScores {
		return nil, fmt.Errorf("warehouse: raw_scores was not loaded")
	}

	steps := []struct {
		name string
		sql  string
	}{
		{"stg_scores", stgScoresSQL},
		{"mart_best_scores", martBestScoresSQL},
		{"mart_user_topk", martUserTopKSQL},
		{"mart_beatmap_user_sets", martBeatmapUserSetsSQL},
		{"idx_beatmap_lookup", indexBeatmapLookupSQL},
		{"idx_user_lookup", indexUserLookupSQL},
	}
	for _, step := range steps {
		if err := m.exec(ctx, step.name, step.sql); err != nil {
			return nil, err
		}
	}

	return m.reportRowCounts(ctx)
}

func (m *Materializer) exec(ctx context.Context, name, query string) error {
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("warehouse: %s: %w", name, err)
	}
	m.log.Debug("materializer step complete", zap.String("step", name))
	return nil
}

// resolveGlob implements spec §4.F step 2's glob resolution rule: prefer
// <parquet_dir>/<table>/part-*.<ext>, else <parquet_dir>/part-*.<ext>.
// Returns "" if neither has any matching file.
func (m *Materializer) resolveGlob(table string) string {
	nested := filepath.Join(m.parquetDir, table, "part-*."+m.ext)
	if matches, _ := filepath.Glob(nested); len(matches) > 0 {
		return nested
	}
	flat := filepath.Join(m.parquetDir, "part-*."+m.ext)
	if matches, _ := filepath.Glob(flat); len(matches) > 0 {
		return flat
	}
	return ""
}

var reportedTables = []string{
	"raw_scores", "stg_scores", "mart_best_scores", "mart_user_topk",
	"mart_beatmap_user_sets", "idx_beatmap_lookup", "idx_user_lookup",
}

func (m *Materializer) reportRowCounts(ctx context.Context) ([]TableReport, error) {
	reports := make([]TableReport, 0, len(reportedTables))
	for _, table := range reportedTables {
		var n int64
		err := m.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
		if err != nil {
			// A table that cannot be counted reports 0 rather than
			// failing the run.
			n = 0
		}
		reports = append(reports, TableReport{Table: table, Rows: n})
	}
	return reports, nil
}
