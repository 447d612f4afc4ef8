package recommend

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWarehouse(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping duckdb integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "warehouse.duckdb")
	db, err := sql.Open("duckdb", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	statements := []string{
		`CREATE TABLE mart_best_scores (
			id BIGINT, user_id BIGINT, beatmap_id BIGINT, score BIGINT,
			pp DOUBLE, data VARCHAR, mods_key VARCHAR, speed_mod VARCHAR
		)`,
		`INSERT INTO mart_best_scores VALUES
			(1, 10, 100, 900000, 250.0, NULL, '', NULL),
			(2, 11, 100, 920000, 260.0, NULL, '', NULL),
			(3, 12, 100, 800000, 150.0, NULL, 'DT', 'DT'),
			(4, 10, 200, 950000, 300.0, NULL, '', NULL)`,
		`CREATE TABLE mart_beatmap_user_sets (
			beatmap_id BIGINT, mods_key VARCHAR, user_ids BIGINT[], user_count BIGINT,
			avg_pp DOUBLE, std_pp DOUBLE, min_pp DOUBLE, median_pp DOUBLE, p75_pp DOUBLE, p90_pp DOUBLE
		)`,
		`INSERT INTO mart_beatmap_user_sets VALUES
			(200, '', [10, 13, 14], 3, 280.0, 10.0, 270.0, 280.0, 290.0, 295.0)`,
		`CREATE TABLE raw_beatmaps (beatmap_id BIGINT, beatmapset_id BIGINT, version VARCHAR, difficultyrating DOUBLE)`,
		`INSERT INTO raw_beatmaps VALUES (200, 2000, 'Insane', 5.5)`,
		`CREATE TABLE raw_beatmapsets (beatmapset_id BIGINT, artist VARCHAR, title VARCHAR)`,
		`INSERT INTO raw_beatmapsets VALUES (2000, 'Camellia', 'Exit This Earth''s Atomosphere')`,
	}
	for _, stmt := range statements {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return db
}

func TestCohortUsersFiltersByBeatmapAndMods(t *testing.T) {
	db := setupWarehouse(t)
	q := New(db)
	ctx := context.Background()

	users, err := q.CohortUsers(ctx, 100, CohortFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{10, 11, 12}, users)

	mods := "DT"
	users, err = q.CohortUsers(ctx, 100, CohortFilter{Mods: &mods})
	require.NoError(t, err)
	assert.Equal(t, []int64{12}, users)
}

func TestGetRecommendationsJoinsBeatmapMetadata(t *testing.T) {
	db := setupWarehouse(t)
	q := New(db)
	ctx := context.Background()

	recs, err := q.GetRecommendations(ctx, []int64{10, 13, 99}, 2, 1, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(200), recs[0].BeatmapID)
	assert.Equal(t, "Camellia", recs[0].Artist)
	assert.Equal(t, int64(2), recs[0].CohortOverlap)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'mart_cohort_cache'").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestGetRecommendationsWithEmptyCohort(t *testing.T) {
	db := setupWarehouse(t)
	q := New(db)
	ctx := context.Background()

	recs, err := q.GetRecommendations(ctx, nil, 1, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
