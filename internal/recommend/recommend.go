// Package recommend implements the read-side recommender described as an
// external collaborator in spec §1/§6/§9: cohort extraction against
// mart_best_scores, a session-scoped cohort cache table that avoids large
// IN-clauses, and a beatmap recommendation query joining
// mart_beatmap_user_sets against raw_beatmaps/raw_beatmapsets.
package recommend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Queries is the recommender's query surface over an already-open
// warehouse database handle. It owns no connection lifecycle of its own.
type Queries struct {
	db *sql.DB
}

// New wraps an open *sql.DB (typically opened by the warehouse package
// against the same DuckDB file the materializer wrote).
func New(db *sql.DB) *Queries { return &Queries{db: db} }

// CohortFilter narrows CohortUsers beyond the mandatory seed beatmap.
type CohortFilter struct {
	PPLower *float64
	PPUpper *float64
	Mods    *string
}

// CohortUsers returns the distinct user_ids who played beatmapID in
// mart_best_scores, optionally narrowed by PP band and mods key.
func (q *Queries) CohortUsers(ctx context.Context, beatmapID int64, filter CohortFilter) ([]int64, error) {
	conditions := []string{"beatmap_id = ?"}
	args := []interface{}{beatmapID}

	if filter.PPLower != nil {
		conditions = append(conditions, "pp >= ?")
		args = append(args, *filter.PPLower)
	}
	if filter.PPUpper != nil {
		conditions = append(conditions, "pp <= ?")
		args = append(args, *filter.PPUpper)
	}
	if filter.Mods != nil {
		conditions = append(conditions, "mods_key = ?")
		args = append(args, *filter.Mods)
	}

	query := fmt.Sprintf(
		"SELECT DISTINCT user_id FROM mart_best_scores WHERE %s",
		strings.Join(conditions, " AND "),
	)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recommend: cohort users: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var u int64
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("recommend: scan cohort user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Recommendation is one row of the beatmap recommendation result.
type Recommendation struct {
	BeatmapID        int64
	Version          string
	Artist           string
	Title            string
	DifficultyRating float64
	TotalPlayers      int64
	CohortOverlap     int64
	AvgPP             float64
	StdPP             float64
	MinPP             float64
	MedianPP          float64
	P75PP             float64
	P90PP             float64
	NoveltyScore      float64
}

const cohortCacheTable = "mart_cohort_cache"

// GetRecommendations implements the session-scoped cohort-cache pattern
// (spec §5: "session-scoped and dropped on scope exit"): it creates
// mart_cohort_cache for cohortUsers, runs the overlap-scored join, and
// drops the cache table before returning regardless of outcome.
func (q *Queries) GetRecommendations(ctx context.Context, cohortUsers []int64, minCohortOverlap, minTotalPlayers, limit int) ([]Recommendation, error) {
	if err := q.createCohortCache(ctx, cohortUsers); err != nil {
		return nil, err
	}
	defer q.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+cohortCacheTable) //nolint:errcheck

	const query = `
WITH candidate_beatmaps AS (
    SELECT
        beatmap_id,
        mods_key,
        user_count,
        avg_pp,
        std_pp,
        min_pp,
        median_pp,
        p75_pp,
        p90_pp,
        (SELECT COUNT(*) FROM mart_cohort_cache c
         WHERE c.user_id = ANY(bus.user_ids)) AS cohort_overlap
    FROM mart_beatmap_user_sets bus
    WHERE user_count >= ?
)
SELECT
    cb.beatmap_id,
    b.version,
    bs.artist,
    bs.title,
    b.difficultyrating,
    cb.user_count AS total_players,
    cb.cohort_overlap,
    cb.avg_pp,
    cb.std_pp,
    cb.min_pp,
    cb.median_pp,
    cb.p75_pp,
    cb.p90_pp,
    (1.0 - (CAST(cb.cohort_overlap AS DOUBLE) / cb.user_count)) AS novelty_score
FROM candidate_beatmaps cb
JOIN raw_beatmaps b ON cb.beatmap_id = b.beatmap_id
JOIN raw_beatmapsets bs ON b.beatmapset_id = bs.beatmapset_id
WHERE cb.cohort_overlap >= ?
ORDER BY cb.cohort_overlap DESC, cb.avg_pp DESC
LIMIT ?
`

	rows, err := q.db.QueryContext(ctx, query, minTotalPlayers, minCohortOverlap, limit)
	if err != nil {
		return nil, fmt.Errorf("recommend: get recommendations: %w", err)
	}
	defer rows.Close()

	var recs []Recommendation
	for rows.Next() {
		var r Recommendation
		if err := rows.Scan(
			&r.BeatmapID, &r.Version, &r.Artist, &r.Title, &r.DifficultyRating,
			&r.TotalPlayers, &r.CohortOverlap, &r.AvgPP, &r.StdPP, &r.MinPP,
			&r.MedianPP, &r.P75PP, &r.P90PP, &r.NoveltyScore,
		); err != nil {
			return nil, fmt.Errorf("recommend: scan recommendation: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// createCohortCache materializes cohortUsers into a session-scoped temp
// table, avoiding a large IN-clause against mart_beatmap_user_sets (spec
// §5). Batches inserts to stay under typical parameter-count limits.
func (q *Queries) createCohortCache(ctx context.Context, userIDs []int64) error {
	if _, err := q.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+cohortCacheTable); err != nil {
		return fmt.Errorf("recommend: drop cohort cache: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, "CREATE TEMPORARY TABLE "+cohortCacheTable+" (user_id BIGINT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("recommend: create cohort cache: %w", err)
	}
	if len(userIDs) == 0 {
		return nil
	}

	const batchSize = 1000
	for start := 0; start < len(userIDs); start += batchSize {
		end := start + batchSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		chunk := userIDs[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]interface{}, len(chunk))
		for i, uid := range chunk {
			placeholders[i] = "(?)"
			args[i] = uid
		}

		query := fmt.Sprintf(
			"INSERT INTO %s (user_id) VALUES %s",
			cohortCacheTable, strings.Join(placeholders, ","),
		)
		if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("recommend: insert cohort batch: %w", err)
		}
	}
	return nil
}
