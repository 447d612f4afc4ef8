package warehouse

import "fmt"

// bronzeCTAS builds the CTAS that loads a bronze table from its shard
// glob, preferring <parquet_dir>/<table>/part-*.<ext> and falling back to
// <parquet_dir>/part-*.<ext> (spec §4.F step 2).
func bronzeCTAS(table, glob string) string {
	return fmt.Sprintf(
		`CREATE OR REPLACE TABLE raw_%s AS SELECT * FROM read_parquet(%s)`,
		table, sqlString(glob),
	)
}

const stgScoresSQL = `
CREATE OR REPLACE TABLE stg_scores AS
SELECT id, user_id, beatmap_id, score, pp, data, mods_key, speed_mod
FROM raw_scores
WHERE playmode = 0;
`

const martBestScoresSQL = `
CREATE OR REPLACE TABLE mart_best_scores AS
SELECT id, user_id, beatmap_id, score, pp, data, mods_key, speed_mod
FROM (
  SELECT *,
    ROW_NUMBER() OVER (
      PARTITION BY user_id, beatmap_id, mods_key
      ORDER BY pp DESC, rowid ASC
    ) AS rn
  FROM (SELECT *, rowid FROM stg_scores)
) ranked
WHERE rn = 1;
`

const martUserTopKSQL = `
CREATE OR REPLACE TABLE mart_user_topk AS
SELECT id, user_id, beatmap_id, score, pp, data, mods_key, speed_mod
FROM (
  SELECT *,
    ROW_NUMBER() OVER (
      PARTITION BY user_id, speed_mod
      ORDER BY pp DESC, id ASC
    ) AS rn
  FROM mart_best_scores
) ranked
WHERE rn <= 100;
`

const martBeatmapUserSetsSQL = `
CREATE OR REPLACE TABLE mart_beatmap_user_sets AS
SELECT
  beatmap_id,
  mods_key,
  ARRAY_AGG(user_id ORDER BY user_id) AS user_ids,
  COUNT(*) AS user_count,
  AVG(pp) AS avg_pp,
  STDDEV(pp) AS std_pp,
  MIN(pp) AS min_pp,
  QUANTILE_CONT(pp, 0.5) AS median_pp,
  QUANTILE_CONT(pp, 0.75) AS p75_pp,
  QUANTILE_CONT(pp, 0.9) AS p90_pp
FROM mart_best_scores
GROUP BY beatmap_id, mods_key;
`

const indexBeatmapLookupSQL = `
CREATE OR REPLACE TABLE idx_beatmap_lookup AS
SELECT beatmap_id, pp, mods_key, user_id
FROM mart_best_scores
ORDER BY beatmap_id, pp, mods_key, user_id;
`

const indexUserLookupSQL = `
CREATE OR REPLACE TABLE idx_user_lookup AS
SELECT user_id, beatmap_id, pp
FROM mart_best_scores
ORDER BY user_id, beatmap_id, pp;
`

func sqlString(s string) string {
	escaped := ""
	for _, r := range s {
		if r == '\'' {
			escaped += "''"
			continue
		}
		escaped += string(r)
	}
	return "'" + escaped + "'"
}
