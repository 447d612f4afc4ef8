package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grimsoda/ppextender/internal/config"
	"github.com/grimsoda/ppextender/internal/logging"
	"github.com/grimsoda/ppextender/internal/recommend"
	"github.com/grimsoda/ppextender/internal/warehouse"
)

type recommendFlags struct {
	beatmapID        int64
	mods             string
	ppLower          float64
	ppUpper          float64
	minCohortOverlap int
	minTotalPlayers  int
	limit            int
}

func recommendCmd(root *rootFlags) *cobra.Command {
	flags := &recommendFlags{}
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend beatmaps for players of a given beatmap's cohort",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runRecommend(root, flags)
		},
	}
	cmd.Flags().Int64Var(&flags.beatmapID, "beatmap-id", 0, "Seed beatmap ID (required)")
	cmd.Flags().StringVar(&flags.mods, "mods", "", "Restrict the cohort to this exact mods_key")
	cmd.Flags().Float64Var(&flags.ppLower, "pp-lower", 0, "Lower PP band bound (0 disables)")
	cmd.Flags().Float64Var(&flags.ppUpper, "pp-upper", 0, "Upper PP band bound (0 disables)")
	cmd.Flags().IntVar(&flags.minCohortOverlap, "min-cohort-overlap", 2, "Minimum shared cohort players for a recommendation")
	cmd.Flags().IntVar(&flags.minTotalPlayers, "min-total-players", 10, "Minimum total players on a recommended beatmap")
	cmd.Flags().IntVar(&flags.limit, "limit", 20, "Maximum recommendations returned")
	return cmd
}

func runRecommend(root *rootFlags, flags *recommendFlags) error {
	if flags.beatmapID == 0 {
		return fmt.Errorf("--beatmap-id is required")
	}

	cfg, err := config.NewParser().ParseFile(root.config)
	if err != nil {
		return err
	}

	log, err := logging.New(root.verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx := context.Background()
	mat, err := warehouse.Open(ctx, cfg.Warehouse.Dir, cfg.Warehouse.DatabaseName, "parquet", cfg.Shard.ParquetDir, log)
	if err != nil {
		return err
	}
	defer mat.Close()

	q := recommend.New(mat.DB())

	filter := recommend.CohortFilter{}
	if flags.ppLower > 0 {
		filter.PPLower = &flags.ppLower
	}
	if flags.ppUpper > 0 {
		filter.PPUpper = &flags.ppUpper
	}
	if flags.mods != "" {
		filter.Mods = &flags.mods
	}

	cohort, err := q.CohortUsers(ctx, flags.beatmapID, filter)
	if err != nil {
		return fmt.Errorf("cohort query: %w", err)
	}
	if len(cohort) == 0 {
		fmt.Println("no cohort players found for that beatmap/filter combination")
		return nil
	}

	recs, err := q.GetRecommendations(ctx, cohort, flags.minCohortOverlap, flags.minTotalPlayers, flags.limit)
	if err != nil {
		return fmt.Errorf("recommendation query: %w", err)
	}

	fmt.Printf("cohort size: %d\n", len(cohort))
	for _, r := range recs {
		fmt.Printf("%v\n", r)
	}
	return nil
}
