package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grimsoda/ppextender/internal/config"
	"github.com/grimsoda/ppextender/internal/logging"
	"github.com/grimsoda/ppextender/internal/pipeline"
)

func materializeCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Build the bronze/silver/gold warehouse tables from already-shard Parquet files",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMaterialize(root)
		},
	}
	return cmd
}

func runMaterialize(root *rootFlags) error {
	cfg, err := config.NewParser().ParseFile(root.config)
	if err != nil {
		return err
	}

	log, err := logging.New(root.verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	reports, err := pipeline.Materialize(context.Background(), cfg, log)
	if err != nil {
		return err
	}

	for _, r := range reports {
		fmt.Printf("%-24s %d rows\n", r.Table, r.Rows)
	}
	return nil
}
