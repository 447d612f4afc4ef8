package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grimsoda/ppextender/internal/config"
	"github.com/grimsoda/ppextender/internal/logging"
	"github.com/grimsoda/ppextender/internal/pipeline"
)

func pipelineCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <dump.sql>",
		Short: "Run ingest followed by materialize in one pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPipeline(root, args[0])
		},
	}
	return cmd
}

func runPipeline(root *rootFlags, dumpPath string) error {
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

	ingestReport, err := pipeline.Ingest(ctx, cfg, dumpPath, log)
	if err != nil {
		return fmt.Errorf("ingest stage: %w", err)
	}
	fmt.Printf("ingest: %d rows, %d shard file(s)\n", ingestReport.RowsScanned, len(ingestReport.Manifest.Files))

	reports, err := pipeline.Materialize(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("materialize stage: %w", err)
	}
	for _, r := range reports {
		fmt.Printf("%-24s %d rows\n", r.Table, r.Rows)
	}
	return nil
}
