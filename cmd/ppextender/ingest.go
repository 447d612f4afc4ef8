package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grimsoda/ppextender/internal/config"
	"github.com/grimsoda/ppextender/internal/logging"
	"github.com/grimsoda/ppextender/internal/pipeline"
)

func ingestCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <dump.sql>",
		Short: "Scan a SQL dump and write sharded Parquet files",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runIngest(root, args[0])
		},
	}
	return cmd
}

func runIngest(root *rootFlags, dumpPath string) error {
	cfg, err := config.NewParser().ParseFile(root.config)
	if err != nil {
		return err
	}

	log, err := logging.New(root.verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	report, err := pipeline.Ingest(context.Background(), cfg, dumpPath, log)
	if err != nil {
		return err
	}

	fmt.Printf("scanned %d rows into %d shard file(s) for table %q\n", report.RowsScanned, len(report.Manifest.Files), cfg.Table)
	return nil
}
