// Package main contains the cli implementation of the ingest tool. It
// uses cobra for cli tool implementation.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	config  string
	verbose bool
}

func main() {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "ppextender",
		Short: "osu! score dump ETL: scan, batch, shard, and materialize into a DuckDB warehouse",
	}
	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "ppextender.toml", "Pipeline TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(ingestCmd(flags))
	rootCmd.AddCommand(materializeCmd(flags))
	rootCmd.AddCommand(pipelineCmd(flags))
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(recommendCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
