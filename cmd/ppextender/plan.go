package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grimsoda/ppextender/internal/chunkdriver"
)

type planFlags struct {
	estimatedRows int64
}

func planCmd() *cobra.Command {
	flags := &planFlags{}
	cmd := &cobra.Command{
		Use:   "plan <dump.sql>",
		Short: "Print the chunk plan a dump file would be split into",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPlan(args[0], flags)
		},
	}
	cmd.Flags().Int64Var(&flags.estimatedRows, "estimated-rows", 0, "Known row count, skipping the byte-size estimate")
	return cmd
}

func runPlan(dumpPath string, flags *planFlags) error {
	info, err := os.Stat(dumpPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dumpPath, err)
	}

	plan := chunkdriver.NewPlanner().PlanChunks(info.Size(), flags.estimatedRows)
	fmt.Printf("size class:    %s\n", plan.Category)
	fmt.Printf("estimated rows: %d\n", plan.EstimatedRows)
	fmt.Printf("chunk rows:    %d\n", plan.ChunkRows)
	fmt.Printf("num chunks:    %d\n", plan.NumChunks)
	fmt.Printf("worker count:  %d\n", plan.WorkerCount)
	return nil
}
