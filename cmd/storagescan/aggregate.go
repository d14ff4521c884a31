package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/eargollo/storagescan/internal/aggregate"
	"github.com/eargollo/storagescan/internal/validate"
)

type aggregateOptions struct {
	output string
}

func newAggregateCmd() *cobra.Command {
	opts := &aggregateOptions{}

	cmd := &cobra.Command{
		Use:   "aggregate <chunk-dir>",
		Short: "Concatenate a scan's chunk files into a single Parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Combined output Parquet file (required)")
	cmd.MarkFlagRequired("output")

	return cmd
}

func runAggregate(dir string, o *aggregateOptions) error {
	dir, err := validate.Path(dir)
	if err != nil {
		return err
	}
	if err := validate.OutputDir(o.output); err != nil {
		return err
	}

	chunks, err := aggregate.DiscoverChunks(dir)
	if err != nil {
		return fmt.Errorf("storagescan: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("storagescan: no chunk files found in %s", dir)
	}

	rows, err := aggregate.Run(chunks, o.output)
	if err != nil {
		return fmt.Errorf("storagescan: aggregate failed: %w", err)
	}

	fmt.Printf("Combined %d chunk files (%s rows) into %s\n", len(chunks), humanize.Comma(int64(rows)), filepath.Clean(o.output))
	return nil
}
