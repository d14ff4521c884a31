package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eargollo/storagescan/internal/config"
	"github.com/eargollo/storagescan/internal/pipeline"
	"github.com/eargollo/storagescan/internal/report"
	"github.com/eargollo/storagescan/internal/validate"
)

// scanOptions holds CLI flags for the scan command.
type scanOptions struct {
	output            string
	threads           int
	batchSize         int
	followSymlinks    bool
	maxDepth          int
	maxEntriesPerSec  int
	incremental       bool
	rowsPerChunk      uint64
	chunkIntervalSecs int
	resume            bool
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{
		batchSize:         100_000,
		rowsPerChunk:      500_000,
		chunkIntervalSecs: 300,
		maxDepth:          -1, // -1 means unlimited
	}

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Walk a directory tree and write its metadata to a columnar table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output Parquet file (default: <data-dir>/scan.parquet)")
	cmd.Flags().IntVarP(&opts.threads, "threads", "t", 0, "Walker worker count (default: CPU count)")
	cmd.Flags().IntVarP(&opts.batchSize, "batch-size", "b", opts.batchSize, "Entries per batch")
	cmd.Flags().BoolVar(&opts.followSymlinks, "follow-symlinks", false, "Follow symlinked directories")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", opts.maxDepth, "Maximum depth below the scan root (-1 = unlimited)")
	cmd.Flags().IntVar(&opts.maxEntriesPerSec, "max-entries-per-sec", 0, "Throttle emitted entries per second (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.incremental, "incremental", false, "Enable the rotating writer (chunked output + manifest)")
	cmd.Flags().Uint64Var(&opts.rowsPerChunk, "rows-per-chunk", opts.rowsPerChunk, "Row-count rotation threshold (incremental mode)")
	cmd.Flags().IntVar(&opts.chunkIntervalSecs, "chunk-interval-secs", opts.chunkIntervalSecs, "Time-based rotation threshold, in seconds (incremental mode)")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "Resume from an existing manifest (requires --incremental)")

	return cmd
}

func runScan(ctx context.Context, path string, o *scanOptions) error {
	if o.resume && !o.incremental {
		return fmt.Errorf("storagescan: --resume requires --incremental")
	}

	root, err := validate.Path(path)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("storagescan: %w", err)
	}
	if o.output == "" {
		o.output = filepath.Join(cfg.DataDir(), "scan.parquet")
	}
	if err := validate.OutputDir(o.output); err != nil {
		return err
	}
	threads := o.threads
	if threads <= 0 {
		threads = cfg.DefaultThreads()
	}

	var maxDepth *uint32
	if o.maxDepth >= 0 {
		d := uint32(o.maxDepth)
		maxDepth = &d
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			cancel()
		}
	}()

	popts := pipeline.Options{
		Path:                root,
		Output:              o.output,
		NumThreads:          threads,
		BatchSize:           o.batchSize,
		FollowSymlinks:      o.followSymlinks,
		MaxDepth:            maxDepth,
		MaxEntriesPerSecond: o.maxEntriesPerSec,
		Incremental:         o.incremental,
		RowsPerChunk:        o.rowsPerChunk,
		ChunkIntervalSecs:   o.chunkIntervalSecs,
		Resume:              o.resume,
	}

	res, err := pipeline.Run(ctx, popts)
	if err != nil {
		return fmt.Errorf("storagescan: scan failed: %w", err)
	}

	fmt.Print(report.Summary(res))
	return nil
}
