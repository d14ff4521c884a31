// Package pipeline wires the three scan stages -- walker, batcher, rotating
// writer -- into the bounded-channel pipeline described for a scan:
// parallel walk, serial batch, serial write, with disk-bound backpressure
// propagating all the way back to the walkers.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/eargollo/storagescan/internal/batcher"
	"github.com/eargollo/storagescan/internal/chunkwriter"
	"github.com/eargollo/storagescan/internal/entry"
	"github.com/eargollo/storagescan/internal/rotatingwriter"
	"github.com/eargollo/storagescan/internal/walker"
)

const (
	defaultNumThreads        = 4
	defaultBatchSize         = 100_000
	defaultRowsPerChunk      = 500_000
	defaultChunkIntervalSecs = 300
	progressLogInterval      = 2 * time.Second
)

// DebugPipelineEnv turns on periodic heartbeat logging, independent of the
// process-wide default. Set to 1 to enable.
const DebugPipelineEnv = "STORAGESCAN_DEBUG_PIPELINE"

// Options configures a single scan run end to end.
type Options struct {
	Path                string
	Output              string
	NumThreads          int
	BatchSize           int
	FollowSymlinks      bool
	MaxDepth            *uint32
	MaxEntriesPerSecond int

	Incremental       bool
	RowsPerChunk      uint64
	ChunkIntervalSecs int
	Resume            bool
}

func (o Options) numThreads() int {
	if o.NumThreads > 0 {
		return o.NumThreads
	}
	return defaultNumThreads
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return defaultBatchSize
}

func (o Options) rowsPerChunk() uint64 {
	if o.RowsPerChunk > 0 {
		return o.RowsPerChunk
	}
	return defaultRowsPerChunk
}

func (o Options) chunkInterval() time.Duration {
	secs := o.ChunkIntervalSecs
	if secs <= 0 {
		secs = defaultChunkIntervalSecs
	}
	return time.Duration(secs) * time.Second
}

// Result summarizes a completed scan for the stdout summary.
type Result struct {
	Stats       walker.Snapshot
	RowsWritten uint64
	ChunkCount  int
	OutputPaths []string
}

// Run executes one full scan: Walk -> Batch -> RotatingWriter. When
// Options.Incremental is false, entries are instead written straight to a
// single Parquet file with no rotation or manifest (see runSingleFile).
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Incremental {
		return runIncremental(ctx, opts)
	}
	return runSingleFile(ctx, opts)
}

func runIncremental(ctx context.Context, opts Options) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // unblocks walker/batcher sends if the writer fails mid-scan

	cfg := rotatingwriter.Config{
		BaseOutputPath: opts.Output,
		RowsPerChunk:   opts.rowsPerChunk(),
		TimeInterval:   opts.chunkInterval(),
	}

	var rw *rotatingwriter.RotatingWriter
	var err error
	if opts.Resume {
		rw, err = rotatingwriter.Resume(cfg)
		if err != nil {
			return Result{}, fmt.Errorf("pipeline: resume: %w", err)
		}
	} else {
		rw = rotatingwriter.New(cfg)
	}

	walkOpts := walker.Options{
		NumThreads:          opts.numThreads(),
		FollowSymlinks:      opts.FollowSymlinks,
		MaxDepth:            opts.MaxDepth,
		MaxEntriesPerSecond: opts.MaxEntriesPerSecond,
		Skip:                rw.SkipSet(),
	}

	recordCh := make(chan entry.Entry, 2*opts.batchSize())
	batchCh := make(chan []entry.Entry, 2*opts.batchSize()) // capacity in batches, not rows

	stats := &walker.Stats{}
	start := time.Now()

	walkErrCh := make(chan error, 1)
	go func() {
		defer close(recordCh)
		walkErrCh <- walker.Walk(ctx, opts.Path, walkOpts, recordCh, stats)
	}()

	go batcher.Run(ctx, recordCh, batchCh, opts.batchSize())

	debug := debugEnabled()
	lastLog := time.Now()
	for batch := range batchCh {
		if err := rw.WriteBatch(batch); err != nil {
			rw.Abort()
			return Result{}, fmt.Errorf("pipeline: write batch: %w", err)
		}
		if debug && time.Since(lastLog) >= progressLogInterval {
			log.Printf("[scan] progress: files=%d dirs=%d bytes=%d errors=%d rows=%d",
				stats.Files.Load(), stats.Dirs.Load(), stats.Bytes.Load(), stats.Errors.Load(), rw.Manifest().TotalRows)
			lastLog = time.Now()
		}
	}

	if err := <-walkErrCh; err != nil {
		rw.Abort()
		return Result{}, fmt.Errorf("pipeline: walk: %w", err)
	}
	if err := rw.Finalize(); err != nil {
		rw.Abort()
		return Result{}, fmt.Errorf("pipeline: finalize: %w", err)
	}

	snap := stats.Finish(start, time.Now())
	return Result{
		Stats:       snap,
		RowsWritten: rw.Manifest().TotalRows,
		ChunkCount:  rw.Manifest().ChunkCount,
		OutputPaths: chunkPaths(rw),
	}, nil
}

func chunkPaths(rw *rotatingwriter.RotatingWriter) []string {
	m := rw.Manifest()
	paths := make([]string, len(m.Chunks))
	for i, c := range m.Chunks {
		paths[i] = c.FilePath
	}
	return paths
}

// runSingleFile handles the non-incremental path: entries are written to
// one Parquet file at opts.Output with no rotation and no manifest.
func runSingleFile(ctx context.Context, opts Options) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // unblocks walker/batcher sends if the writer fails mid-scan

	cw, err := chunkwriter.Create(opts.Output)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: create output file: %w", err)
	}

	walkOpts := walker.Options{
		NumThreads:          opts.numThreads(),
		FollowSymlinks:      opts.FollowSymlinks,
		MaxDepth:            opts.MaxDepth,
		MaxEntriesPerSecond: opts.MaxEntriesPerSecond,
	}

	recordCh := make(chan entry.Entry, 2*opts.batchSize())
	batchCh := make(chan []entry.Entry, 2*opts.batchSize()) // capacity in batches, not rows

	stats := &walker.Stats{}
	start := time.Now()

	walkErrCh := make(chan error, 1)
	go func() {
		defer close(recordCh)
		walkErrCh <- walker.Walk(ctx, opts.Path, walkOpts, recordCh, stats)
	}()

	go batcher.Run(ctx, recordCh, batchCh, opts.batchSize())

	for batch := range batchCh {
		if err := cw.WriteBatch(batch); err != nil {
			_, _ = cw.Close()
			return Result{}, fmt.Errorf("pipeline: write batch: %w", err)
		}
	}
	if err := <-walkErrCh; err != nil {
		_, _ = cw.Close()
		return Result{}, fmt.Errorf("pipeline: walk: %w", err)
	}

	rows := cw.RowCount()
	if _, err := cw.Close(); err != nil {
		return Result{}, fmt.Errorf("pipeline: close output file: %w", err)
	}

	snap := stats.Finish(start, time.Now())
	return Result{
		Stats:       snap,
		RowsWritten: rows,
		ChunkCount:  1,
		OutputPaths: []string{opts.Output},
	}, nil
}

func debugEnabled() bool {
	s := os.Getenv(DebugPipelineEnv)
	return s == "1" || s == "true" || s == "yes"
}
