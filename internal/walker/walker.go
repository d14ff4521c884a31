// Package walker implements the parallel, work-stealing-by-top-level-directory
// traversal described in the scan pipeline: one goroutine pool, each worker
// driving an entire top-level directory's subtree to completion before
// picking up another, so a single worker never interleaves output across
// top-level buckets (the guarantee the rotating writer's resume bookkeeping
// depends on).
package walker

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/eargollo/storagescan/internal/entry"
)

// Options configures a single Walk call.
type Options struct {
	NumThreads          int             // worker pool size; <= 0 means 1
	FollowSymlinks      bool
	MaxDepth            *uint32         // nil = unlimited
	MaxEntriesPerSecond int             // 0 = no throttle
	Skip                map[string]bool // top-level dirs to drop (resume)
}

func (o Options) numThreads() int {
	if o.NumThreads <= 0 {
		return 1
	}
	return o.NumThreads
}

// Walk canonicalizes root, emits the root entry itself, then fans the
// direct children of root out across a pool of o.NumThreads workers -- one
// top-level unit (file or subtree) per worker at a time. It returns once
// every unit has been fully walked, every entry has been sent to out, or
// ctx is cancelled. Per-entry failures (unreadable directory, failed stat)
// are never fatal: they increment stats.Errors and the offending entity is
// skipped.
func Walk(ctx context.Context, root string, opts Options, out chan<- entry.Entry, stats *Stats) error {
	if stats == nil {
		stats = &Stats{}
	}
	root = canonicalize(root)

	rootInfo, err := os.Lstat(root)
	if err != nil {
		return fmt.Errorf("walker: stat scan root %q: %w", root, err)
	}
	rootEntry := entry.Build(root, entry.StatOf(rootInfo), root)
	if !opts.Skip[rootEntry.TopLevelDir] {
		if err := send(ctx, out, rootEntry); err != nil {
			return err
		}
		countEntry(stats, rootEntry)
	} else {
		stats.Skipped.Add(1)
	}

	if opts.MaxDepth != nil && *opts.MaxDepth == 0 {
		return nil
	}
	if !rootInfo.IsDir() {
		return nil
	}

	children, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("walker: list scan root %q: %w", root, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.numThreads())

	var limiter *rate.Limiter
	if opts.MaxEntriesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.MaxEntriesPerSecond), 1)
	}
	cd := newCycleDetector()
	if opts.FollowSymlinks {
		cd.markVisited(rootInfo)
	}

	for _, child := range children {
		childPath := filepath.Join(root, child.Name())
		g.Go(func() error {
			return walkTopLevelUnit(gctx, root, childPath, opts, limiter, cd, out, stats)
		})
	}
	return g.Wait()
}

// walkTopLevelUnit drives one top-level directory (or file) to completion.
// It is the unit assigned to exactly one worker at a time, which is what
// keeps a worker's output from interleaving across top-level buckets.
func walkTopLevelUnit(ctx context.Context, root, childPath string, opts Options, limiter *rate.Limiter, cd *cycleDetector, out chan<- entry.Entry, stats *Stats) error {
	conf := &fastwalk.Config{
		NumWorkers: 1, // one goroutine per subtree keeps this worker's output strictly ordered
	}

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			stats.Errors.Add(1)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		depth, _, _ := entry.RelativeDepth(path, root)
		if opts.MaxDepth != nil && depth > *opts.MaxDepth {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			stats.Errors.Add(1)
			return nil
		}

		e := entry.Build(path, entry.StatOf(info), root)
		if opts.Skip[e.TopLevelDir] {
			stats.Skipped.Add(1)
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := send(ctx, out, e); err != nil {
			return err
		}
		countEntry(stats, e)

		if d.IsDir() {
			if opts.FollowSymlinks {
				cd.markVisited(info)
			}
			if opts.MaxDepth != nil && depth >= *opts.MaxDepth {
				return fs.SkipDir
			}
			return nil
		}

		// Symlinked directories are traversed only when follow is on, the
		// depth budget allows children, and the target has not already been
		// visited (cycle). The link's own entry was already emitted above,
		// with the link's size, not the target's.
		if opts.FollowSymlinks && d.Type()&fs.ModeSymlink != 0 {
			if opts.MaxDepth != nil && depth >= *opts.MaxDepth {
				return nil
			}
			traverse, terr := cd.shouldTraverse(path)
			if terr != nil {
				if !os.IsNotExist(terr) {
					stats.Errors.Add(1)
				}
				return nil
			}
			if traverse {
				return fastwalk.ErrTraverseLink
			}
		}
		return nil
	}

	// fastwalk.Walk resolves a symlink given as its root, so a top-level
	// symlink is handled from its own Lstat: emitted as a link, and walked
	// into only when walkFn asks for the link to be traversed.
	if fi, lerr := os.Lstat(childPath); lerr == nil && fi.Mode()&fs.ModeSymlink != 0 {
		if err := walkFn(childPath, fs.FileInfoToDirEntry(fi), nil); err != fastwalk.ErrTraverseLink {
			return err
		}
		return fastwalk.Walk(conf, childPath, func(path string, d fs.DirEntry, err error) error {
			if path == childPath {
				return nil // the link's own entry was emitted above
			}
			return walkFn(path, d, err)
		})
	}

	// Cancellation propagates as an error so a truncated walk is never
	// mistaken for a clean finish and finalized as complete.
	return fastwalk.Walk(conf, childPath, walkFn)
}

func send(ctx context.Context, out chan<- entry.Entry, e entry.Entry) error {
	select {
	case out <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func countEntry(stats *Stats, e entry.Entry) {
	if e.FileType == "directory" {
		stats.Dirs.Add(1)
		return
	}
	stats.Files.Add(1)
	stats.Bytes.Add(int64(e.Size))
}

// canonicalize returns an absolute, cleaned form of root. It deliberately
// does not resolve symlinks in the root itself: the scan root is whatever
// the caller named.
func canonicalize(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}
	return filepath.Clean(abs)
}

// cycleDetector tracks visited directory identities (device, inode) so a
// followed symlink that re-enters an already-visited directory is treated
// as not-followed rather than as an I/O error, per the symlink policy.
type cycleDetector struct {
	mu      sync.Mutex
	visited map[[2]uint64]bool
}

func newCycleDetector() *cycleDetector {
	return &cycleDetector{visited: make(map[[2]uint64]bool)}
}

// markVisited records a directory's (device, inode) identity so a later
// symlink pointing back at it is recognized as a cycle.
func (cd *cycleDetector) markVisited(info fs.FileInfo) {
	id, ok := deviceInode(info)
	if !ok {
		return
	}
	cd.mu.Lock()
	cd.visited[id] = true
	cd.mu.Unlock()
}

// shouldTraverse reports whether the symlink at path may be followed into
// its target directory: true the first time a given (device, inode) pair
// is seen, false on every subsequent visit (a cycle).
func (cd *cycleDetector) shouldTraverse(path string) (bool, error) {
	targetInfo, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if !targetInfo.IsDir() {
		return false, nil
	}
	id, ok := deviceInode(targetInfo)
	if !ok {
		return true, nil
	}
	cd.mu.Lock()
	defer cd.mu.Unlock()
	if cd.visited[id] {
		return false, nil
	}
	cd.visited[id] = true
	return true, nil
}
