// Package batcher coalesces the walker's single-entry stream into
// fixed-size, top-level-dir-homogeneous batches for the rotating writer.
package batcher

import (
	"context"

	"github.com/eargollo/storagescan/internal/entry"
)

// Run reads entries from in until it closes, appending each to the current
// buffer. It flushes the buffer to out (transferring ownership of the
// slice) whenever:
//   - the buffer reaches size, or
//   - the next record's TopLevelDir differs from the buffer's (so every
//     batch is homogeneous in TopLevelDir, which the rotating writer's
//     top-level-directory bookkeeping requires to stay sound), or
//   - in closes, in which case any non-empty partial batch is flushed once
//     before out is closed.
//
// Run is the single consumer of in and the single producer of out; it owns
// out and closes it when done, so callers should range over out to learn
// when the batcher has finished.
func Run(ctx context.Context, in <-chan entry.Entry, out chan<- []entry.Entry, size int) {
	defer close(out)
	if size <= 0 {
		size = 1
	}

	buf := make([]entry.Entry, 0, size)
	currentTopLevelDir := ""

	flush := func() bool {
		if len(buf) == 0 {
			return true
		}
		select {
		case out <- buf:
			buf = make([]entry.Entry, 0, size)
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case e, ok := <-in:
			if !ok {
				flush()
				return
			}
			if len(buf) > 0 && e.TopLevelDir != currentTopLevelDir {
				if !flush() {
					return
				}
			}
			currentTopLevelDir = e.TopLevelDir
			buf = append(buf, e)
			if len(buf) >= size {
				if !flush() {
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
