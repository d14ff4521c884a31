//go:build !linux

package walker

import "io/fs"

// deviceInode has no portable fallback; platforms without syscall.Stat_t
// disable cycle detection (shouldTraverse then reports every symlinked
// directory as traversable, on every visit).
func deviceInode(info fs.FileInfo) ([2]uint64, bool) {
	return [2]uint64{}, false
}
