//go:build linux

package walker

import (
	"io/fs"
	"syscall"
)

// deviceInode extracts the (device, inode) pair used to detect symlink
// cycles when follow_symlinks is enabled.
func deviceInode(info fs.FileInfo) ([2]uint64, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return [2]uint64{}, false
	}
	return [2]uint64{uint64(st.Dev), st.Ino}, true
}
