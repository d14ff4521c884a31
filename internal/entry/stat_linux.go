//go:build linux

package entry

import (
	"io/fs"
	"syscall"
)

// StatOf extracts the platform metadata Build needs from a Lstat/Stat
// result. On unix, accessed time and inode/permissions come from the raw
// syscall.Stat_t; created time is not exposed by this struct on Linux, so
// it is left nil (per the data model's "absent when platform does not
// expose it").
func StatOf(info fs.FileInfo) Stat {
	st := Stat{
		IsDir:        info.IsDir(),
		Size:         info.Size(),
		ModifiedTime: info.ModTime().Unix(),
	}
	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		st.AccessedTime = st.ModifiedTime
		st.Permissions = uint32(info.Mode().Perm())
		return st
	}
	ts := atime(sys)
	st.AccessedTime = int64(ts.Sec)
	st.Inode = sys.Ino
	st.Permissions = uint32(sys.Mode)
	return st
}

// atime returns the raw access-time field. Its name (Atim) is the Linux
// spelling; other unix variants name it differently (e.g. Atimespec).
func atime(sys *syscall.Stat_t) syscall.Timespec {
	return sys.Atim
}
