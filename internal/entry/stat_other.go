//go:build !linux

package entry

import "io/fs"

// StatOf falls back to portable fs.FileInfo fields on platforms where this
// module does not decode the raw stat structure. Inode is left zero,
// permissions carry only the mode's permission bits, accessed time falls
// back to the modified time, and created time is left nil.
func StatOf(info fs.FileInfo) Stat {
	mtime := info.ModTime().Unix()
	return Stat{
		IsDir:        info.IsDir(),
		Size:         info.Size(),
		ModifiedTime: mtime,
		AccessedTime: mtime,
		Permissions:  uint32(info.Mode().Perm()),
	}
}
