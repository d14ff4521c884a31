// Package entry builds the typed per-filesystem-object record that flows
// through the scan pipeline: walker -> batcher -> rotating writer.
package entry

import (
	"path/filepath"
	"strings"
)

// Entry holds metadata for a single filesystem object (file or directory).
// CreatedTime is nil when the platform does not expose a creation time.
type Entry struct {
	Path         string
	Size         uint64
	ModifiedTime int64
	AccessedTime int64
	CreatedTime  *int64
	FileType     string
	Inode        uint64
	Permissions  uint32
	ParentPath   string
	Depth        uint32
	TopLevelDir  string
}

// Stat is the subset of platform file metadata Build needs. Callers
// construct it from os.Lstat/os.Stat results via the platform-specific
// StatOf helper so Build itself stays pure and testable.
type Stat struct {
	IsDir        bool
	Size         int64
	ModifiedTime int64
	AccessedTime int64
	CreatedTime  *int64
	Inode        uint64
	Permissions  uint32
}

// Build is a pure transformation from (path, stat, scanRoot) to an Entry.
// It performs no I/O: callers already did the stat/lstat call. depth is 0
// and topLevelDir falls back to the root's own last component (or "root"
// when the root has none) iff path == scanRoot.
func Build(path string, st Stat, scanRoot string) Entry {
	depth, topLevelDir, isRoot := relativePosition(path, scanRoot)

	parentPath := filepath.Dir(path)
	if isRoot {
		parentPath = filepath.Dir(scanRoot)
	}
	if parentPath == path || parentPath == "" {
		parentPath = "/"
	}

	fileType := "directory"
	if !st.IsDir {
		fileType = extensionTag(path)
	}

	size := uint64(0)
	if st.Size > 0 {
		size = uint64(st.Size)
	}

	return Entry{
		Path:         path,
		Size:         size,
		ModifiedTime: st.ModifiedTime,
		AccessedTime: st.AccessedTime,
		CreatedTime:  st.CreatedTime,
		FileType:     fileType,
		Inode:        st.Inode,
		Permissions:  st.Permissions,
		ParentPath:   parentPath,
		Depth:        depth,
		TopLevelDir:  topLevelDir,
	}
}

// RelativeDepth exposes relativePosition to callers (the walker) that need
// to make a max-depth decision before a full Entry can be built.
func RelativeDepth(path, scanRoot string) (depth uint32, topLevelDir string, isRoot bool) {
	return relativePosition(path, scanRoot)
}

// relativePosition computes depth and top-level-dir from the components of
// path relative to scanRoot. depth == 0 and isRoot == true iff path is
// scanRoot itself.
func relativePosition(path, scanRoot string) (depth uint32, topLevelDir string, isRoot bool) {
	rel, err := filepath.Rel(scanRoot, path)
	if err != nil || rel == "." {
		return 0, rootFallback(scanRoot), true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	return uint32(len(parts)), parts[0], false
}

// rootFallback names the scan root's own top_level_dir: its last path
// component, or "root" when the root has none (e.g. path is "/").
func rootFallback(scanRoot string) string {
	base := filepath.Base(filepath.Clean(scanRoot))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "root"
	}
	return base
}

// extensionTag returns the lowercased extension without its leading dot,
// or "no_extension" when path has none.
func extensionTag(path string) string {
	ext := filepath.Ext(path)
	if ext == "" || ext == "." {
		return "no_extension"
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
