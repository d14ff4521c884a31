package entry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuild_rootEntry(t *testing.T) {
	root := "/data/archive"
	st := Stat{IsDir: true, ModifiedTime: 1700000000}

	e := Build(root, st, root)

	if e.Depth != 0 {
		t.Errorf("Depth = %d, want 0", e.Depth)
	}
	if e.TopLevelDir != "archive" {
		t.Errorf("TopLevelDir = %q, want %q", e.TopLevelDir, "archive")
	}
	if e.FileType != "directory" {
		t.Errorf("FileType = %q, want directory", e.FileType)
	}
}

func TestBuild_rootFallsBackToRootName(t *testing.T) {
	st := Stat{IsDir: true}
	e := Build("/", st, "/")
	if e.TopLevelDir != "root" {
		t.Errorf("TopLevelDir = %q, want %q", e.TopLevelDir, "root")
	}
}

func TestBuild_childDepthAndTopLevelDir(t *testing.T) {
	root := "/data/archive"
	path := filepath.Join(root, "A", "sub", "file.txt")
	st := Stat{IsDir: false}

	e := Build(path, st, root)

	if e.Depth != 3 {
		t.Errorf("Depth = %d, want 3", e.Depth)
	}
	if e.TopLevelDir != "A" {
		t.Errorf("TopLevelDir = %q, want %q", e.TopLevelDir, "A")
	}
	if e.FileType != "txt" {
		t.Errorf("FileType = %q, want txt", e.FileType)
	}
	if e.ParentPath != filepath.Join(root, "A", "sub") {
		t.Errorf("ParentPath = %q, want %q", e.ParentPath, filepath.Join(root, "A", "sub"))
	}
}

func TestBuild_noExtensionTag(t *testing.T) {
	root := "/data"
	path := filepath.Join(root, "README")
	e := Build(path, Stat{}, root)
	if e.FileType != "no_extension" {
		t.Errorf("FileType = %q, want no_extension", e.FileType)
	}
}

func TestBuild_extensionIsLowercased(t *testing.T) {
	root := "/data"
	path := filepath.Join(root, "IMAGE.PNG")
	e := Build(path, Stat{}, root)
	if e.FileType != "png" {
		t.Errorf("FileType = %q, want png", e.FileType)
	}
}

func TestStatOf_onRealFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	info, err := os.Lstat(path)
	if err != nil {
		t.Fatalf("Lstat: %v", err)
	}
	st := StatOf(info)
	if st.Size != 5 {
		t.Errorf("Size = %d, want 5", st.Size)
	}
	if st.IsDir {
		t.Errorf("IsDir = true, want false")
	}
}
