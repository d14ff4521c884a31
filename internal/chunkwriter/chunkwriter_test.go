package chunkwriter

import (
	"path/filepath"
	"testing"

	"github.com/eargollo/storagescan/internal/entry"
)

func makeEntries(n int) []entry.Entry {
	es := make([]entry.Entry, n)
	for i := range es {
		es[i] = entry.Entry{
			Path:         filepath.Join("/root", "file"),
			Size:         uint64(i),
			ModifiedTime: 1000,
			AccessedTime: 1000,
			FileType:     "file",
			Inode:        uint64(i + 1),
			Permissions:  0644,
			ParentPath:   "/root",
			Depth:        1,
			TopLevelDir:  "root",
		}
	}
	return es
}

func TestWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk_0000.parquet")

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	entries := makeEntries(5)
	if err := w.WriteBatch(entries); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if w.RowCount() != 5 {
		t.Fatalf("RowCount = %d, want 5", w.RowCount())
	}
	size, err := w.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if size == 0 {
		t.Fatal("expected nonzero chunk file size")
	}

	rows, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(rows))
	}
	for i, r := range rows {
		if r.Size != uint64(i) {
			t.Errorf("row %d: Size = %d, want %d", i, r.Size, i)
		}
		if r.TopLevelDir != "root" {
			t.Errorf("row %d: TopLevelDir = %q, want root", i, r.TopLevelDir)
		}
	}
}

func TestWriter_MultipleBatchesAccumulateRowCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk_0000.parquet")

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.WriteBatch(makeEntries(3)); err != nil {
		t.Fatalf("WriteBatch 1: %v", err)
	}
	if err := w.WriteBatch(makeEntries(2)); err != nil {
		t.Fatalf("WriteBatch 2: %v", err)
	}
	if w.RowCount() != 5 {
		t.Fatalf("RowCount = %d, want 5", w.RowCount())
	}
	if _, err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(rows))
	}
}
