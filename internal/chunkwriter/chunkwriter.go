// Package chunkwriter encodes batches of entries into the columnar chunk
// file format: Parquet, SNAPPY-compressed, dictionary-encoded, with
// 100,000-row row groups.
package chunkwriter

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/eargollo/storagescan/internal/entry"
)

// rowGroupRowLimit is the row-group size target observable by any standard
// Parquet reader of a chunk file.
const rowGroupRowLimit = 100_000

// Row is the on-disk schema. Field order is load-bearing for downstream
// readers and must track the documented column order exactly.
type Row struct {
	Path         string `parquet:"path,snappy"`
	Size         uint64 `parquet:"size,snappy"`
	ModifiedTime int64  `parquet:"modified_time,snappy"`
	AccessedTime int64  `parquet:"accessed_time,snappy"`
	CreatedTime  *int64 `parquet:"created_time,snappy,optional"`
	FileType     string `parquet:"file_type,snappy,dict"`
	Inode        uint64 `parquet:"inode,snappy"`
	Permissions  uint32 `parquet:"permissions,snappy"`
	ParentPath   string `parquet:"parent_path,snappy,dict"`
	Depth        uint32 `parquet:"depth,snappy"`
	TopLevelDir  string `parquet:"top_level_dir,snappy,dict"`
}

// FromEntry converts a walker entry into its row representation.
func FromEntry(e entry.Entry) Row {
	return Row{
		Path:         e.Path,
		Size:         e.Size,
		ModifiedTime: e.ModifiedTime,
		AccessedTime: e.AccessedTime,
		CreatedTime:  e.CreatedTime,
		FileType:     e.FileType,
		Inode:        e.Inode,
		Permissions:  e.Permissions,
		ParentPath:   e.ParentPath,
		Depth:        e.Depth,
		TopLevelDir:  e.TopLevelDir,
	}
}

// Writer wraps a single open chunk file. It is not safe for concurrent use;
// the rotating writer serializes all access to it.
type Writer struct {
	path string
	f    *os.File
	pw   *parquet.GenericWriter[Row]
	rows uint64
}

// Create opens a new chunk file at path for writing, truncating any
// existing content.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("chunkwriter: create %q: %w", path, err)
	}
	pw := parquet.NewGenericWriter[Row](f,
		parquet.Compression(&parquet.Snappy),
		parquet.MaxRowsPerRowGroup(rowGroupRowLimit),
	)
	return &Writer{path: path, f: f, pw: pw}, nil
}

// WriteBatch appends entries as rows to the chunk, in order.
func (w *Writer) WriteBatch(entries []entry.Entry) error {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = FromEntry(e)
	}
	return w.WriteRows(rows)
}

// WriteRows appends rows to the chunk directly, in order. Used by the
// aggregate command, which reads rows back out of existing chunk files and
// has no need to round-trip them through entry.Entry.
func (w *Writer) WriteRows(rows []Row) error {
	n, err := w.pw.Write(rows)
	w.rows += uint64(n)
	if err != nil {
		return fmt.Errorf("chunkwriter: write batch to %q: %w", w.path, err)
	}
	return nil
}

// RowCount reports rows written so far.
func (w *Writer) RowCount() uint64 { return w.rows }

// Close flushes and fsyncs the chunk file, returning its final size. After
// Close, w must not be reused.
func (w *Writer) Close() (size uint64, err error) {
	if err := w.pw.Close(); err != nil {
		_ = w.f.Close()
		return 0, fmt.Errorf("chunkwriter: close writer for %q: %w", w.path, err)
	}
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		return 0, fmt.Errorf("chunkwriter: sync %q: %w", w.path, err)
	}
	info, err := w.f.Stat()
	if err != nil {
		_ = w.f.Close()
		return 0, fmt.Errorf("chunkwriter: stat %q: %w", w.path, err)
	}
	if err := w.f.Close(); err != nil {
		return 0, fmt.Errorf("chunkwriter: close file %q: %w", w.path, err)
	}
	return uint64(info.Size()), nil
}

// ReadAll reads every row back out of a chunk file, for round-trip tests
// and for the aggregate command's chunk concatenation.
func ReadAll(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chunkwriter: open %q: %w", path, err)
	}
	defer f.Close()

	pr := parquet.NewGenericReader[Row](f)
	defer pr.Close()

	rows := make([]Row, 0, pr.NumRows())
	buf := make([]Row, 1024)
	for {
		n, err := pr.Read(buf)
		rows = append(rows, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("chunkwriter: read %q: %w", path, err)
		}
		if n == 0 {
			return rows, nil
		}
	}
}
