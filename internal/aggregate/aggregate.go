// Package aggregate implements the "aggregate" subcommand: it concatenates
// a scan's chunk files into a single Parquet file. It runs outside the
// scan pipeline, against whatever chunk files a prior run left on disk.
package aggregate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/eargollo/storagescan/internal/chunkwriter"
)

// chunkInfix is the literal substring that marks a chunk file. Discovery
// requires the full infix, so a stray "chunky.parquet" or "some_file.parquet"
// in the output directory is never swept into the aggregate.
const chunkInfix = "_chunk_"

// DiscoverChunks returns the chunk files in dir, in ascending chunk-number
// order (the dense-numbering order the manifest already guarantees, but
// this function is also usable directly against a directory with no
// manifest at hand). Ordering is numeric on the chunk number, so sequences
// past 9999 -- where the zero padding widens -- still sort correctly.
func DiscoverChunks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("aggregate: list %q: %w", dir, err)
	}
	var chunks []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.Contains(e.Name(), chunkInfix) {
			chunks = append(chunks, filepath.Join(dir, e.Name()))
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		ni, iok := chunkNumber(chunks[i])
		nj, jok := chunkNumber(chunks[j])
		if iok && jok && ni != nj {
			return ni < nj
		}
		return chunks[i] < chunks[j]
	})
	return chunks, nil
}

// chunkNumber extracts the numeric suffix after the last chunkInfix in
// path's base name.
func chunkNumber(path string) (int, bool) {
	name := filepath.Base(path)
	i := strings.LastIndex(name, chunkInfix)
	if i < 0 {
		return 0, false
	}
	rest := name[i+len(chunkInfix):]
	if j := strings.IndexByte(rest, '.'); j >= 0 {
		rest = rest[:j]
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Run reads every row out of each file in chunkPaths and writes them, in
// order, into a single new Parquet file at outputPath. It returns the
// total number of rows written.
func Run(chunkPaths []string, outputPath string) (uint64, error) {
	if len(chunkPaths) == 0 {
		return 0, fmt.Errorf("aggregate: no chunk files to concatenate")
	}

	out, err := chunkwriter.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("aggregate: create %q: %w", outputPath, err)
	}

	for _, path := range chunkPaths {
		rows, err := chunkwriter.ReadAll(path)
		if err != nil {
			return 0, fmt.Errorf("aggregate: read %q: %w", path, err)
		}
		if err := out.WriteRows(rows); err != nil {
			return 0, fmt.Errorf("aggregate: write rows from %q: %w", path, err)
		}
	}

	total := out.RowCount()
	if _, err := out.Close(); err != nil {
		return 0, fmt.Errorf("aggregate: close %q: %w", outputPath, err)
	}
	return total, nil
}
