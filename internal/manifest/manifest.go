// Package manifest is the durable ledger of chunk files and resume state.
// It is owned exclusively by the rotating writer (internal/rotatingwriter);
// no other package mutates it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ChunkMetadata describes one persisted chunk file.
type ChunkMetadata struct {
	ChunkNumber int    `json:"chunk_number"`
	FilePath    string `json:"file_path"`
	RowCount    uint64 `json:"row_count"`
	FileSize    uint64 `json:"file_size"`
	CreatedAt   int64  `json:"created_at"`
}

// Manifest is the JSON ledger described in the data model: which chunks
// exist, which top-level directories have been fully drained, and the
// scan's start/end bracket.
type Manifest struct {
	ScanPath              string          `json:"scan_path"`
	TotalRows             uint64          `json:"total_rows"`
	ChunkCount            int             `json:"chunk_count"`
	Chunks                []ChunkMetadata `json:"chunks"`
	ScanStart             int64           `json:"scan_start"`
	ScanEnd               *int64          `json:"scan_end"`
	Completed             bool            `json:"completed"`
	CompletedTopLevelDirs stringSet       `json:"completed_top_level_dirs"`
	CurrentTopLevelDir    *string         `json:"current_top_level_dir"`
}

// New creates a fresh manifest for a scan starting now.
func New(scanPath string) *Manifest {
	return &Manifest{
		ScanPath:              scanPath,
		Chunks:                []ChunkMetadata{},
		CompletedTopLevelDirs: newStringSet(),
		ScanStart:             time.Now().Unix(),
	}
}

// Load reads and parses a manifest JSON file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %q: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %q: %w", path, err)
	}
	if m.CompletedTopLevelDirs == nil {
		m.CompletedTopLevelDirs = newStringSet()
	}
	return &m, nil
}

// IsDirCompleted reports whether dir has been fully drained.
func (m *Manifest) IsDirCompleted(dir string) bool {
	return m.CompletedTopLevelDirs.has(dir)
}

// SkipSet returns the completed top-level directories as the set the
// walker should skip on resume.
func (m *Manifest) SkipSet() map[string]bool {
	out := make(map[string]bool, len(m.CompletedTopLevelDirs))
	for d := range m.CompletedTopLevelDirs {
		out[d] = true
	}
	return out
}

// StartDirectory marks dir as the in-progress top-level directory.
func (m *Manifest) StartDirectory(dir string) {
	d := dir
	m.CurrentTopLevelDir = &d
}

// CompleteCurrentDirectory moves the in-progress directory (if any) into
// CompletedTopLevelDirs, preserving the invariant that the two sets are
// disjoint.
func (m *Manifest) CompleteCurrentDirectory() {
	if m.CurrentTopLevelDir == nil {
		return
	}
	m.CompletedTopLevelDirs.add(*m.CurrentTopLevelDir)
	m.CurrentTopLevelDir = nil
}

// AddChunk records a finished chunk and folds its row count into the total.
func (m *Manifest) AddChunk(c ChunkMetadata) {
	m.TotalRows += c.RowCount
	m.ChunkCount++
	m.Chunks = append(m.Chunks, c)
}

// Complete marks the manifest finished as of now.
func (m *Manifest) Complete() {
	now := time.Now().Unix()
	m.ScanEnd = &now
	m.Completed = true
}

// Save serializes the manifest as pretty-printed JSON and writes it
// atomically: to a uuid-suffixed temp file in the same directory, then
// rename over dest. This is what lets a reader never observe a partially
// written manifest, even across a crash mid-write.
func (m *Manifest) Save(dest string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	dir := filepath.Dir(dest)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(dest), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("manifest: write temp file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("manifest: rename into place: %w", err)
	}
	return nil
}

// stringSet serializes as a sorted JSON array (a human-readable rendering
// of a set) rather than as a JSON object, so the on-disk manifest reads the
// way the data model's "set<string>" is documented.
type stringSet map[string]struct{}

func newStringSet() stringSet { return make(stringSet) }

func (s stringSet) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s stringSet) add(v string) { s[v] = struct{}{} }

func (s stringSet) MarshalJSON() ([]byte, error) {
	items := make([]string, 0, len(s))
	for v := range s {
		items = append(items, v)
	}
	sort.Strings(items)
	return json.Marshal(items)
}

func (s *stringSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	set := make(stringSet, len(items))
	for _, v := range items {
		set[v] = struct{}{}
	}
	*s = set
	return nil
}
