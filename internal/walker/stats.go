package walker

import (
	"sync/atomic"
	"time"
)

// Stats holds the five atomic counters maintained during a scan (relaxed
// ordering suffices: they are observational only, never a correctness
// invariant). Safe for concurrent use by every walker goroutine.
type Stats struct {
	Files   atomic.Int64
	Dirs    atomic.Int64
	Bytes   atomic.Int64
	Errors  atomic.Int64
	Skipped atomic.Int64
}

// Snapshot is the immutable summary reported at the end of a scan.
type Snapshot struct {
	FilesScanned       uint64
	DirectoriesScanned uint64
	TotalSize          uint64
	ErrorsEncountered  uint64
	Skipped            uint64
	DurationSecs       float64
	StartTime          int64
	EndTime            int64
}

// FilesPerSecond reports the scan's average file throughput.
func (s Snapshot) FilesPerSecond() float64 {
	if s.DurationSecs <= 0 {
		return 0
	}
	return float64(s.FilesScanned) / s.DurationSecs
}

// Finish loads the current counters into a Snapshot bounded by [start, end].
func (s *Stats) Finish(start, end time.Time) Snapshot {
	return Snapshot{
		FilesScanned:       uint64(s.Files.Load()),
		DirectoriesScanned: uint64(s.Dirs.Load()),
		TotalSize:          uint64(s.Bytes.Load()),
		ErrorsEncountered:  uint64(s.Errors.Load()),
		Skipped:            uint64(s.Skipped.Load()),
		DurationSecs:       end.Sub(start).Seconds(),
		StartTime:          start.Unix(),
		EndTime:            end.Unix(),
	}
}
