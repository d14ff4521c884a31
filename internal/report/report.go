// Package report formats the final scan summary printed to stdout: files
// scanned, directories scanned, total size, rows written, duration,
// files/sec, errors encountered, and output paths.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/eargollo/storagescan/internal/pipeline"
)

// Summary renders the stdout summary for a completed scan.
func Summary(res pipeline.Result) string {
	var b strings.Builder
	s := res.Stats

	fmt.Fprintln(&b, "--- Scan summary ---")
	fmt.Fprintf(&b, "files scanned:       %s\n", humanize.Comma(int64(s.FilesScanned)))
	fmt.Fprintf(&b, "directories scanned: %s\n", humanize.Comma(int64(s.DirectoriesScanned)))
	fmt.Fprintf(&b, "total size:          %s\n", humanize.Bytes(s.TotalSize))
	fmt.Fprintf(&b, "rows written:        %s\n", humanize.Comma(int64(res.RowsWritten)))
	fmt.Fprintf(&b, "duration:            %s\n", formatDuration(time.Duration(s.DurationSecs*float64(time.Second))))
	fmt.Fprintf(&b, "files/sec:           %.1f\n", s.FilesPerSecond())
	fmt.Fprintf(&b, "errors encountered:  %s\n", humanize.Comma(int64(s.ErrorsEncountered)))
	if s.Skipped > 0 {
		fmt.Fprintf(&b, "skipped (resume):    %s\n", humanize.Comma(int64(s.Skipped)))
	}
	fmt.Fprintf(&b, "chunks:              %d\n", res.ChunkCount)
	for _, p := range res.OutputPaths {
		fmt.Fprintf(&b, "  %s\n", p)
	}
	return b.String()
}

// formatDuration renders a plain elapsed span; go-humanize's Time/RelTime
// helpers format against a reference instant, so they don't fit here.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}
