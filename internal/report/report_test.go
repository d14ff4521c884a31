package report

import (
	"strings"
	"testing"

	"github.com/eargollo/storagescan/internal/pipeline"
	"github.com/eargollo/storagescan/internal/walker"
)

func TestSummary_includesCoreFields(t *testing.T) {
	res := pipeline.Result{
		Stats: walker.Snapshot{
			FilesScanned:       3,
			DirectoriesScanned: 1,
			TotalSize:          3,
			ErrorsEncountered:  0,
			DurationSecs:       1.5,
		},
		RowsWritten: 4,
		ChunkCount:  1,
		OutputPaths: []string{"/data/out_chunk_0000.parquet"},
	}

	out := Summary(res)
	for _, want := range []string{"files scanned:", "3", "rows written:", "4", "chunks:", "1", "out_chunk_0000.parquet"} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(0); got != "0.0s" {
		t.Errorf("formatDuration(0) = %q, want 0.0s", got)
	}
}
