package merger

import (
	"testing"

	"github.com/five82/coreorc/internal/domain"
)

func TestParseDurationFormats(t *testing.T) {
	cases := map[string]float64{
		"01:02:03":  3723,
		"02:03":     123,
		"5 minutes": 300,
		"~5 min":    300,
		"90":        5400,
		"Unknown":   0,
		"":          0,
	}
	for in, want := range cases {
		if got := ParseDuration(in); got != want {
			t.Errorf("ParseDuration(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFormatHMS(t *testing.T) {
	cases := map[float64]string{
		0:    "00:00:00",
		59:   "00:00:59",
		3661: "01:01:01",
		-5:   "00:00:00",
	}
	for in, want := range cases {
		if got := FormatHMS(in); got != want {
			t.Errorf("FormatHMS(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestMergeDedupesConceptsAndOffsetsTimestamps(t *testing.T) {
	results := []domain.ChunkResult{
		{
			ChunkIndex:        0,
			ChunkStartOffsetS: 0,
			Analysis: domain.ChunkAnalysis{
				CleanScript: "first part",
				Concepts:    []string{"Recursion", "  loops  "},
				Practice:    []string{"exercise 1"},
				ContentMetadata: domain.ContentMetadata{
					MainContentTimestamps: []string{"00:00:10", "00:00:20"},
				},
			},
		},
		{
			ChunkIndex:        1,
			ChunkStartOffsetS: 1200,
			Analysis: domain.ChunkAnalysis{
				CleanScript: "second part",
				Concepts:    []string{"recursion", "closures"},
				Practice:    []string{"exercise 1", "exercise 2"},
				ContentMetadata: domain.ContentMetadata{
					MainContentTimestamps: []string{"00:00:05"},
				},
			},
		},
	}

	artifact := Merge(results)

	if len(artifact.Concepts) != 3 {
		t.Fatalf("Concepts = %v, want 3 deduped entries", artifact.Concepts)
	}
	if len(artifact.Practice) != 2 {
		t.Fatalf("Practice = %v, want 2 deduped entries", artifact.Practice)
	}

	wantTimestamps := []string{"00:00:10", "00:00:20", "00:20:05"}
	if len(artifact.ContentMetadata.MainContentTimestamps) != len(wantTimestamps) {
		t.Fatalf("MainContentTimestamps = %v, want %v", artifact.ContentMetadata.MainContentTimestamps, wantTimestamps)
	}
	for i, ts := range wantTimestamps {
		if artifact.ContentMetadata.MainContentTimestamps[i] != ts {
			t.Errorf("MainContentTimestamps[%d] = %q, want %q", i, artifact.ContentMetadata.MainContentTimestamps[i], ts)
		}
	}

	if artifact.ProcessingMetadata.TotalChunks != 2 || artifact.ProcessingMetadata.SuccessfulChunks != 2 {
		t.Errorf("ProcessingMetadata = %+v, want 2 total, 2 successful", artifact.ProcessingMetadata)
	}
}

func TestMergeCountsPlaceholdersAsFailed(t *testing.T) {
	results := []domain.ChunkResult{
		{ChunkIndex: 0, Placeholder: false},
		{ChunkIndex: 1, Placeholder: true},
	}
	artifact := Merge(results)
	if artifact.ProcessingMetadata.SuccessfulChunks != 1 || artifact.ProcessingMetadata.FailedChunks != 1 {
		t.Errorf("ProcessingMetadata = %+v, want 1 successful, 1 failed", artifact.ProcessingMetadata)
	}
}
