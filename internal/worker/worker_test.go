package worker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/five82/coreorc/internal/config"
	"github.com/five82/coreorc/internal/domain"
	"github.com/five82/coreorc/internal/reporter"
	"github.com/five82/coreorc/internal/trimmer"
)

func TestStageBandScale(t *testing.T) {
	cases := []struct {
		percent int
		want    int
	}{
		{0, 42},
		{50, 66},
		{100, 90},
	}
	for _, c := range cases {
		if got := analyzingBand.scale(c.percent); got != c.want {
			t.Errorf("analyzingBand.scale(%d) = %d, want %d", c.percent, got, c.want)
		}
	}
}

func TestTrimmedOutputPath(t *testing.T) {
	cases := map[string]string{
		"/tmp/lecture.mp4": "/tmp/lecture_trimmed.mp4",
		"noext":            "noext_trimmed",
	}
	for in, want := range cases {
		if got := trimmedOutputPath(in); got != want {
			t.Errorf("trimmedOutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}

type fakeTrimmer struct {
	gotSegments []trimmer.Segment
	called      bool
}

func (f *fakeTrimmer) Trim(ctx context.Context, sourcePath string, segments []trimmer.Segment, outputPath string) error {
	f.called = true
	f.gotSegments = segments
	return nil
}

func TestTrimPairsConsecutiveTimestamps(t *testing.T) {
	ft := &fakeTrimmer{}
	w := &Worker{Trimmer: ft}

	artifact := domain.MergedArtifact{
		ContentMetadata: domain.ContentMetadata{
			MainContentTimestamps: []string{"00:00:10", "00:05:00", "00:10:00", "00:15:00", "00:20:00"},
		},
	}

	gotPath, err := w.trim(context.Background(), domain.Job{SourcePath: "/tmp/in.mp4"}, artifact)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if !ft.called {
		t.Fatal("trim did not invoke the Trimmer")
	}
	if gotPath != "/tmp/in_trimmed.mp4" {
		t.Errorf("trim() path = %q, want %q", gotPath, "/tmp/in_trimmed.mp4")
	}

	want := []trimmer.Segment{
		{Start: "00:00:10", End: "00:05:00"},
		{Start: "00:10:00", End: "00:15:00"},
	}
	if len(ft.gotSegments) != len(want) {
		t.Fatalf("segments = %+v, want %+v (an odd trailing timestamp is dropped)", ft.gotSegments, want)
	}
	for i := range want {
		if ft.gotSegments[i] != want[i] {
			t.Errorf("segments[%d] = %+v, want %+v", i, ft.gotSegments[i], want[i])
		}
	}
}

func TestAllocateTrimOutputPathUsesConfiguredTempDir(t *testing.T) {
	dir := t.TempDir()
	w := &Worker{
		Config:   &config.Config{TempVideoDir: dir},
		Reporter: reporter.NullReporter{},
	}

	got, err := w.allocateTrimOutputPath("/source/lecture.mp4")
	if err != nil {
		t.Fatalf("allocateTrimOutputPath: %v", err)
	}
	if filepath.Dir(got) != dir {
		t.Errorf("allocateTrimOutputPath() = %q, want a path inside %q", got, dir)
	}
	if filepath.Ext(got) != ".mp4" {
		t.Errorf("allocateTrimOutputPath() = %q, want a .mp4 extension", got)
	}
}

func TestAllocateTrimOutputPathFallsBackWithoutConfig(t *testing.T) {
	w := &Worker{}
	got, err := w.allocateTrimOutputPath("/tmp/lecture.mp4")
	if err != nil {
		t.Fatalf("allocateTrimOutputPath: %v", err)
	}
	if got != "/tmp/lecture_trimmed.mp4" {
		t.Errorf("allocateTrimOutputPath() = %q, want %q", got, "/tmp/lecture_trimmed.mp4")
	}
}

func TestTrimNoSegmentsIsNoOp(t *testing.T) {
	ft := &fakeTrimmer{}
	w := &Worker{Trimmer: ft}

	artifact := domain.MergedArtifact{
		ContentMetadata: domain.ContentMetadata{MainContentTimestamps: []string{"00:00:10"}},
	}
	if _, err := w.trim(context.Background(), domain.Job{SourcePath: "/tmp/in.mp4"}, artifact); err != nil {
		t.Fatalf("trim: %v", err)
	}
	if ft.called {
		t.Error("trim invoked the Trimmer with no complete segment pairs")
	}
}
