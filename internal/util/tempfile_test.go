package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnsureDirectoryWritableRejectsMissingAndFilePaths(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureDirectoryWritable(dir); err != nil {
		t.Errorf("EnsureDirectoryWritable(%q) = %v, want nil", dir, err)
	}

	missing := filepath.Join(dir, "does-not-exist")
	if err := EnsureDirectoryWritable(missing); err == nil {
		t.Error("EnsureDirectoryWritable on a missing path should fail")
	}

	file := filepath.Join(dir, "a-file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := EnsureDirectoryWritable(file); err == nil {
		t.Error("EnsureDirectoryWritable on a regular file should fail")
	}
}

func TestCreateTempFilePathIsUnderDirWithExtension(t *testing.T) {
	dir := t.TempDir()
	got, err := CreateTempFilePath(dir, "trimmed", "mp4")
	if err != nil {
		t.Fatalf("CreateTempFilePath: %v", err)
	}
	if filepath.Dir(got) != dir {
		t.Errorf("CreateTempFilePath() = %q, want a path inside %q", got, dir)
	}
	if filepath.Ext(got) != ".mp4" {
		t.Errorf("CreateTempFilePath() = %q, want a .mp4 extension", got)
	}
	if _, err := os.Stat(got); !os.IsNotExist(err) {
		t.Errorf("CreateTempFilePath() should not create the file itself, got err=%v", err)
	}
}

func TestCleanupStaleTempFilesRemovesOnlyOldMatchingFiles(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "trimmed_abc123.mp4")
	fresh := filepath.Join(dir, "trimmed_def456.mp4")
	other := filepath.Join(dir, "source_xyz.mp4")
	for _, p := range []string{old, fresh, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile(%q): %v", p, err)
		}
	}

	oldTime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, oldTime, oldTime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	n, err := CleanupStaleTempFiles(dir, "trimmed", 24)
	if err != nil {
		t.Fatalf("CleanupStaleTempFiles: %v", err)
	}
	if n != 1 {
		t.Errorf("CleanupStaleTempFiles() = %d, want 1", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old trimmed file should have been removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh trimmed file should not have been removed")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("non-matching-prefix file should not have been removed")
	}
}

func TestCleanupStaleTempFilesOnMissingDirIsNoOp(t *testing.T) {
	n, err := CleanupStaleTempFiles(filepath.Join(t.TempDir(), "missing"), "trimmed", 24)
	if err != nil {
		t.Fatalf("CleanupStaleTempFiles on a missing dir: %v", err)
	}
	if n != 0 {
		t.Errorf("CleanupStaleTempFiles() = %d, want 0", n)
	}
}

func TestGetAvailableSpaceOnValidPathIsNonZero(t *testing.T) {
	if GetAvailableSpace(t.TempDir()) == 0 {
		t.Error("GetAvailableSpace on a real directory should report nonzero free space")
	}
}
