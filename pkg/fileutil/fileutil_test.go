package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	if Exists(filepath.Join(tmpDir, "nonexistent")) {
		t.Error("Exists returned true for non-existent file")
	}

	path := filepath.Join(tmpDir, "exists.csv")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Error("Exists returned false for existing file")
	}
}

func TestIsNonEmpty(t *testing.T) {
	tmpDir := t.TempDir()

	if IsNonEmpty(filepath.Join(tmpDir, "nonexistent")) {
		t.Error("IsNonEmpty returned true for non-existent file")
	}

	emptyPath := filepath.Join(tmpDir, "empty.csv")
	if err := os.WriteFile(emptyPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if IsNonEmpty(emptyPath) {
		t.Error("IsNonEmpty returned true for empty file")
	}

	path := filepath.Join(tmpDir, "rows.csv")
	if err := os.WriteFile(path, []byte("a,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !IsNonEmpty(path) {
		t.Error("IsNonEmpty returned false for non-empty file")
	}
}

func TestWriteTmpThenMove(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "out", "inventory_prod.csv")

	err := WriteTmpThenMove(outPath, func(tmpPath string) error {
		return os.WriteFile(tmpPath, []byte("bucket,prefix\n"), 0o644)
	})
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "bucket,prefix\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestWriteTmpThenMoveFailureLeavesNothing(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "inventory_prod.csv")
	boom := errors.New("boom")

	err := WriteTmpThenMove(outPath, func(tmpPath string) error {
		if werr := os.WriteFile(tmpPath, []byte("partial"), 0o644); werr != nil {
			return werr
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped boom", err)
	}

	if Exists(outPath) {
		t.Error("failed write published a file")
	}
	if Exists(outPath + ".tmp") {
		t.Error("failed write left a temp file behind")
	}
}

func TestWriteTmpThenMoveFailureKeepsPrevious(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "merged_inventory.csv")
	if err := os.WriteFile(outPath, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := WriteTmpThenMove(outPath, func(string) error {
		return errors.New("write failed")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "old" {
		t.Errorf("previous content was clobbered: %q", data)
	}
}

func TestRemoveIfExists(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "current_run")

	if err := RemoveIfExists(path); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}

	if err := os.WriteFile(path, []byte("20240101-120000"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatal(err)
	}
	if Exists(path) {
		t.Error("file still present after RemoveIfExists")
	}
}

func TestCleanupTmpFiles(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"a.csv.tmp", "b.csv.tmp", "keep.csv"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := CleanupTmpFiles(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if !Exists(filepath.Join(tmpDir, "keep.csv")) {
		t.Error("non-tmp file was removed")
	}

	if _, err := CleanupTmpFiles(filepath.Join(tmpDir, "nope")); err != nil {
		t.Errorf("missing dir should not error: %v", err)
	}
}
