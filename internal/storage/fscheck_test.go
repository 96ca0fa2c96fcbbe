package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckLocalFilesystemAllowsLocal(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "state.db")
	err := checkLocalFilesystem(dbPath, func(string) (string, error) { return "ext4", nil })
	if err != nil {
		t.Fatalf("expected local filesystem to pass, got: %v", err)
	}
}

func TestCheckLocalFilesystemRejectsNetwork(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "state.db")
	err := checkLocalFilesystem(dbPath, func(string) (string, error) { return "NFS", nil })
	if err == nil {
		t.Fatal("expected network filesystem error")
	}
	if !strings.Contains(err.Error(), "state.path") {
		t.Fatalf("expected hint about state.path, got %q", err)
	}
}

func TestCheckLocalFilesystemInspectsExistingAncestor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dbPath := filepath.Join(root, "a", "b", "state.db")

	var inspected string
	err := checkLocalFilesystem(dbPath, func(p string) (string, error) {
		inspected = p
		return "apfs", nil
	})
	if err != nil {
		t.Fatalf("checkLocalFilesystem: %v", err)
	}
	if inspected != root {
		t.Fatalf("expected %q to be inspected, got %q", root, inspected)
	}
	if _, err := os.Stat(filepath.Join(root, "a")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("check must not create directories")
	}
}

func TestCheckLocalFilesystemDetectorError(t *testing.T) {
	t.Parallel()

	err := checkLocalFilesystem(filepath.Join(t.TempDir(), "x.db"), func(string) (string, error) {
		return "", errors.New("statfs failed")
	})
	if err == nil || !strings.Contains(err.Error(), "statfs failed") {
		t.Fatalf("expected detector error, got %v", err)
	}
}
