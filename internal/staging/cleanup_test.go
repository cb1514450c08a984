package staging

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"deepcheck/internal/logging"
)

func writeAged(t *testing.T, path string, size int, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestSweepInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := Sweep(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q, got %+v", dir, result)
		}
	}
}

func TestSweepRemovesOnlyStaleEntries(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "3f1c.mp4")
	partial := filepath.Join(dir, "9a0b.mp4.part")
	fresh := filepath.Join(dir, "77aa.jpg")
	writeAged(t, stale, 2048, 3*time.Hour)
	writeAged(t, partial, 512, 2*time.Hour)
	writeAged(t, fresh, 100, time.Minute)

	result := Sweep(context.Background(), dir, time.Hour, logging.NewNop())

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removed, got %v", result.Removed)
	}
	if result.Freed != 2560 {
		t.Fatalf("expected 2560 bytes freed, got %d", result.Freed)
	}
	for _, gone := range []string{stale, partial} {
		if _, err := os.Stat(gone); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("%s should have been removed", gone)
		}
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh file should still exist: %v", err)
	}
}

func TestSweepStopsWhenCancelled(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, filepath.Join(dir, "a.mp4"), 10, 2*time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := Sweep(ctx, dir, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed after cancel, got %v", result.Removed)
	}
}

func TestListReportsDirectorySizes(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "frames")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeAged(t, filepath.Join(sub, "f1.png"), 300, 0)
	writeAged(t, filepath.Join(sub, "f2.png"), 200, 0)
	writeAged(t, filepath.Join(dir, "clip.mp4"), 1000, 0)

	entries, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sizes := map[string]int64{}
	for _, e := range entries {
		sizes[e.Name] = e.Size
	}
	if sizes["frames"] != 500 || sizes["clip.mp4"] != 1000 {
		t.Fatalf("unexpected sizes: %v", sizes)
	}
}
