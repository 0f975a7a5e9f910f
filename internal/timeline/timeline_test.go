package timeline

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"recmon/internal/recmon"
)

func TestParseDated(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		want  time.Time
		valid bool
	}{
		{"10022026_000311.mp4", time.Date(2026, 2, 10, 0, 3, 11, 0, time.UTC), true},
		{"31122025_235959.mp4", time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), true},
		{"29022024_120000.mp4", time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), true},
		{"29022026_120000.mp4", time.Time{}, false}, // not a leap year
		{"10132026_000311.mp4", time.Time{}, false}, // month 13
		{"32012026_000311.mp4", time.Time{}, false}, // day 32
		{"00012026_000311.mp4", time.Time{}, false}, // day 0
		{"10022026_250311.mp4", time.Time{}, false}, // hour 25
		{"10022026_006011.mp4", time.Time{}, false}, // minute 60
		{"10022026_000360.mp4", time.Time{}, false}, // second 60
		{"10022026_000311.mkv", time.Time{}, false},
		{"10022026_000311.mp4.part", time.Time{}, false},
		{"x10022026_000311.mp4", time.Time{}, false},
		{"1002202_000311.mp4", time.Time{}, false},
		{"notes.txt", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := Parse(tt.name, now)
			if ok != tt.valid {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.name, ok, tt.valid)
			}
			if !ok {
				return
			}
			if !rec.Timestamp.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.name, rec.Timestamp, tt.want)
			}
			if rec.Filename != tt.name {
				t.Errorf("Filename = %q, want %q", rec.Filename, tt.name)
			}
		})
	}
}

func TestParseClockOnlyUsesReadDate(t *testing.T) {
	day1 := time.Date(2026, 2, 9, 23, 50, 0, 0, time.UTC)
	day2 := day1.Add(20 * time.Minute)

	first, ok := Parse("video_000428.mp4", day1)
	if !ok {
		t.Fatal("video_000428.mp4 should parse")
	}
	if want := time.Date(2026, 2, 9, 0, 4, 28, 0, time.UTC); !first.Timestamp.Equal(want) {
		t.Errorf("got %v, want %v", first.Timestamp, want)
	}

	// Re-reading after midnight binds the name to the new date.
	second, ok := Parse("video_000428.mp4", day2)
	if !ok {
		t.Fatal("video_000428.mp4 should parse")
	}
	if want := time.Date(2026, 2, 10, 0, 4, 28, 0, time.UTC); !second.Timestamp.Equal(want) {
		t.Errorf("got %v, want %v", second.Timestamp, want)
	}

	if _, ok := Parse("video_246000.mp4", day1); ok {
		t.Error("video_246000.mp4 should not parse")
	}
	if _, ok := Parse("video_1200.mp4", day1); ok {
		t.Error("video_1200.mp4 should not parse")
	}
}

func TestBuildMissingDirectory(t *testing.T) {
	b, err := New("")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	got := b.Build(filepath.Join(t.TempDir(), "does-not-exist"), time.Now())
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil timeline, got %#v", got)
	}
}

func TestBuildFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "10022026_001000.mp4"), 3)
	writeFile(t, filepath.Join(dir, "10022026_000000.mp4"), 1)
	writeFile(t, filepath.Join(dir, "09022026_235500.mp4"), 2)
	writeFile(t, filepath.Join(dir, "10022026_000500.mkv"), 1)
	writeFile(t, filepath.Join(dir, "garbage.mp4"), 1)
	writeFile(t, filepath.Join(dir, "10132026_000500.mp4"), 1)
	writeFile(t, filepath.Join(dir, "readme.txt"), 1)
	if err := os.Mkdir(filepath.Join(dir, "10022026_000700.mp4"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "nested", "10022026_000600.mp4"), 1)

	b, err := New(DefaultPattern)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	got := b.Build(dir, time.Date(2026, 2, 10, 1, 0, 0, 0, time.UTC))

	want := []string{"09022026_235500.mp4", "10022026_000000.mp4", "10022026_001000.mp4"}
	if len(got) != len(want) {
		t.Fatalf("got %d recordings, want %d: %+v", len(got), len(want), got)
	}
	for i, name := range want {
		if got[i].Filename != name {
			t.Errorf("recording[%d] = %s, want %s", i, got[i].Filename, name)
		}
	}
	if got[0].SizeBytes == nil || *got[0].SizeBytes != 2 {
		t.Errorf("expected size 2 for %s, got %v", got[0].Filename, got[0].SizeBytes)
	}
}

func TestBuildKeepsVanishedRecording(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks required")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "10022026_000000.mp4"), 1)
	// Listed, but gone by the time it is stat'ed.
	if err := os.Symlink(filepath.Join(dir, "deleted.mp4"), filepath.Join(dir, "10022026_000500.mp4")); err != nil {
		t.Fatal(err)
	}

	b, err := New(DefaultPattern)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	got := b.Build(dir, time.Date(2026, 2, 10, 1, 0, 0, 0, time.UTC))
	if len(got) != 2 {
		t.Fatalf("got %d recordings, want 2: %+v", len(got), got)
	}
	if got[1].Filename != "10022026_000500.mp4" || got[1].SizeBytes != nil {
		t.Errorf("vanished recording = %s size %v, want 10022026_000500.mp4 with nil size", got[1].Filename, got[1].SizeBytes)
	}
}

func TestSortTieBreaksByFilename(t *testing.T) {
	now := time.Date(2026, 2, 10, 1, 0, 0, 0, time.UTC)
	dated, _ := Parse("10022026_000428.mp4", now)
	clock, _ := Parse("video_000428.mp4", now)

	list := []recmon.Recording{clock, dated}
	Sort(list)
	if list[0].Filename != "10022026_000428.mp4" || list[1].Filename != "video_000428.mp4" {
		t.Errorf("tie not broken by filename: %s, %s", list[0].Filename, list[1].Filename)
	}
}

func TestBuildCustomPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "10022026_000000.mp4"), 1)
	writeFile(t, filepath.Join(dir, "video_000500.mp4"), 1)

	b, err := New("video_*.mp4")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	got := b.Build(dir, time.Date(2026, 2, 10, 1, 0, 0, 0, time.UTC))
	if len(got) != 1 || got[0].Filename != "video_000500.mp4" {
		t.Fatalf("unexpected timeline: %+v", got)
	}
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}
