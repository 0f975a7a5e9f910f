package timeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gobwas/glob"

	"recmon/internal/recmon"
)

// DefaultPattern selects candidate recordings in the directory.
const DefaultPattern = "*.mp4"

// Builder lists a recordings directory and produces a sorted timeline.
type Builder struct {
	matcher glob.Glob
	pattern string
}

// New creates a Builder that only considers names matching pattern.
func New(pattern string) (*Builder, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid recordings pattern %q: %w", pattern, err)
	}
	return &Builder{matcher: g, pattern: pattern}, nil
}

// Build returns the parsed recordings in dir, ascending by timestamp with
// ties broken by filename. A missing or unreadable directory yields an
// empty timeline. now dates names that only carry a time of day.
func (b *Builder) Build(dir string, now time.Time) []recmon.Recording {
	start := time.Now()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[WARN] Recordings directory not found: %s", dir)
		} else {
			log.Printf("[WARN] Error reading recordings directory %s: %v", dir, err)
		}
		return []recmon.Recording{}
	}

	recordings := make([]recmon.Recording, 0, len(entries))
	skipped := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !b.matcher.Match(name) {
			continue
		}

		rec, ok := Parse(name, now)
		if !ok {
			skipped++
			continue
		}
		rec.SizeBytes = fileSize(filepath.Join(dir, name))
		recordings = append(recordings, rec)
	}

	Sort(recordings)

	log.Printf("[DEBUG] Timeline for %s: %d recordings (%d unparsable %s names skipped) in %v",
		dir, len(recordings), skipped, b.pattern, time.Since(start))
	return recordings
}

// Sort orders recordings by timestamp, then filename.
func Sort(recordings []recmon.Recording) {
	sort.SliceStable(recordings, func(i, j int) bool {
		a, b := recordings[i], recordings[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Filename < b.Filename
	})
}

// fileSize returns nil when the file vanished or cannot be stat'ed.
func fileSize(path string) *int64 {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	size := info.Size()
	return &size
}
