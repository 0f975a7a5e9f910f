package viewmodels

import (
	"strings"
	"testing"

	"recmon/internal/recmon"
)

func TestBuildSummary(t *testing.T) {
	minutes := 10
	size := int64(3 * 1024 * 1024)
	r := &recmon.Report{
		BoardID:          "board-1",
		CameraStatus:     recmon.StatusOffline,
		StatusMessage:    "No recording for 10 minutes",
		MinutesSinceLast: &minutes,
		OfflineSegments: recmon.Segments{
			"2026-02-10": {{Start: "00h00", End: "00h05"}},
			"2026-02-09": {{Start: "08h40", End: "09h05"}, {Start: "23h58", End: "23h59"}},
		},
		LatestRecording: &recmon.LatestRecording{
			Filename:  "10022026_081000.mp4",
			Timestamp: "2026-02-10T08:10:00",
			SizeBytes: &size,
		},
		Storage:              &recmon.Storage{TotalBytes: 1 << 30, FreeBytes: 1 << 29, UsedPercent: 50},
		TotalVideos:          1234,
		TotalOfflineSegments: 3,
		TotalOfflineMinutes:  31,
	}

	s := BuildSummary(r)

	if len(s.Days) != 2 || s.Days[0].Date != "2026-02-09" || s.Days[1].Date != "2026-02-10" {
		t.Fatalf("Days not sorted by date: %+v", s.Days)
	}
	if len(s.Days[0].Segments) != 2 || s.Days[0].Segments[0].Start != "08h40" {
		t.Errorf("segment order not preserved: %+v", s.Days[0].Segments)
	}
	if s.StatusEmoji != "🔴" {
		t.Errorf("StatusEmoji = %q", s.StatusEmoji)
	}
	if s.LastSeen != "10 minutes ago" {
		t.Errorf("LastSeen = %q", s.LastSeen)
	}
	if !strings.Contains(s.Latest, "3.0 MiB") {
		t.Errorf("Latest = %q, want human size", s.Latest)
	}
	if !strings.Contains(s.Storage, "512 MiB free of 1.0 GiB") {
		t.Errorf("Storage = %q", s.Storage)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		report *recmon.Report
		want   []string
	}{
		{
			name: "segments",
			report: &recmon.Report{
				CameraStatus:  recmon.StatusRecording,
				StatusMessage: "Camera is currently recording",
				OfflineSegments: recmon.Segments{
					"2026-02-09": {{Start: "08h35", End: "09h05"}, {Start: "21h20", End: "22h20"}},
				},
				TotalVideos:          300,
				TotalOfflineSegments: 2,
				TotalOfflineMinutes:  90,
			},
			want: []string{
				"OFFLINE SEGMENTS DETECTED",
				"2026-02-09:",
				"08h35 → 09h05",
				"(30 min)",
				"21h20 → 22h20",
				"RECORDING",
				"Camera is currently recording",
				"Total videos: 300",
				"Offline segments: 2",
				"Total offline time: 90 minutes",
			},
		},
		{
			name: "no recordings",
			report: &recmon.Report{
				CameraStatus:    recmon.StatusNoRecordings,
				StatusMessage:   "No video files found",
				OfflineSegments: recmon.Segments{},
			},
			want: []string{
				"No offline segments detected",
				"NO_RECORDINGS",
				"No video files found",
				"Total videos: 0",
			},
		},
		{
			name: "thousands",
			report: &recmon.Report{
				CameraStatus:        recmon.StatusFinishing,
				StatusMessage:       "Recent recording finishing",
				TotalVideos:         12345,
				TotalOfflineMinutes: 12.5,
			},
			want: []string{"FINISHING", "Total videos: 12,345", "Total offline time: 12.5 minutes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := BuildSummary(tt.report).Render()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}
