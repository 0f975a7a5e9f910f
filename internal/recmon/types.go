// Package recmon defines shared data structures for the recordings monitor.
package recmon

import (
	"math"
	"time"
)

// Wire formats used in reports.
const (
	DateLayout      = "2006-01-02"
	ClockLayout     = "15h04"
	CivilLayout     = "2006-01-02T15:04:05"
	GeneratedLayout = "2006-01-02T15:04:05Z"
)

// Day boundaries used when a segment is split across calendar dates.
const (
	StartOfDay = "00h00"
	EndOfDay   = "23h59"
)

// Status is the inferred state of the capture process.
type Status string

// Known statuses.
const (
	StatusRecording    Status = "RECORDING"
	StatusFinishing    Status = "FINISHING"
	StatusOffline      Status = "OFFLINE"
	StatusNoRecordings Status = "NO_RECORDINGS"
)

// WriterSignal is the outcome of probing for a process writing a recording.
type WriterSignal int

// Probe outcomes. SignalUnknown means the probe was unavailable, failed or timed out.
const (
	SignalUnknown WriterSignal = iota
	SignalIdle
	SignalWriting
)

// Bool returns nil for SignalUnknown.
func (s WriterSignal) Bool() *bool {
	var b bool
	switch s {
	case SignalWriting:
		b = true
	case SignalIdle:
		b = false
	default:
		return nil
	}
	return &b
}

func (s WriterSignal) String() string {
	switch s {
	case SignalWriting:
		return "writing"
	case SignalIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Recording is a single capture file whose name carried a timestamp.
//
// Timestamp is a civil (wall clock) time with no zone: it is stored in UTC
// purely so arithmetic ignores DST transitions.
type Recording struct {
	Timestamp time.Time
	SizeBytes *int64
	Filename  string
}

// OfflineSegment is a gap bounded to one calendar date.
type OfflineSegment struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Minutes returns the segment length in minutes, or 0 if a bound is malformed.
func (s OfflineSegment) Minutes() float64 {
	start, err := time.Parse(ClockLayout, s.Start)
	if err != nil {
		return 0
	}
	end, err := time.Parse(ClockLayout, s.End)
	if err != nil {
		return 0
	}
	return end.Sub(start).Minutes()
}

// Segments maps a "YYYY-MM-DD" date key to its offline segments in discovery order.
type Segments map[string][]OfflineSegment

// Count returns the number of segments across all dates.
func (s Segments) Count() int {
	n := 0
	for _, segs := range s {
		n += len(segs)
	}
	return n
}

// Liveness is the classifier's verdict.
type Liveness struct {
	MinutesSinceLast *int // only set for StatusOffline
	Status           Status
	Message          string
}

// LatestRecording describes the newest file in the timeline.
type LatestRecording struct {
	SizeBytes *int64  `json:"size_bytes"`
	Filename  string  `json:"filename"`
	Timestamp string  `json:"timestamp"`
	SizeMB    float64 `json:"size_mb"`
}

// Storage describes the volume holding the recordings.
type Storage struct {
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// Report is one monitoring snapshot. It is never mutated after assembly.
type Report struct {
	OfflineSegments      Segments         `json:"offline_segments"`
	LatestRecording      *LatestRecording `json:"latest_recording"`
	FirstRecording       *string          `json:"first_recording"`
	MinutesSinceLast     *int             `json:"minutes_since_last,omitempty"`
	LiveWriter           *bool            `json:"live_writer"`
	Storage              *Storage         `json:"storage,omitempty"`
	BoardID              string           `json:"board_id"`
	Timestamp            string           `json:"timestamp"`
	RecordingsDirectory  string           `json:"recordings_directory"`
	CameraStatus         Status           `json:"camera_status"`
	StatusMessage        string           `json:"status_message"`
	TotalVideos          int              `json:"total_videos"`
	TotalOfflineSegments int              `json:"total_offline_segments"`
	TotalOfflineMinutes  float64          `json:"total_offline_minutes"`
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Civil converts an instant to its wall-clock reading in loc, stored as UTC.
func Civil(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// IsValidBoardID reports whether id is safe to embed in topics and URLs.
func IsValidBoardID(id string) bool {
	const maxBoardIDLength = 255
	for _, r := range id {
		if (r < 'a' || r > 'z') &&
			(r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') &&
			r != '_' && r != '-' && r != '.' {
			return false
		}
	}
	return id != "" && len(id) <= maxBoardIDLength
}
