// Package report assembles a monitoring snapshot from the recordings directory.
package report

import (
	"context"
	"log"
	"time"

	"recmon/internal/analyzer"
	"recmon/internal/probe"
	"recmon/internal/recmon"
	"recmon/internal/timeline"
)

const bytesPerMB = 1024 * 1024

// Assembler builds one Report per call. It holds configuration only, so
// concurrent calls produce independent snapshots.
type Assembler struct {
	Timeline     *timeline.Builder
	Prober       probe.Prober                 // nil disables the live-writer probe
	Storage      func(string) *recmon.Storage // nil omits storage statistics
	Clock        func() time.Time             // defaults to time.Now
	Location     *time.Location               // zone of the recording names; defaults to time.Local
	Dir          string
	BoardID      string
	Thresholds   analyzer.Thresholds
	ProbeTimeout time.Duration
}

// Build lists the recordings, probes for a live writer, detects gaps and
// classifies the camera state. It never fails: missing data degrades to
// empty values.
func (a *Assembler) Build(ctx context.Context) *recmon.Report {
	start := time.Now()
	clock := a.Clock
	if clock == nil {
		clock = time.Now
	}
	now := clock()
	civilNow := recmon.Civil(now, a.Location)

	recordings := a.Timeline.Build(a.Dir, civilNow)
	signal := probe.LiveWriter(ctx, a.Prober, a.Dir, a.ProbeTimeout)
	segments := analyzer.DetectGaps(recordings, a.Thresholds.Interval, a.Thresholds.Tolerance)
	liveness := analyzer.Classify(recordings, civilNow, a.Thresholds, signal)

	r := &recmon.Report{
		BoardID:              a.BoardID,
		Timestamp:            now.UTC().Format(recmon.GeneratedLayout),
		RecordingsDirectory:  a.Dir,
		CameraStatus:         liveness.Status,
		StatusMessage:        liveness.Message,
		MinutesSinceLast:     liveness.MinutesSinceLast,
		LiveWriter:           signal.Bool(),
		OfflineSegments:      segments,
		TotalVideos:          len(recordings),
		TotalOfflineSegments: segments.Count(),
		TotalOfflineMinutes:  recmon.Round(analyzer.OfflineMinutes(segments), 1),
	}

	if len(recordings) > 0 {
		first := recordings[0].Timestamp.Format(recmon.CivilLayout)
		r.FirstRecording = &first
		r.LatestRecording = latest(recordings[len(recordings)-1])
	}

	if a.Storage != nil {
		r.Storage = a.Storage(a.Dir)
	}

	log.Printf("[INFO] Report for board %s: %s, %d recordings, %d offline segments (built in %v)",
		r.BoardID, r.CameraStatus, r.TotalVideos, r.TotalOfflineSegments, time.Since(start))
	return r
}

func latest(rec recmon.Recording) *recmon.LatestRecording {
	lr := &recmon.LatestRecording{
		Filename:  rec.Filename,
		Timestamp: rec.Timestamp.Format(recmon.CivilLayout),
		SizeBytes: rec.SizeBytes,
	}
	if rec.SizeBytes != nil {
		lr.SizeMB = recmon.Round(float64(*rec.SizeBytes)/bytesPerMB, 2)
	}
	return lr
}
