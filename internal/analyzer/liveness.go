package analyzer

import (
	"fmt"
	"math"
	"time"

	"recmon/internal/recmon"
)

// Classify infers the capture state.
//
// A positive writer signal wins outright. Otherwise the age of the newest
// recording decides, using the same thresholds whether the probe answered
// "idle" or could not answer at all. now must be a civil time, like the
// recording timestamps (see recmon.Civil).
func Classify(timeline []recmon.Recording, now time.Time, th Thresholds, signal recmon.WriterSignal) recmon.Liveness {
	if signal == recmon.SignalWriting {
		return recmon.Liveness{
			Status:  recmon.StatusRecording,
			Message: "Camera is currently recording",
		}
	}

	if len(timeline) == 0 {
		return recmon.Liveness{
			Status:  recmon.StatusNoRecordings,
			Message: "No video files found",
		}
	}

	elapsed := now.Sub(timeline[len(timeline)-1].Timestamp)
	switch {
	case elapsed < th.Interval:
		return recmon.Liveness{
			Status:  recmon.StatusRecording,
			Message: "Camera is currently recording",
		}
	case elapsed < th.Interval+th.Grace:
		return recmon.Liveness{
			Status:  recmon.StatusFinishing,
			Message: "Recent recording finishing",
		}
	default:
		minutes := int(math.Floor(elapsed.Minutes()))
		return recmon.Liveness{
			Status:           recmon.StatusOffline,
			Message:          fmt.Sprintf("No recording for %d minutes", minutes),
			MinutesSinceLast: &minutes,
		}
	}
}
