package analyzer

import (
	"time"

	"recmon/internal/recmon"
)

// DetectGaps returns the offline segments implied by timeline, keyed by date.
//
// The newest recording may still be growing, so it is never used as a gap
// boundary: a gap only becomes visible once a later file exists. A gap is
// any pair of consecutive recordings further apart than interval+tolerance;
// the segment runs from when the next file was due until it appeared.
func DetectGaps(timeline []recmon.Recording, interval, tolerance time.Duration) recmon.Segments {
	segments := recmon.Segments{}
	if len(timeline) < 2 {
		return segments
	}

	complete := timeline[:len(timeline)-1]
	for i := 0; i+1 < len(complete); i++ {
		current := complete[i].Timestamp
		next := complete[i+1].Timestamp

		if next.Sub(current) <= interval+tolerance {
			continue
		}
		addSpan(segments, current.Add(interval), next)
	}

	return segments
}

// addSpan records [start, end] split at each midnight it crosses.
// Days lying entirely inside the span get a full-day segment.
func addSpan(segments recmon.Segments, start, end time.Time) {
	startDay := dayOf(start)
	endDay := dayOf(end)

	if startDay.Equal(endDay) {
		appendSegment(segments, start, start.Format(recmon.ClockLayout), end.Format(recmon.ClockLayout))
		return
	}

	appendSegment(segments, start, start.Format(recmon.ClockLayout), recmon.EndOfDay)
	for day := startDay.AddDate(0, 0, 1); day.Before(endDay); day = day.AddDate(0, 0, 1) {
		appendSegment(segments, day, recmon.StartOfDay, recmon.EndOfDay)
	}
	appendSegment(segments, end, recmon.StartOfDay, end.Format(recmon.ClockLayout))
}

func appendSegment(segments recmon.Segments, day time.Time, start, end string) {
	key := day.Format(recmon.DateLayout)
	segments[key] = append(segments[key], recmon.OfflineSegment{Start: start, End: end})
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// OfflineMinutes sums the length of every stored segment.
func OfflineMinutes(segments recmon.Segments) float64 {
	total := 0.0
	for _, segs := range segments {
		for _, seg := range segs {
			total += seg.Minutes()
		}
	}
	return total
}
