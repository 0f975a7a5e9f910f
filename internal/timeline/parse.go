// Package timeline turns a recordings directory into an ordered sequence of recordings.
package timeline

import (
	"regexp"
	"strconv"
	"time"

	"recmon/internal/recmon"
)

var (
	// DDMMYYYY_HHMMSS.mp4, e.g. 10022026_000311.mp4.
	datedPattern = regexp.MustCompile(`^(\d{2})(\d{2})(\d{4})_(\d{2})(\d{2})(\d{2})\.mp4$`)
	// video_HHMMSS.mp4, dated with the day the name is read.
	clockPattern = regexp.MustCompile(`^video_(\d{2})(\d{2})(\d{2})\.mp4$`)
)

// Parse extracts the capture time encoded in a recording filename.
// now supplies the date for names that only carry a time of day; it is
// interpreted as a civil time (see recmon.Civil).
// The second result is false when the name matches no known format or
// its fields do not form a valid date and time.
func Parse(filename string, now time.Time) (recmon.Recording, bool) {
	if m := datedPattern.FindStringSubmatch(filename); m != nil {
		ts, ok := civilTime(atoi(m[3]), atoi(m[2]), atoi(m[1]), atoi(m[4]), atoi(m[5]), atoi(m[6]))
		if !ok {
			return recmon.Recording{}, false
		}
		return recmon.Recording{Timestamp: ts, Filename: filename}, true
	}

	if m := clockPattern.FindStringSubmatch(filename); m != nil {
		ts, ok := civilTime(now.Year(), int(now.Month()), now.Day(), atoi(m[1]), atoi(m[2]), atoi(m[3]))
		if !ok {
			return recmon.Recording{}, false
		}
		return recmon.Recording{Timestamp: ts, Filename: filename}, true
	}

	return recmon.Recording{}, false
}

// civilTime builds a wall-clock time, rejecting values time.Date would normalize.
func civilTime(year, month, day, hour, minute, second int) (time.Time, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 ||
		hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// atoi converts a regexp-validated digit run.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
