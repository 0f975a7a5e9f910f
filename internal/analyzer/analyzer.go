// Package analyzer detects offline segments in a recordings timeline and
// classifies whether the capture process is currently live.
package analyzer

import (
	"errors"
	"fmt"
	"time"
)

// DefaultGrace is how long after the expected interval a pause still counts as FINISHING.
const DefaultGrace = 2 * time.Minute

// Thresholds are the timing parameters shared by gap detection and classification.
type Thresholds struct {
	Interval  time.Duration // one recording is expected per interval
	Tolerance time.Duration // slack before a gap counts as offline
	Grace     time.Duration // FINISHING window after the interval elapses
}

// NewThresholds validates and returns a Thresholds.
func NewThresholds(interval, tolerance, grace time.Duration) (Thresholds, error) {
	if interval <= 0 {
		return Thresholds{}, fmt.Errorf("expected interval must be positive, got %v", interval)
	}
	if tolerance < 0 {
		return Thresholds{}, fmt.Errorf("tolerance must not be negative, got %v", tolerance)
	}
	if grace < 0 {
		return Thresholds{}, errors.New("grace window must not be negative")
	}
	return Thresholds{Interval: interval, Tolerance: tolerance, Grace: grace}, nil
}
