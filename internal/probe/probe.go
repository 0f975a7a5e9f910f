// Package probe answers questions about the host that the recordings
// themselves cannot: whether a process is writing one right now, which
// board this is, and how full the recordings volume is.
package probe

import (
	"context"
	"errors"
	"log"
	"time"

	"recmon/internal/recmon"
)

// DefaultTimeout bounds a single live-writer probe.
const DefaultTimeout = 2 * time.Second

// ErrUnsupported is returned by probes that cannot run on this host.
var ErrUnsupported = errors.New("live-writer probe not supported on this host")

// Prober reports whether some process holds a recording in dir open for writing.
type Prober interface {
	ProbeLiveWriter(ctx context.Context, dir string) (recmon.WriterSignal, error)
}

// Disabled never answers.
type Disabled struct{}

// ProbeLiveWriter implements Prober.
func (Disabled) ProbeLiveWriter(context.Context, string) (recmon.WriterSignal, error) {
	return recmon.SignalUnknown, nil
}

// Chain asks each prober in turn and returns the first definite answer.
type Chain []Prober

// ProbeLiveWriter implements Prober.
func (c Chain) ProbeLiveWriter(ctx context.Context, dir string) (recmon.WriterSignal, error) {
	var errs []error
	for _, p := range c {
		signal, err := p.ProbeLiveWriter(ctx, dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if signal != recmon.SignalUnknown {
			return signal, nil
		}
	}
	return recmon.SignalUnknown, errors.Join(errs...)
}

// LiveWriter runs p with a bounded timeout. Any error or timeout maps to
// recmon.SignalUnknown; it is logged, never returned.
func LiveWriter(ctx context.Context, p Prober, dir string, timeout time.Duration) recmon.WriterSignal {
	if p == nil {
		return recmon.SignalUnknown
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		err    error
		signal recmon.WriterSignal
	}
	done := make(chan result, 1)
	go func() {
		signal, err := p.ProbeLiveWriter(ctx, dir)
		done <- result{signal: signal, err: err}
	}()

	select {
	case <-ctx.Done():
		log.Printf("[WARN] Live-writer probe timed out after %v, falling back to timestamps", time.Since(start))
		return recmon.SignalUnknown
	case r := <-done:
		if r.err != nil {
			log.Printf("[DEBUG] Live-writer probe unavailable: %v", r.err)
			return recmon.SignalUnknown
		}
		log.Printf("[DEBUG] Live-writer probe answered %s in %v", r.signal, time.Since(start))
		return r.signal
	}
}
