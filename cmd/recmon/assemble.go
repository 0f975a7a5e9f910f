package main

import (
	"fmt"

	"recmon/internal/config"
	"recmon/internal/probe"
	"recmon/internal/report"
	"recmon/internal/timeline"
)

func newAssembler(cfg *config.Config, boardID string) (*report.Assembler, error) {
	builder, err := timeline.New(cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	th, err := cfg.Thresholds()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	return &report.Assembler{
		Timeline:     builder,
		Prober:       newProber(cfg.Probe),
		Storage:      probe.DiskStats,
		Location:     loc,
		Dir:          cfg.RecordingsDir,
		BoardID:      boardID,
		Thresholds:   th,
		ProbeTimeout: cfg.ProbeTimeout(),
	}, nil
}

// newProber maps the configured probe mode to a Prober.
func newProber(pc config.ProbeConfig) probe.Prober {
	lsof := probe.LsofProber{Command: pc.LsofCommand}
	switch pc.Mode {
	case config.ProbeLsof:
		return lsof
	case config.ProbeProc:
		return probe.ProcProber{}
	case config.ProbeNone:
		return probe.Disabled{}
	default:
		return probe.Chain{probe.ProcProber{}, lsof}
	}
}
