package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"recmon/internal/recmon"
)

const (
	// Maximum output size kept from a probe command.
	maxOutputSize = 64 * 1024
	// Maximum log output length for readability.
	maxLogLength = 200
)

// lsof FD column: descriptor number followed by the access mode.
var fdPattern = regexp.MustCompile(`^\d+([rwu])`)

// privileged reports whether lsof can see every user's processes.
var privileged = func() bool { return os.Geteuid() == 0 }

// LsofProber inspects open file handles with `lsof +D <dir>`.
type LsofProber struct {
	Command string // defaults to "lsof"
}

// ProbeLiveWriter implements Prober.
func (p LsofProber) ProbeLiveWriter(ctx context.Context, dir string) (recmon.WriterSignal, error) {
	command := p.Command
	if command == "" {
		command = "lsof"
	}

	stdout, stderr, exitCode, err := runCommand(ctx, command, "+D", dir)
	if err != nil {
		return recmon.SignalUnknown, err
	}

	if hasWriter(stdout) {
		return recmon.SignalWriting, nil
	}

	// lsof exits 1 when nothing in dir is open. Without root it only lists
	// our own processes, so an empty answer proves nothing.
	if exitCode == 0 || exitCode == 1 {
		if !privileged() {
			return recmon.SignalUnknown, nil
		}
		return recmon.SignalIdle, nil
	}
	return recmon.SignalUnknown, fmt.Errorf("%s exited with code %d: %s", command, exitCode, truncate(stderr))
}

// hasWriter scans lsof output for an .mp4 opened in write or read-write mode.
// Columns: COMMAND PID USER FD TYPE DEVICE SIZE/OFF NODE NAME.
func hasWriter(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, ".mp4") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		m := fdPattern.FindStringSubmatch(fields[3])
		if m != nil && (m[1] == "w" || m[1] == "u") {
			return true
		}
	}
	return false
}

// runCommand executes a command and captures stdout/stderr separately.
// A non-zero exit is reported through exitCode; err is only set when the
// command could not run or was cut short by ctx.
func runCommand(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int, err error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	duration := time.Since(start)

	stdout = limitOutput(stdoutBuf.Bytes(), maxOutputSize)
	stderr = limitOutput(stderrBuf.Bytes(), maxOutputSize)

	if runErr != nil {
		if ctx.Err() != nil {
			return stdout, stderr, -1, fmt.Errorf("%s timed out after %v: %w", name, duration, ctx.Err())
		}
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return stdout, stderr, -1, fmt.Errorf("failed to run %s: %w", name, runErr)
		}
		exitCode = exitErr.ExitCode()
	}

	if trimmed := strings.TrimSpace(stderr); trimmed != "" {
		log.Printf("[DEBUG] %s stderr (%d bytes): %s", name, len(stderr), truncate(trimmed))
	}
	log.Printf("[DEBUG] %s completed in %v (exit: %d, stdout: %d bytes)", name, duration, exitCode, len(stdout))

	return stdout, stderr, exitCode, nil
}

// limitOutput truncates output if it exceeds maxSize.
func limitOutput(data []byte, maxSize int) string {
	if len(data) > maxSize {
		return string(data[:maxSize]) + "\n[Output truncated]..."
	}
	return string(data)
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLogLength {
		return s[:maxLogLength] + "..."
	}
	return s
}
