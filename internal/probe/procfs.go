package probe

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"recmon/internal/recmon"
)

// Access mode bits of the fdinfo "flags" field (O_ACCMODE).
const (
	accessModeMask = 0o3
	writeOnly      = 0o1
	readWrite      = 0o2
)

// ProcProber walks /proc/<pid>/fd looking for an .mp4 in dir opened for writing.
// If any live process has an unreadable fd table and no writer is found, the
// answer is unknown rather than idle.
type ProcProber struct {
	Root string // defaults to "/proc"
}

// ProbeLiveWriter implements Prober.
func (p ProcProber) ProbeLiveWriter(ctx context.Context, dir string) (recmon.WriterSignal, error) {
	root := p.Root
	if root == "" {
		root = "/proc"
	}

	procs, err := os.ReadDir(root)
	if err != nil {
		return recmon.SignalUnknown, ErrUnsupported
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return recmon.SignalUnknown, err
	}
	dirs := map[string]bool{absDir: true}
	if resolved, err := filepath.EvalSymlinks(absDir); err == nil {
		dirs[resolved] = true
	}

	hidden := 0
	for _, proc := range procs {
		if err := ctx.Err(); err != nil {
			return recmon.SignalUnknown, err
		}
		if _, err := strconv.Atoi(proc.Name()); err != nil {
			continue
		}

		pidDir := filepath.Join(root, proc.Name())
		fds, err := os.ReadDir(filepath.Join(pidDir, "fd"))
		if err != nil {
			// Exited since the listing.
			if _, statErr := os.Stat(pidDir); errors.Is(statErr, fs.ErrNotExist) {
				continue
			}
			hidden++
			continue
		}
		for _, fd := range fds {
			target, err := os.Readlink(filepath.Join(pidDir, "fd", fd.Name()))
			if err != nil {
				continue
			}
			if !dirs[filepath.Dir(target)] || !strings.HasSuffix(target, ".mp4") {
				continue
			}
			if openedForWrite(filepath.Join(pidDir, "fdinfo", fd.Name())) {
				return recmon.SignalWriting, nil
			}
		}
	}

	if hidden > 0 {
		log.Printf("[DEBUG] %d processes with unreadable fd tables under %s", hidden, root)
		return recmon.SignalUnknown, nil
	}
	return recmon.SignalIdle, nil
}

// openedForWrite parses the octal "flags:" line of an fdinfo file.
func openedForWrite(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close() //nolint:errcheck // read-only

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		value, found := strings.CutPrefix(scanner.Text(), "flags:")
		if !found {
			continue
		}
		flags, err := strconv.ParseUint(strings.TrimSpace(value), 8, 64)
		if err != nil {
			return false
		}
		mode := flags & accessModeMask
		return mode == writeOnly || mode == readWrite
	}
	return false
}
