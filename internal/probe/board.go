package probe

import (
	"bufio"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ricochet2200/go-disk-usage/du"

	"recmon/internal/recmon"
)

// UnknownBoard is reported when no identifier can be found.
const UnknownBoard = "unknown"

// Identity sources, in lookup order after an explicit override.
var (
	cpuInfoPath   = "/proc/cpuinfo"
	idSourcePaths = []string{"/sys/class/dmi/id/product_uuid", "/etc/machine-id"}
)

// BoardID returns the board identifier: override if set, else the
// Raspberry Pi serial from /proc/cpuinfo, else the DMI product UUID or
// machine ID, else UnknownBoard. It is computed once per process.
func BoardID(override string) string {
	start := time.Now()
	if id := strings.TrimSpace(override); id != "" {
		return id
	}

	if id := cpuSerial(cpuInfoPath); id != "" {
		log.Printf("[DEBUG] Found board serial in %s: %s (%v)", cpuInfoPath, id, time.Since(start))
		return id
	}

	for _, path := range idSourcePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			log.Printf("[DEBUG] Found board ID in %s: %s (%v)", path, id, time.Since(start))
			return id
		}
	}

	log.Printf("[WARN] Could not read board ID, using %q", UnknownBoard)
	return UnknownBoard
}

// cpuSerial extracts the value of the "Serial" line.
func cpuSerial(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close() //nolint:errcheck // read-only

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "Serial") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[len(fields)-1] == ":" {
			continue
		}
		return fields[len(fields)-1]
	}
	return ""
}

// DiskStats returns usage of the volume holding dir, or nil when it cannot be read.
func DiskStats(dir string) *recmon.Storage {
	if _, err := os.Stat(dir); err != nil {
		return nil
	}
	usage := du.NewDiskUsage(dir)
	total := usage.Size()
	if total == 0 {
		return nil
	}
	return &recmon.Storage{
		TotalBytes:  total,
		FreeBytes:   usage.Available(),
		UsedPercent: recmon.Round(float64(usage.Usage())*100, 1),
	}
}
