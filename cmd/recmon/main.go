// Package main implements recmon, the recordings gap and liveness monitor.
package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"recmon/internal/config"
	"recmon/internal/probe"
	"recmon/internal/recmon"
)

var (
	configPath   string
	debug        bool
	dirFlag      string
	boardIDFlag  string
	probeFlag    string
	timezoneFlag string
)

var rootCmd = &cobra.Command{
	Use:   "recmon",
	Short: "Detect recording gaps and camera liveness",
	Long: `recmon scans a directory of timestamped camera recordings, reports the
periods in which the camera was not recording, and classifies whether it is
recording right now. Reports are printed, published over MQTT or HTTP, or
served on demand.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		log.SetOutput(&levelWriter{w: os.Stderr, debug: debug})
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", os.Getenv("RECMON_CONFIG"), "Path to a YAML config file (default $RECMON_CONFIG)")
	f.BoolVar(&debug, "debug", false, "Enable debug logging")
	f.StringVar(&dirFlag, "dir", "", "Recordings directory (overrides config)")
	f.StringVar(&boardIDFlag, "board-id", "", "Board identifier (overrides detection)")
	f.StringVar(&probeFlag, "probe", "", "Live-writer probe: auto, lsof, proc or none")
	f.StringVar(&timezoneFlag, "tz", "", "Zone recording names are written in (e.g. Europe/Paris)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers flags over the file and environment, then validates.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dirFlag != "" {
		cfg.RecordingsDir = dirFlag
	}
	if boardIDFlag != "" {
		cfg.BoardID = boardIDFlag
	}
	if probeFlag != "" {
		cfg.Probe.Mode = probeFlag
	}
	if timezoneFlag != "" {
		cfg.Timezone = timezoneFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveBoardID computes the board identifier once per process.
func resolveBoardID(cfg *config.Config) string {
	id := probe.BoardID(cfg.BoardID)
	if !recmon.IsValidBoardID(id) {
		log.Printf("[WARN] Board ID %q contains characters unsafe for topics and URLs", id)
	}
	log.Printf("[INFO] Board ID: %s", id)
	return id
}

var debugPrefix = []byte("[DEBUG]")

// levelWriter drops [DEBUG] lines unless debug logging is enabled.
type levelWriter struct {
	w     io.Writer
	mu    sync.Mutex
	debug bool
}

func (l *levelWriter) Write(p []byte) (int, error) {
	if !l.debug && isDebugLine(p) {
		return len(p), nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// isDebugLine reports whether the level prefix after the log timestamp is [DEBUG].
func isDebugLine(p []byte) bool {
	msg := bytes.TrimLeft(p, "0123456789/:. ")
	return bytes.HasPrefix(msg, debugPrefix)
}
