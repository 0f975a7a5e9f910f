package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/cobra"
)

const (
	serviceName = "recmon-publish.service"
	cronMarker  = "# recmon"
	crontabCmd  = "crontab"
)

const serviceTemplate = `[Unit]
Description=Recordings gap and liveness publisher
After=network-online.target

[Service]
Type=simple
ExecStart={{.Exe}} publish --interval {{.Interval}}{{if .Config}} --config {{.Config}}{{end}}
Restart=always
RestartSec=30

[Install]
WantedBy=default.target
`

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Run the publisher periodically as a systemd user service (cron fallback)",
	Args:  cobra.NoArgs,
	RunE:  runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the systemd service and cron entries",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		return uninstall()
	},
}

var installInterval time.Duration

func init() {
	installCmd.Flags().DurationVar(&installInterval, "interval", 5*time.Minute, "Publish interval")
	rootCmd.AddCommand(installCmd, uninstallCmd)
}

type unitData struct {
	Exe      string
	Config   string
	Interval time.Duration
}

func runInstall(*cobra.Command, []string) error {
	if installInterval < time.Minute {
		return fmt.Errorf("interval must be at least 1m, got %v", installInterval)
	}
	// Fail before touching the system if the publisher cannot start.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidatePublish(); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	data := unitData{Exe: exe, Interval: installInterval}
	if configPath != "" {
		if data.Config, err = filepath.Abs(configPath); err != nil {
			return err
		}
	}

	if !isSystemdUserAvailable() {
		log.Print("[INFO] Systemd user services not available, using cron instead")
		return installCron(data)
	}
	return installSystemd(data)
}

func isSystemdUserAvailable() bool {
	if _, err := exec.LookPath("systemctl"); err != nil {
		return false
	}
	out, err := exec.Command("systemctl", "--user", "is-system-running").Output() //nolint:noctx // local command
	state := strings.TrimSpace(string(out))
	return err == nil || state == "degraded" || state == "starting"
}

func renderUnit(data unitData) (string, error) {
	tmpl, err := template.New("service").Parse(serviceTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse service template: %w", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render service file: %w", err)
	}
	return b.String(), nil
}

func serviceDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "systemd", "user"), nil
}

func installSystemd(data unitData) error {
	dir, err := serviceDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // standard permissions for systemd services
		return fmt.Errorf("failed to create systemd directory: %w", err)
	}

	unit, err := renderUnit(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, serviceName), []byte(unit), 0o644); err != nil { //nolint:gosec // unit files are world-readable
		return fmt.Errorf("failed to write service file: %w", err)
	}

	for _, args := range [][]string{
		{"--user", "daemon-reload"},
		{"--user", "enable", serviceName},
		{"--user", "restart", serviceName},
	} {
		if out, err := exec.Command("systemctl", args...).CombinedOutput(); err != nil { //nolint:noctx // local command
			return fmt.Errorf("systemctl %s failed: %w: %s", strings.Join(args, " "), err, truncate(string(out)))
		}
	}
	log.Printf("[INFO] Systemd service %s started, publishing every %v", serviceName, data.Interval)
	return nil
}

// cronEntries runs a single publish per tick; cron owns the schedule.
func cronEntries(data unitData) ([]string, error) {
	schedule, err := cronSchedule(data.Interval)
	if err != nil {
		return nil, err
	}
	cmd := data.Exe + " publish"
	if data.Config != "" {
		cmd += " --config " + data.Config
	}
	return []string{fmt.Sprintf("%s %s %s", schedule, cmd, cronMarker)}, nil
}

// cronSchedule maps d onto a step schedule cron repeats exactly: whole
// minutes dividing an hour, or whole hours dividing a day.
func cronSchedule(d time.Duration) (string, error) {
	minutes := int(d / time.Minute)
	switch {
	case d%time.Minute != 0 || minutes < 1:
	case minutes < 60 && 60%minutes == 0:
		return fmt.Sprintf("*/%d * * * *", minutes), nil
	case minutes == 60:
		return "0 * * * *", nil
	case minutes%60 == 0 && 24%(minutes/60) == 0:
		return fmt.Sprintf("0 */%d * * *", minutes/60), nil
	}
	return "", fmt.Errorf("interval %v cannot be scheduled exactly by cron; use a divisor of 60m or 24h", d)
}

// mergeCron drops previous recmon lines from current and appends entries.
func mergeCron(current string, entries []string) string {
	var lines []string
	for _, line := range strings.Split(current, "\n") {
		if line == "" || strings.HasSuffix(line, cronMarker) {
			continue
		}
		lines = append(lines, line)
	}
	lines = append(lines, entries...)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func installCron(data unitData) error {
	if _, err := exec.LookPath(crontabCmd); err != nil {
		return errors.New("neither systemd user services nor cron are available - manual startup required")
	}

	entries, err := cronEntries(data)
	if err != nil {
		return err
	}

	current, _ := exec.Command(crontabCmd, "-l").Output() //nolint:errcheck,noctx // no crontab yet is fine
	cmd := exec.Command(crontabCmd, "-")                  //nolint:noctx // local command
	cmd.Stdin = strings.NewReader(mergeCron(string(current), entries))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to install crontab: %w", err)
	}
	log.Print("[INFO] Cron entries installed successfully")
	return nil
}

func uninstall() error {
	if isSystemdUserAvailable() {
		_ = exec.Command("systemctl", "--user", "stop", serviceName).Run()    //nolint:errcheck,noctx // best effort
		_ = exec.Command("systemctl", "--user", "disable", serviceName).Run() //nolint:errcheck,noctx // best effort
		if dir, err := serviceDir(); err == nil {
			if err := os.Remove(filepath.Join(dir, serviceName)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove service file: %w", err)
			}
		}
		_ = exec.Command("systemctl", "--user", "daemon-reload").Run() //nolint:errcheck,noctx // best effort
	}

	if _, err := exec.LookPath(crontabCmd); err != nil {
		return nil
	}
	current, err := exec.Command(crontabCmd, "-l").Output() //nolint:noctx // local command
	if err != nil || !strings.Contains(string(current), cronMarker) {
		return nil //nolint:nilerr // no crontab, nothing to remove
	}
	remaining := mergeCron(string(current), nil)
	if remaining == "" {
		_ = exec.Command(crontabCmd, "-r").Run() //nolint:errcheck,noctx // best effort
		return nil
	}
	cmd := exec.Command(crontabCmd, "-") //nolint:noctx // local command
	cmd.Stdin = strings.NewReader(remaining)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to update crontab: %w", err)
	}
	log.Print("[INFO] Cron entries removed")
	return nil
}

const maxLogLength = 200

func truncate(s string) string {
	if len(s) > maxLogLength {
		return s[:maxLogLength] + "..."
	}
	return s
}
