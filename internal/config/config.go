// Package config defines the recordings monitor configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables, then command-line flags (applied by the caller).
// Validate must pass before any value reaches the analyzer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"recmon/internal/analyzer"
	"recmon/internal/recmon"
	"recmon/internal/timeline"
)

// Error codes.
const (
	ErrCodeNotFound = "config_not_found"
	ErrCodeInvalid  = "config_invalid"
)

// Probe modes.
const (
	ProbeAuto = "auto"
	ProbeLsof = "lsof"
	ProbeProc = "proc"
	ProbeNone = "none"
)

// Publish transports.
const (
	TransportMQTT = "mqtt"
	TransportHTTP = "http"
)

// BoardPlaceholder is substituted with the board ID in the MQTT topic.
const BoardPlaceholder = "{board_id}"

// Config is the complete monitor configuration.
type Config struct {
	RecordingsDir           string        `yaml:"recordings_dir"`
	Pattern                 string        `yaml:"pattern"`
	Timezone                string        `yaml:"timezone"`
	BoardID                 string        `yaml:"board_id"`
	Probe                   ProbeConfig   `yaml:"probe"`
	Publish                 PublishConfig `yaml:"publish"`
	ExpectedIntervalMinutes int           `yaml:"expected_interval_minutes"`
	ToleranceSeconds        int           `yaml:"tolerance_seconds"`
	GraceMinutes            int           `yaml:"grace_minutes"`
}

// ProbeConfig selects how a live writer is detected.
type ProbeConfig struct {
	Mode           string `yaml:"mode"`         // auto, lsof, proc or none
	LsofCommand    string `yaml:"lsof_command"` // path to lsof
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PublishConfig controls report delivery.
type PublishConfig struct {
	Transport         string     `yaml:"transport"` // mqtt or http
	HTTP              HTTPConfig `yaml:"http"`
	MQTT              MQTTConfig `yaml:"mqtt"`
	Retries           int        `yaml:"retries"`
	RetryDelaySeconds int        `yaml:"retry_delay_seconds"`
	TimeoutSeconds    int        `yaml:"timeout_seconds"`
}

// HTTPConfig is the report endpoint.
type HTTPConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// MQTTConfig is the broker connection.
type MQTTConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Port     int    `yaml:"port"`
	QoS      int    `yaml:"qos"`
	Retain   bool   `yaml:"retain"`
}

// Error is a structured configuration error.
type Error struct {
	Err  error
	Code string
	Path string
}

func (e *Error) Error() string {
	switch {
	case e.Code == ErrCodeNotFound:
		return fmt.Sprintf("%s: config file %q not found", e.Code, e.Path)
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code extracts the error code, or "" if err is not a *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RecordingsDir:           "~/recordings",
		Pattern:                 timeline.DefaultPattern,
		ExpectedIntervalMinutes: 5,
		ToleranceSeconds:        60,
		GraceMinutes:            int(analyzer.DefaultGrace / time.Minute),
		Probe: ProbeConfig{
			Mode:           ProbeAuto,
			LsofCommand:    "lsof",
			TimeoutSeconds: 2,
		},
		Publish: PublishConfig{
			Transport:         TransportMQTT,
			Retries:           3,
			RetryDelaySeconds: 2,
			TimeoutSeconds:    5,
			MQTT: MQTTConfig{
				Host:   "localhost",
				Port:   1883,
				Topic:  "storeyes/" + BoardPlaceholder + "/recordings",
				QoS:    1,
				Retain: true,
			},
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &Error{Code: ErrCodeNotFound, Path: path, Err: err}
			}
			return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: fmt.Errorf("failed to parse YAML: %w", err)}
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"RECORDINGS_DIR":     &c.RecordingsDir,
		"RECORDINGS_PATTERN": &c.Pattern,
		"RECORDINGS_TZ":      &c.Timezone,
		"BOARD_ID":           &c.BoardID,
		"PROBE":              &c.Probe.Mode,
		"LSOF_COMMAND":       &c.Probe.LsofCommand,
		"PUBLISH_TRANSPORT":  &c.Publish.Transport,
		"REPORT_URL":         &c.Publish.HTTP.URL,
		"API_KEY":            &c.Publish.HTTP.APIKey,
		"MQTT_HOST":          &c.Publish.MQTT.Host,
		"MQTT_USER":          &c.Publish.MQTT.User,
		"MQTT_PASS":          &c.Publish.MQTT.Password,
		"MQTT_TOPIC":         &c.Publish.MQTT.Topic,
		"MQTT_CLIENT_ID":     &c.Publish.MQTT.ClientID,
	}
	for name, field := range strs {
		if v := getenv(name); v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		"EXPECTED_INTERVAL_MINUTES": &c.ExpectedIntervalMinutes,
		"TOLERANCE_SECONDS":         &c.ToleranceSeconds,
		"GRACE_MINUTES":             &c.GraceMinutes,
		"PROBE_TIMEOUT_SECONDS":     &c.Probe.TimeoutSeconds,
		"MQTT_PORT":                 &c.Publish.MQTT.Port,
		"QOS":                       &c.Publish.MQTT.QoS,
		"TIMEOUT":                   &c.Publish.TimeoutSeconds,
		"RETRIES":                   &c.Publish.Retries,
		"RETRY_DELAY_SECONDS":       &c.Publish.RetryDelaySeconds,
	}
	for name, field := range ints {
		v := getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &Error{Code: ErrCodeInvalid, Path: "$" + name, Err: fmt.Errorf("not an integer: %q", v)}
		}
		*field = n
	}

	if v := getenv("RETAIN"); v != "" {
		c.Publish.MQTT.Retain = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return nil
}

// Validate rejects values the analyzer and collaborators cannot work with.
// It also expands a leading "~" in RecordingsDir.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Err: fmt.Errorf(format, args...)}
	}

	if strings.TrimSpace(c.RecordingsDir) == "" {
		return invalid("recordings_dir is required")
	}
	dir, err := expandHome(c.RecordingsDir)
	if err != nil {
		return invalid("recordings_dir: %w", err)
	}
	c.RecordingsDir = dir

	if c.BoardID != "" && !recmon.IsValidBoardID(c.BoardID) {
		return invalid("board_id may only contain letters, digits, '_', '-' and '.', got %q", c.BoardID)
	}
	if _, err := timeline.New(c.Pattern); err != nil {
		return invalid("pattern: %w", err)
	}
	if _, err := c.Thresholds(); err != nil {
		return invalid("%w", err)
	}
	if _, err := c.Location(); err != nil {
		return invalid("timezone: %w", err)
	}

	switch c.Probe.Mode {
	case ProbeAuto, ProbeLsof, ProbeProc, ProbeNone:
	default:
		return invalid("probe.mode must be one of auto, lsof, proc, none; got %q", c.Probe.Mode)
	}
	if c.Probe.TimeoutSeconds <= 0 {
		return invalid("probe.timeout_seconds must be positive, got %d", c.Probe.TimeoutSeconds)
	}

	return nil
}

// ValidatePublish checks the delivery settings; only needed when publishing.
func (c *Config) ValidatePublish() error {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Err: fmt.Errorf(format, args...)}
	}

	p := c.Publish
	if p.Retries < 1 {
		return invalid("publish.retries must be at least 1, got %d", p.Retries)
	}
	if p.RetryDelaySeconds < 0 {
		return invalid("publish.retry_delay_seconds must not be negative, got %d", p.RetryDelaySeconds)
	}
	if p.TimeoutSeconds <= 0 {
		return invalid("publish.timeout_seconds must be positive, got %d", p.TimeoutSeconds)
	}

	switch p.Transport {
	case TransportHTTP:
		if p.HTTP.URL == "" {
			return invalid("publish.http.url is required for the http transport")
		}
		if !strings.HasPrefix(p.HTTP.URL, "http://") && !strings.HasPrefix(p.HTTP.URL, "https://") {
			return invalid("publish.http.url must be an http(s) URL, got %q", p.HTTP.URL)
		}
	case TransportMQTT:
		if p.MQTT.Host == "" {
			return invalid("publish.mqtt.host is required for the mqtt transport")
		}
		if p.MQTT.Port < 1 || p.MQTT.Port > 65535 {
			return invalid("publish.mqtt.port out of range: %d", p.MQTT.Port)
		}
		if p.MQTT.QoS < 0 || p.MQTT.QoS > 2 {
			return invalid("publish.mqtt.qos must be 0, 1 or 2, got %d", p.MQTT.QoS)
		}
		if p.MQTT.Topic == "" {
			return invalid("publish.mqtt.topic is required")
		}
	default:
		return invalid("publish.transport must be mqtt or http, got %q", p.Transport)
	}
	return nil
}

// Thresholds converts the timing fields for the analyzer.
func (c *Config) Thresholds() (analyzer.Thresholds, error) {
	return analyzer.NewThresholds(
		time.Duration(c.ExpectedIntervalMinutes)*time.Minute,
		time.Duration(c.ToleranceSeconds)*time.Second,
		time.Duration(c.GraceMinutes)*time.Minute,
	)
}

// Location is the zone recording names are written in; empty means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ProbeTimeout bounds one live-writer probe.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// Topic expands the MQTT topic template for a board.
func (c *Config) Topic(boardID string) string {
	return strings.ReplaceAll(c.Publish.MQTT.Topic, BoardPlaceholder, boardID)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return filepath.Clean(path), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
