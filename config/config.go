package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds user-configurable defaults and integrations.
type Config struct {
	BaseURL    string `yaml:"base_url"`
	PollPath   string `yaml:"poll_path"`
	ResetPath  string `yaml:"reset_path"`
	IntervalMS int    `yaml:"interval_ms"`
	TimeoutSec int    `yaml:"timeout_sec"`
	SourceFile string `yaml:"source_file"`

	LogPath  string `yaml:"log_path"`
	LogLevel string `yaml:"log_level"`

	// EventLog is a JSONL file that fuse trips are appended to.
	EventLog string `yaml:"event_log"`

	Alerts AlertConfig `yaml:"alerts"`
}

// AlertConfig configures where fallback alerts are forwarded.
type AlertConfig struct {
	Webhook     string `yaml:"webhook"`
	Command     string `yaml:"command"`
	CooldownSec int    `yaml:"cooldown_sec"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		BaseURL:    "http://localhost:8080",
		PollPath:   "/getPower",
		ResetPath:  "/setCircuit",
		IntervalMS: 1000,
		TimeoutSec: 5,
		LogLevel:   "info",
		Alerts: AlertConfig{
			CooldownSec: 30,
		},
	}
}

// Path returns ~/.config/circuittop/config.yaml (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "circuittop", "config.yaml")
}

// Load reads the YAML file at path (Path() when empty), then applies
// CIRCUITTOP_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: decode %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	cfg.Alerts.Webhook = strings.TrimSpace(cfg.Alerts.Webhook)
	cfg.Alerts.Command = strings.TrimSpace(cfg.Alerts.Command)
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"CIRCUITTOP_URL":           &cfg.BaseURL,
		"CIRCUITTOP_POLL_PATH":     &cfg.PollPath,
		"CIRCUITTOP_RESET_PATH":    &cfg.ResetPath,
		"CIRCUITTOP_SOURCE_FILE":   &cfg.SourceFile,
		"CIRCUITTOP_LOG_PATH":      &cfg.LogPath,
		"LOG_LEVEL":                &cfg.LogLevel,
		"CIRCUITTOP_EVENT_LOG":     &cfg.EventLog,
		"CIRCUITTOP_ALERT_WEBHOOK": &cfg.Alerts.Webhook,
		"CIRCUITTOP_ALERT_COMMAND": &cfg.Alerts.Command,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"CIRCUITTOP_INTERVAL_MS":        &cfg.IntervalMS,
		"CIRCUITTOP_TIMEOUT_SEC":        &cfg.TimeoutSec,
		"CIRCUITTOP_ALERT_COOLDOWN_SEC": &cfg.Alerts.CooldownSec,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: parse %s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

// Validate rejects settings the poller cannot run with.
func (c Config) Validate() error {
	if c.IntervalMS <= 0 {
		return fmt.Errorf("config: interval_ms must be positive, got %d", c.IntervalMS)
	}
	if c.TimeoutSec < 0 {
		return fmt.Errorf("config: timeout_sec must not be negative, got %d", c.TimeoutSec)
	}
	if c.SourceFile != "" {
		return nil
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("config: base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	return nil
}

// Interval returns the poll interval.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// Timeout returns the poll request timeout; zero means none.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// AlertCooldown returns the minimum gap between forwarded alerts.
func (c Config) AlertCooldown() time.Duration {
	return time.Duration(c.Alerts.CooldownSec) * time.Second
}
