package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "snaptools.yaml"

// Config holds all snaptools configuration.
type Config struct {
	// Diff checker
	Diff DiffConfig `yaml:"diff"`

	// Video/image-sequence to GIF converter
	GIF GIFConfig `yaml:"gif"`

	// Hash generator
	Hash HashConfig `yaml:"hash"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DiffConfig configures the diff checker.
type DiffConfig struct {
	ContextLines  int    `yaml:"context_lines"`
	MaxCells      int    `yaml:"max_cells"` // 0 = unlimited
	WordDiff      bool   `yaml:"word_diff"`
	WatchDebounce string `yaml:"watch_debounce"`
}

// GIFConfig configures frame capture and encoding.
type GIFConfig struct {
	Width       int     `yaml:"width"`
	FPS         int     `yaml:"fps"`
	SourceFPS   float64 `yaml:"source_fps"` // frame rate assumed for image sequences
	Duration    string  `yaml:"duration"`
	MaxDuration string  `yaml:"max_duration"`
	Loop        int     `yaml:"loop"` // 0 = forever, -1 = play once
	Scaler      string  `yaml:"scaler"`
	SeekTimeout string  `yaml:"seek_timeout"`
	Workers     int     `yaml:"workers"` // 0 = GOMAXPROCS
}

// HashConfig configures the hash generator.
type HashConfig struct {
	Algorithms []string `yaml:"algorithms"`
}

// ValidScalers lists the interpolation kernels accepted by gif.scaler, in
// lower case. Names are matched case-insensitively.
var ValidScalers = []string{"nearest", "approxbilinear", "bilinear", "catmullrom"}

// ValidLogLevels lists the accepted logging.level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Diff: DiffConfig{
			ContextLines:  3,
			MaxCells:      50_000_000,
			WatchDebounce: "300ms",
		},

		GIF: GIFConfig{
			Width:       320,
			FPS:         10,
			SourceFPS:   30,
			Duration:    "3s",
			MaxDuration: "10s",
			Loop:        0,
			Scaler:      "catmullrom",
			SeekTimeout: "10s",
		},

		Hash: HashConfig{
			Algorithms: []string{"MD5", "SHA-1", "SHA-256", "SHA-384", "SHA-512"},
		},

		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults still honor the environment
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Malformed numbers are ignored.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("SNAPTOOLS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if v := os.Getenv("SNAPTOOLS_GIF_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.GIF.Width = n
		}
	}
	if v := os.Getenv("SNAPTOOLS_GIF_FPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.GIF.FPS = n
		}
	}
	if v := os.Getenv("SNAPTOOLS_DIFF_MAX_CELLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Diff.MaxCells = n
		}
	}
}

// GetGIFDuration returns the default clip length.
func (c *Config) GetGIFDuration() time.Duration {
	return parseDuration(c.GIF.Duration, 3*time.Second)
}

// GetMaxDuration returns the longest clip the converter accepts.
func (c *Config) GetMaxDuration() time.Duration {
	return parseDuration(c.GIF.MaxDuration, 10*time.Second)
}

// GetSeekTimeout returns how long a single frame seek may take.
func (c *Config) GetSeekTimeout() time.Duration {
	return parseDuration(c.GIF.SeekTimeout, 10*time.Second)
}

// GetWatchDebounce returns the quiet period before a watched diff re-runs.
func (c *Config) GetWatchDebounce() time.Duration {
	return parseDuration(c.Diff.WatchDebounce, 300*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Diff.ContextLines < 0 {
		return fmt.Errorf("diff.context_lines must be >= 0, got %d", c.Diff.ContextLines)
	}
	if c.Diff.MaxCells < 0 {
		return fmt.Errorf("diff.max_cells must be >= 0, got %d", c.Diff.MaxCells)
	}

	if c.GIF.Width < 1 || c.GIF.Width > 65535 {
		return fmt.Errorf("gif.width must be within 1..65535, got %d", c.GIF.Width)
	}
	if c.GIF.FPS < 1 || c.GIF.FPS > 50 {
		return fmt.Errorf("gif.fps must be within 1..50, got %d", c.GIF.FPS)
	}
	if c.GIF.SourceFPS <= 0 {
		return fmt.Errorf("gif.source_fps must be positive, got %g", c.GIF.SourceFPS)
	}
	if c.GIF.Loop < -1 || c.GIF.Loop > 65535 {
		return fmt.Errorf("gif.loop must be within -1..65535, got %d", c.GIF.Loop)
	}
	if c.GIF.Workers < 0 {
		return fmt.Errorf("gif.workers must be >= 0, got %d", c.GIF.Workers)
	}
	for _, field := range []struct{ name, value string }{
		{"gif.duration", c.GIF.Duration},
		{"gif.max_duration", c.GIF.MaxDuration},
		{"gif.seek_timeout", c.GIF.SeekTimeout},
		{"diff.watch_debounce", c.Diff.WatchDebounce},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", field.name, field.value, err)
		}
	}
	if c.GetGIFDuration() > c.GetMaxDuration() {
		return fmt.Errorf("gif.duration %s exceeds gif.max_duration %s", c.GetGIFDuration(), c.GetMaxDuration())
	}
	if !contains(ValidScalers, strings.ToLower(c.GIF.Scaler)) {
		return fmt.Errorf("invalid gif.scaler: %s (valid: %v)", c.GIF.Scaler, ValidScalers)
	}

	if c.Logging.Level != "" && !contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
