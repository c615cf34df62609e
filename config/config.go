package config

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/c360/ringkit/errors"
	"github.com/c360/ringkit/pkg/buffer"
)

// DefaultEnvPrefix is the prefix for environment overrides read by Load.
const DefaultEnvPrefix = "RINGTAIL"

// Duration wraps time.Duration for TOML string parsing ("10s", "1m").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config represents the complete ringtail configuration.
type Config struct {
	Buffer  buffer.Config `toml:"buffer" json:"buffer"`
	Tail    TailConfig    `toml:"tail" json:"tail"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// TailConfig controls how many lines are printed and whether the file is followed.
type TailConfig struct {
	Lines        int      `toml:"lines" json:"lines"`
	Follow       bool     `toml:"follow" json:"follow"`
	PollInterval Duration `toml:"poll_interval" json:"poll_interval"` // fallback when no fs events arrive
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Port    int    `toml:"port" json:"port"`
	Path    string `toml:"path" json:"path"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`   // debug, info, warn, error
	Format string `toml:"format" json:"format"` // json or text
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Buffer: buffer.DefaultConfig(),
		Tail: TailConfig{
			Lines:        10,
			PollInterval: Duration{time.Second},
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks if the config is valid.
func (c Config) Validate() error {
	if err := c.Buffer.Validate(); err != nil {
		return err
	}

	if c.Tail.Lines < 1 {
		return invalid(fmt.Sprintf("tail.lines must be >= 1, got %d", c.Tail.Lines))
	}
	if c.Tail.PollInterval.Duration < 10*time.Millisecond {
		return invalid(fmt.Sprintf("tail.poll_interval must be >= 10ms, got %s", c.Tail.PollInterval.Duration))
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
			return invalid(fmt.Sprintf("metrics.port out of range: %d", c.Metrics.Port))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid(fmt.Sprintf("metrics.path must start with /, got %q", c.Metrics.Path))
		}
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return invalid(fmt.Sprintf("log.level must be one of %v, got %q", logLevels, c.Log.Level))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return invalid(fmt.Sprintf("log.format must be one of %v, got %q", logFormats, c.Log.Format))
	}

	return nil
}

func invalid(msg string) error {
	return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", msg)
}

// String returns the TOML representation of the config.
func (c Config) String() string {
	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return b.String()
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg Config) *SafeConfig {
	return &SafeConfig{config: cfg}
}

// Get returns a copy of the current configuration. Config holds no maps or
// slices, so the copy shares nothing with the wrapper.
func (sc *SafeConfig) Get() Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config
}

// Update atomically replaces the configuration after validation
func (sc *SafeConfig) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Loader handles configuration loading with layers and overrides.
// Each layer is decoded over the previous one, so a layer only changes the keys it
// sets.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  DefaultEnvPrefix,
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvPrefix changes the environment variable prefix. An empty prefix disables
// environment overrides.
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// Load loads and merges all configuration layers on top of Default.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := l.applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// Load reads a single TOML file over the defaults, applies RINGTAIL_* environment
// overrides and validates the result. An empty path yields the defaults.
func Load(path string) (Config, error) {
	l := NewLoader()
	if path != "" {
		l.AddLayer(path)
	}
	return l.Load()
}

func decodeFile(path string, cfg *Config) error {
	data, err := safeReadFile(path)
	if err != nil {
		return err
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"Config", "Load", fmt.Sprintf("parse %s", path))
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Load",
			fmt.Sprintf("unknown keys in %s: %s", path, strings.Join(keys, ", ")))
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	if l.envPrefix == "" {
		return nil
	}

	lookup := func(key string) (string, bool) {
		val, ok := os.LookupEnv(l.envPrefix + "_" + key)
		if !ok || val == "" {
			return "", false
		}
		if err := validateEnvVar(key, val); err != nil {
			return "", false
		}
		return val, true
	}
	atoi := func(key, val string) (int, error) {
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "applyEnvOverrides",
				fmt.Sprintf("parse %s_%s=%q", l.envPrefix, key, val))
		}
		return n, nil
	}

	if val, ok := lookup("BUFFER_CAPACITY"); ok {
		n, err := atoi("BUFFER_CAPACITY", val)
		if err != nil {
			return err
		}
		cfg.Buffer.Capacity = n
	}
	if val, ok := lookup("BUFFER_OVERFLOW_POLICY"); ok {
		policy, err := buffer.ParseOverflowPolicy(val)
		if err != nil {
			return err
		}
		cfg.Buffer.OverflowPolicy = policy
	}
	if val, ok := lookup("TAIL_LINES"); ok {
		n, err := atoi("TAIL_LINES", val)
		if err != nil {
			return err
		}
		cfg.Tail.Lines = n
	}
	if val, ok := lookup("METRICS_PORT"); ok {
		n, err := atoi("METRICS_PORT", val)
		if err != nil {
			return err
		}
		cfg.Metrics.Port = n
		cfg.Metrics.Enabled = true
	}

	return nil
}
