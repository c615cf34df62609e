package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/c360/ringkit/config"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	Lines       int // 0 keeps the configured value
	Follow      bool
	MetricsPort int // -1 keeps the configured value
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
	File        string // empty reads stdin
}

func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("RINGTAIL_CONFIG", ""),
		"Path to TOML configuration file (env: RINGTAIL_CONFIG)")

	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("RINGTAIL_CONFIG", ""),
		"Path to TOML configuration file (env: RINGTAIL_CONFIG)")

	fs.IntVar(&cfg.Lines, "n", 0,
		"Number of lines to print (default from config, 10)")

	fs.BoolVar(&cfg.Follow, "f", false,
		"Keep following the file as it grows")

	fs.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("RINGTAIL_METRICS_PORT", -1),
		"Serve Prometheus metrics on this port, -1 to use config (env: RINGTAIL_METRICS_PORT)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("RINGTAIL_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: RINGTAIL_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("RINGTAIL_LOG_FORMAT", ""),
		"Log format: json, text (env: RINGTAIL_LOG_FORMAT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs, stderr)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		cfg.File = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected at most one file, got %d", fs.NArg())
	}

	if cfg.ShowHelp {
		fs.Usage()
	}

	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.Lines < 0 {
		return fmt.Errorf("invalid line count: %d", cfg.Lines)
	}

	if cfg.MetricsPort < -1 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	if cfg.LogLevel != "" && !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "" && !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.Follow && cfg.File == "" {
		return fmt.Errorf("-f requires a file argument")
	}

	return nil
}

// applyFlags overrides file configuration with explicitly given flags.
func applyFlags(cfg *config.Config, cli *CLIConfig) {
	if cli.Lines > 0 {
		cfg.Tail.Lines = cli.Lines
	}
	if cli.Follow {
		cfg.Tail.Follow = true
	}
	if cli.MetricsPort >= 0 {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Port = cli.MetricsPort
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}
}

func printDetailedHelp(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - print the last lines of a file using a fixed-size ring buffer

Usage: %s [options] [file]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Last 20 lines of a file
  %s -n 20 /var/log/syslog

  # Follow a log with metrics on :9090
  %s -f -metrics-port 9090 /var/log/app.log

  # Read from stdin
  journalctl | %s -n 5

  # Run with a configuration file
  export RINGTAIL_CONFIG=/etc/ringtail/ringtail.toml
  %s -f /var/log/app.log

Version: %s
Build: %s
`, appName, appName, appName, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
