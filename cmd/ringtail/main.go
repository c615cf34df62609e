// Package main implements ringtail, a tail(1) work-alike that keeps the last lines
// of its input in a fixed-capacity ring buffer and can follow a growing file.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/c360/ringkit/config"
	"github.com/c360/ringkit/health"
	"github.com/c360/ringkit/metric"
	"github.com/c360/ringkit/pkg/buffer"
	"github.com/c360/ringkit/pkg/retry"
	"github.com/c360/ringkit/pkg/tail"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "ringtail"
)

const shutdownTimeout = 5 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		slog.Error("ringtail failed", "error", err, "exit_code", 1)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cli, err := parseFlags(args, stderr)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if err := validateFlags(cli); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cli.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}
	if cli.ShowHelp {
		return nil
	}

	cfg, err := initializeConfiguration(cli)
	if err != nil {
		return err
	}

	logger, levelVar := setupLogger(cfg.Log.Level, cfg.Log.Format, stderr)
	slog.SetDefault(logger)

	if cli.Validate {
		logger.Info("Configuration is valid", "config_path", cli.ConfigPath)
		return nil
	}

	logger.Debug("Starting ringtail",
		"build_time", BuildTime,
		"config_path", cli.ConfigPath,
		"file", cli.File,
		"lines", cfg.Tail.Lines,
		"follow", cfg.Tail.Follow)

	registry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()
	if cfg.Metrics.Enabled {
		stop, err := startMetricsServer(cfg.Metrics, registry, monitor, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	source := sourceName(cli.File)
	out := bufio.NewWriter(stdout)
	defer out.Flush()

	offset, err := printLast(cli.File, stdin, cfg.Tail.Lines, out, registry.CoreMetrics(), source)
	if err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if !cfg.Tail.Follow {
		return nil
	}

	if cli.ConfigPath != "" {
		stopWatch, err := watchConfig(ctx, cli, cfg, levelVar, logger)
		if err != nil {
			return err
		}
		defer stopWatch()
	}

	return follow(ctx, cli.File, offset, cfg, registry, monitor, out, logger)
}

// initializeConfiguration loads the file, applies flags and validates the result.
func initializeConfiguration(cli *CLIConfig) (config.Config, error) {
	cfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	applyFlags(&cfg, cli)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func startMetricsServer(
	cfg config.MetricsConfig,
	registry *metric.MetricsRegistry,
	monitor *health.Monitor,
	logger *slog.Logger,
) (func(), error) {
	server := metric.NewServer(cfg.Port, cfg.Path, registry,
		metric.WithHealthHandler(monitor.Handler(appName)))

	errc := make(chan error, 1)
	if err := server.Start(errc); err != nil {
		return nil, fmt.Errorf("start metrics server: %w", err)
	}
	logger.Info("Metrics server listening", "address", server.Address())

	done := make(chan struct{})
	go func() {
		select {
		case err := <-errc:
			logger.Error("Metrics server failed", "error", err)
		case <-done:
		}
	}()

	return func() {
		close(done)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}, nil
}

func sourceName(file string) string {
	if file == "" {
		return "stdin"
	}
	return filepath.Base(file)
}

// printLast writes the last n lines of file, or of stdin when file is empty. For a
// file it returns the offset it read up to, where following picks up.
func printLast(
	file string,
	stdin io.Reader,
	n int,
	out io.Writer,
	metrics *metric.Metrics,
	source string,
) (int64, error) {
	r := stdin
	var f *os.File
	if file != "" {
		var err error
		f, err = os.Open(file)
		if err != nil {
			return 0, fmt.Errorf("open %s: %w", file, err)
		}
		defer f.Close()
		r = f
	}

	lines, read, err := tail.LastCounted(r, n)
	metrics.RecordLinesRead(source, read)
	if err != nil {
		metrics.RecordError(source, err)
		return 0, fmt.Errorf("read %s: %w", source, err)
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return 0, fmt.Errorf("write output: %w", err)
		}
	}
	metrics.RecordLinesEmitted(source, len(lines))

	if f == nil {
		return 0, nil
	}
	offset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", source, err)
	}
	return offset, nil
}

// watchConfig reloads the configuration file while following and applies log
// level changes. Other sections take effect on the next start.
func watchConfig(
	ctx context.Context,
	cli *CLIConfig,
	cfg config.Config,
	levelVar *slog.LevelVar,
	logger *slog.Logger,
) (func(), error) {
	cm, err := config.NewManager(cli.ConfigPath, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create config manager: %w", err)
	}
	if err := cm.Start(ctx); err != nil {
		return nil, fmt.Errorf("start config manager: %w", err)
	}

	updates := cm.OnChange(config.SectionLog)
	go func() {
		for update := range updates {
			level := update.Config.Log.Level
			if cli.LogLevel != "" {
				level = cli.LogLevel
			}
			levelVar.Set(parseLevel(level))
		}
	}()

	return func() { _ = cm.Stop(shutdownTimeout) }, nil
}

// follow streams appended lines through a bounded buffer to out until ctx is done.
// A slow out makes the buffer fill; the overflow policy then decides which lines
// are lost or whether the follower waits. Transient follower failures restart
// the follower with backoff.
func follow(
	ctx context.Context,
	file string,
	offset int64,
	cfg config.Config,
	registry *metric.MetricsRegistry,
	monitor *health.Monitor,
	out *bufio.Writer,
	logger *slog.Logger,
) error {
	source := sourceName(file)
	metrics := registry.CoreMetrics()

	var dropped atomic.Int64
	buf, err := buffer.NewFromConfig[string](cfg.Buffer,
		buffer.WithMetrics[string](registry, appName),
		buffer.WithDropCallback(func(string) { dropped.Add(1) }),
	)
	if err != nil {
		return fmt.Errorf("create buffer: %w", err)
	}
	defer buf.Close()

	wake := make(chan struct{}, 1)
	follower, err := tail.NewFollower(file, buf,
		tail.WithLogger(logger),
		tail.WithPollInterval(cfg.Tail.PollInterval.Duration),
		tail.WithMetrics(metrics, source),
		tail.WithHealth(monitor, "follower"),
		tail.WithStartOffset(offset),
		tail.WithLineHandler(func(string) {
			select {
			case wake <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("create follower: %w", err)
	}

	runCtx, stopFollower := context.WithCancel(ctx)
	defer stopFollower()
	errc := make(chan error, 1)
	backoff := retry.Persistent()
	backoff.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("Follower failed, restarting", "attempt", attempt, "error", err, "delay", delay)
	}
	go func() {
		errc <- retry.Do(runCtx, backoff, func() error { return follower.Run(runCtx) })
	}()

	var lastDropped int64
	monitor.UpdateHealthy("buffer", "draining")

	flush := func() error {
		lines := buf.ReadBatch(buf.Capacity())
		for _, line := range lines {
			if _, err := fmt.Fprintln(out, line); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		metrics.RecordLinesEmitted(source, len(lines))

		stats := buf.Stats()
		status := health.NewHealthy("buffer", "draining")
		if d := dropped.Load(); d > lastDropped {
			status = health.NewDegraded("buffer", fmt.Sprintf("dropped %d lines since last flush", d-lastDropped))
			lastDropped = d
		}
		monitor.Update("buffer", status.WithMetrics(&health.Metrics{
			LinesRead:    stats.Writes(),
			LinesDropped: lastDropped,
			LastActivity: time.Now(),
		}))
		return nil
	}

	defer func() {
		stats := buf.Stats()
		logger.Debug("Follow finished",
			"lines_read", stats.Writes(),
			"lines_dropped", dropped.Load(),
			"max_buffered", stats.MaxSize())
	}()

	for {
		select {
		case <-ctx.Done():
			// Unblock a follower waiting on a full buffer, then print what is left.
			_ = buf.Close()
			<-errc
			return flush()

		case err := <-errc:
			if flushErr := flush(); flushErr != nil {
				return flushErr
			}
			if err != nil {
				return fmt.Errorf("follow %s: %w", file, err)
			}
			return nil

		case <-wake:
			if err := flush(); err != nil {
				return err
			}
		}
	}
}
