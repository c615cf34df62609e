package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ringkit/config"
	"github.com/c360/ringkit/metric"
	"github.com/c360/ringkit/pkg/buffer"
)

// syncBuffer is a bytes.Buffer safe for the follow goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRunPrintsLastLinesOfFile(t *testing.T) {
	path := writeFile(t, "app.log", "1\n2\n3\n4\n5\n")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-n", "2", path}, strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "4\n5\n", stdout.String())
}

func TestRunReadsStdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	input := strings.NewReader("a\nb\nc\n")

	err := run(context.Background(), []string{"-n", "1"}, input, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "c\n", stdout.String())
}

func TestRunUsesConfiguredLineCount(t *testing.T) {
	cfgPath := writeFile(t, "ringtail.toml", "[tail]\nlines = 3\n")
	path := writeFile(t, "app.log", "1\n2\n3\n4\n5\n")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", cfgPath, path}, nil, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "3\n4\n5\n", stdout.String())
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, nil, &stdout, &stderr))
	assert.Equal(t, "ringtail version "+Version+"\n", stdout.String())
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-h"}, nil, &stdout, &stderr))
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "Usage: ringtail")
	assert.Contains(t, stderr.String(), "-metrics-port")
}

func TestRunValidate(t *testing.T) {
	cfgPath := writeFile(t, "ringtail.toml", "[log]\nformat = \"json\"\n")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-validate", "-config", cfgPath}, nil, &stdout, &stderr))
	assert.Empty(t, stdout.String())

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(stderr.String())), &entry))
	assert.Equal(t, "Configuration is valid", entry["msg"])
	assert.Equal(t, appName, entry["service"])
}

func TestRunErrors(t *testing.T) {
	bad := writeFile(t, "bad.toml", "[buffer]\ncapacity = 0\n")

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"negative lines", []string{"-n", "-1"}, "invalid line count"},
		{"follow stdin", []string{"-f"}, "requires a file"},
		{"two files", []string{"a", "b"}, "at most one file"},
		{"log level", []string{"-log-level", "loud"}, "invalid log level"},
		{"bad config", []string{"-config", bad}, "load config"},
		{"missing file", []string{filepath.Join(t.TempDir(), "absent.log")}, "open"},
		{"unknown flag", []string{"-x"}, "parse flags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, strings.NewReader(""), &stdout, &stderr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRunFollow(t *testing.T) {
	path := writeFile(t, "app.log", "one\ntwo\n")
	stdout := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"-n", "1", "-f", path}, nil, stdout, io.Discard)
	}()

	require.Eventually(t, func() bool {
		return strings.HasPrefix(stdout.String(), "two\n")
	}, 5*time.Second, 10*time.Millisecond)

	// The follower may not be watching yet; keep appending until a line shows up.
	require.Eventually(t, func() bool {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return false
		}
		_, _ = f.WriteString("ping\n")
		_ = f.Close()
		return strings.Contains(stdout.String(), "ping\n")
	}, 10*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	assert.NotContains(t, stdout.String(), "one\n")
}

func TestPrintLastReportsOffsetAndLinesRead(t *testing.T) {
	content := "1\n2\n3\n4\n5\n"
	path := writeFile(t, "app.log", content)
	m := metric.NewMetrics()

	var out bytes.Buffer
	offset, err := printLast(path, nil, 2, &out, m, "app.log")
	require.NoError(t, err)
	assert.Equal(t, "4\n5\n", out.String())
	assert.Equal(t, int64(len(content)), offset, "following resumes where printing stopped")
	assert.Equal(t, 5.0, testutil.ToFloat64(m.LinesRead.WithLabelValues("app.log")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinesEmitted.WithLabelValues("app.log")))

	out.Reset()
	offset, err = printLast("", strings.NewReader("a\nb\n"), 5, &out, m, "stdin")
	require.NoError(t, err)
	assert.Zero(t, offset)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinesRead.WithLabelValues("stdin")))
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	applyFlags(&cfg, &CLIConfig{MetricsPort: -1})
	assert.Equal(t, config.Default(), cfg, "unset flags change nothing")

	applyFlags(&cfg, &CLIConfig{
		Lines:       7,
		Follow:      true,
		MetricsPort: 0,
		LogLevel:    "debug",
		LogFormat:   "json",
	})
	assert.Equal(t, 7, cfg.Tail.Lines)
	assert.True(t, cfg.Tail.Follow)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 0, cfg.Metrics.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, buffer.DefaultConfig(), cfg.Buffer)
}

func TestParseFlagsEnvFallback(t *testing.T) {
	t.Setenv("RINGTAIL_LOG_LEVEL", "warn")
	t.Setenv("RINGTAIL_METRICS_PORT", "9999")

	cli, err := parseFlags([]string{"file.log"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "warn", cli.LogLevel)
	assert.Equal(t, 9999, cli.MetricsPort)
	assert.Equal(t, "file.log", cli.File)

	cli, err = parseFlags([]string{"-log-level", "error"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "error", cli.LogLevel, "flag wins over env")
}

func TestSetupLogger(t *testing.T) {
	var out bytes.Buffer
	logger, level := setupLogger("warn", "json", &out)

	logger.Info("hidden")
	assert.Empty(t, out.String())

	level.Set(slog.LevelInfo)
	logger.Info("shown")
	assert.Contains(t, out.String(), `"msg":"shown"`)

	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, parseLevel("unknown"))
}
