package tail

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360/ringkit/errors"
	"github.com/c360/ringkit/health"
	"github.com/c360/ringkit/metric"
	"github.com/c360/ringkit/pkg/buffer"
)

// Option configures a Follower.
type Option func(*Follower)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Follower) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithLineHandler registers a function called with every line after it has been
// written to the buffer.
func WithLineHandler(handler func(line string)) Option {
	return func(f *Follower) {
		f.onLine = handler
	}
}

// WithPollInterval sets how often the file is checked when no filesystem event
// arrives. Some filesystems never deliver events. Defaults to one second.
func WithPollInterval(d time.Duration) Option {
	return func(f *Follower) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// WithMetrics records lines read, truncations and errors under the given source
// label.
func WithMetrics(m *metric.Metrics, source string) Option {
	return func(f *Follower) {
		f.metrics = m
		if source != "" {
			f.source = source
		}
	}
}

// WithHealth reports the follower's state to monitor under name: healthy while
// following, degraded while the file is missing, and the classified state of
// any error that stops Run. The entry is removed when Run is cancelled.
func WithHealth(monitor *health.Monitor, name string) Option {
	return func(f *Follower) {
		f.monitor = monitor
		if name != "" {
			f.healthName = name
		}
	}
}

// WithStartOffset makes the first Run start reading at offset instead of the end
// of the file, so that lines written after a caller last read the file are not
// missed. Restarts after a failure start at the end as usual. A negative offset
// is ignored.
func WithStartOffset(offset int64) Option {
	return func(f *Follower) {
		if offset >= 0 {
			f.startOffset = offset
		}
	}
}

// Follower reads lines appended to a file and writes them to a buffer, like
// tail -F. It survives truncation, removal and replacement of the file.
type Follower struct {
	path         string
	buf          buffer.Buffer[string]
	logger       *slog.Logger
	onLine       func(string)
	pollInterval time.Duration
	metrics      *metric.Metrics
	source       string
	monitor      *health.Monitor
	healthName   string
	onStart      func() // test hook, called once the watcher is in place

	// Set by WithStartOffset, consumed by the first open.
	startOffset int64

	// Owned by Run.
	file       *os.File
	offset     int64
	partial    []byte
	discarding bool // inside an overlong line, skipping to its newline
}

// NewFollower creates a follower for path that writes into buf.
func NewFollower(path string, buf buffer.Buffer[string], opts ...Option) (*Follower, error) {
	if path == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidArgument, "Follower", "NewFollower", "path required")
	}
	if buf == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidArgument, "Follower", "NewFollower", "buffer required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Follower", "NewFollower", "resolve path")
	}

	f := &Follower{
		path:         abs,
		buf:          buf,
		logger:       slog.Default(),
		pollInterval: time.Second,
		source:       filepath.Base(abs),
		healthName:   "follower",
		startOffset:  -1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	f.logger = f.logger.With("component", "follower", "path", abs)

	return f, nil
}

// Run follows the file until ctx is done. Only lines written after Run starts, or
// after the offset given by WithStartOffset, are delivered. It returns nil on cancellation, and an error if the file cannot be
// opened at start, the watcher fails, or the buffer refuses a line.
func (f *Follower) Run(ctx context.Context) error {
	if err := f.open(true); err != nil {
		return err
	}
	defer f.closeFile()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return f.fail(errors.WrapTransient(err, "Follower", "Run", "create fsnotify watcher"))
	}
	defer watcher.Close()

	// Watch the directory so that a replaced file is noticed.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return f.fail(errors.WrapTransient(err, "Follower", "Run", "watch directory"))
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	f.logger.Debug("Following file", "offset", f.offset)
	f.report(health.NewHealthy(f.healthName, "following "+f.source))
	if f.onStart != nil {
		f.onStart()
	}

	for {
		select {
		case <-ctx.Done():
			if f.monitor != nil {
				f.monitor.Remove(f.healthName)
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Drain what the old file still holds before letting go of it.
				if err := f.readAppended(); err != nil {
					return err
				}
				f.logger.Info("File moved or removed, waiting for it to reappear")
				f.report(health.NewDegraded(f.healthName, "waiting for "+f.source+" to reappear"))
				f.closeFile()
			case event.Op&fsnotify.Create != 0:
				if f.file != nil {
					// Already reopened by poll.
					if replaced, err := f.replaced(); err != nil || !replaced {
						if err := f.readAppended(); err != nil {
							return err
						}
						continue
					}
				}
				f.closeFile()
				if err := f.open(false); err != nil {
					f.logger.Warn("Failed to reopen file", "error", err)
					continue
				}
				f.logger.Info("File recreated, reading from start")
				f.report(health.NewHealthy(f.healthName, "following "+f.source))
				if err := f.readAppended(); err != nil {
					return err
				}
			case event.Op&fsnotify.Write != 0:
				if err := f.readAppended(); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return f.fail(errors.WrapTransient(err, "Follower", "Run", "watch file"))

		case <-ticker.C:
			if err := f.poll(); err != nil {
				return err
			}
		}
	}
}

// poll catches changes that produced no event, including a replaced file.
func (f *Follower) poll() error {
	if f.file != nil {
		if replaced, err := f.replaced(); err == nil && replaced {
			if err := f.readAppended(); err != nil {
				return err
			}
			f.closeFile()
		}
	}
	if f.file == nil {
		if _, err := os.Stat(f.path); err != nil {
			return nil
		}
		if err := f.open(false); err != nil {
			f.logger.Warn("Failed to reopen file", "error", err)
			return nil
		}
		f.logger.Info("File reappeared, reading from start")
		f.report(health.NewHealthy(f.healthName, "following "+f.source))
	}
	return f.readAppended()
}

// replaced reports whether path now names a different file than the open one.
func (f *Follower) replaced() (bool, error) {
	current, err := f.file.Stat()
	if err != nil {
		return false, err
	}
	onDisk, err := os.Stat(f.path)
	if err != nil {
		return false, err
	}
	return !os.SameFile(current, onDisk), nil
}

// open opens the file, positioned at the end when atEnd is set and at the start
// otherwise.
func (f *Follower) open(atEnd bool) error {
	file, err := os.Open(f.path)
	if err != nil {
		return f.fail(errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrSourceUnavailable, err),
			"Follower", "open", "open file"))
	}

	var offset int64
	if atEnd {
		info, err := file.Stat()
		if err != nil {
			_ = file.Close()
			return f.fail(errors.WrapTransient(err, "Follower", "open", "stat file"))
		}
		offset = info.Size()
		if f.startOffset >= 0 {
			// A start offset past the end is caught as truncation on the first read.
			offset = f.startOffset
			f.startOffset = -1
		}
	}

	f.file = file
	f.offset = offset
	f.resetLine()
	return nil
}

func (f *Follower) closeFile() {
	if f.file != nil {
		_ = f.file.Close()
		f.file = nil
	}
	f.resetLine()
}

func (f *Follower) resetLine() {
	f.partial = f.partial[:0]
	f.discarding = false
}

// hold appends an incomplete piece of the current line, switching to discard
// mode once the line exceeds MaxLineLength.
func (f *Follower) hold(chunk []byte) {
	if f.discarding {
		return
	}
	f.partial = append(f.partial, chunk...)
	if len(f.partial) > MaxLineLength {
		f.logger.Warn("Discarding overlong line", "length", len(f.partial))
		f.partial = f.partial[:0]
		f.discarding = true
	}
}

// readAppended delivers every complete line between the saved offset and the
// current end of file. A trailing line without a newline is held back until it is
// completed.
func (f *Follower) readAppended() error {
	if f.file == nil {
		return nil
	}

	info, err := f.file.Stat()
	if err != nil {
		return f.fail(errors.WrapTransient(err, "Follower", "readAppended", "stat file"))
	}

	size := info.Size()
	if size < f.offset {
		f.logger.Info("File truncated, reading from start", "previous_size", f.offset, "size", size)
		if f.metrics != nil {
			f.metrics.RecordTruncation(f.source)
		}
		f.offset = 0
		f.resetLine()
	}
	if size == f.offset {
		return nil
	}

	reader := bufio.NewReader(io.NewSectionReader(f.file, f.offset, size-f.offset))
	for {
		chunk, err := reader.ReadSlice('\n')
		f.offset += int64(len(chunk))

		switch err {
		case nil:
			f.hold(chunk[:len(chunk)-1])
			if f.discarding {
				f.resetLine()
				continue
			}
			line := bytes.TrimSuffix(f.partial, []byte{'\r'})
			emitErr := f.emit(string(line))
			f.resetLine()
			if emitErr != nil {
				return emitErr
			}

		case bufio.ErrBufferFull:
			f.hold(chunk)

		case io.EOF:
			f.hold(chunk)
			return nil

		default:
			return f.fail(errors.WrapTransient(err, "Follower", "readAppended", "read file"))
		}
	}
}

func (f *Follower) emit(line string) error {
	if err := f.buf.Write(line); err != nil {
		return f.fail(err)
	}
	if f.metrics != nil {
		f.metrics.RecordLineRead(f.source)
	}
	if f.onLine != nil {
		f.onLine(line)
	}
	return nil
}

// fail records err and returns it.
func (f *Follower) fail(err error) error {
	if f.metrics != nil {
		f.metrics.RecordError(f.source, err)
	}
	f.report(health.FromError(f.healthName, err))
	return err
}

func (f *Follower) report(status health.Status) {
	if f.monitor != nil {
		f.monitor.Update(f.healthName, status)
	}
}
