package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360/ringkit/errors"
)

// Section names reported in Update.Section.
const (
	SectionBuffer  = "buffer"
	SectionTail    = "tail"
	SectionMetrics = "metrics"
	SectionLog     = "log"
)

// Update represents a configuration change notification
type Update struct {
	Section string // Changed section, e.g. "log"
	Config  Config // Full latest configuration
}

// Manager reloads a configuration file when it changes on disk and notifies
// subscribers about the sections that changed.
type Manager struct {
	path        string
	config      *SafeConfig
	subscribers map[string][]chan Update // section (or "*") -> channels
	mu          sync.RWMutex             // Protects subscribers map
	logger      *slog.Logger

	// Lifecycle management
	watcher    *fsnotify.Watcher
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	started    atomic.Bool
	stopped    atomic.Bool
}

// NewManager creates a manager for the file at path, starting from cfg.
func NewManager(path string, cfg Config, logger *slog.Logger) (*Manager, error) {
	if path == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Manager", "NewManager", "config path required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Manager", "NewManager", "resolve config path")
	}

	return &Manager{
		path:        abs,
		config:      NewSafeConfig(cfg),
		subscribers: make(map[string][]chan Update),
		logger:      logger.With("component", "config", "path", abs),
	}, nil
}

// Config returns the current configuration
func (cm *Manager) Config() Config {
	return cm.config.Get()
}

// OnChange subscribes to changes of one section, or of any section with "*".
// The returned channel holds at most one pending update; a newer update replaces
// an unread one. The current configuration is delivered immediately.
func (cm *Manager) OnChange(section string) <-chan Update {
	ch := make(chan Update, 1)

	cm.mu.Lock()
	cm.subscribers[section] = append(cm.subscribers[section], ch)
	cm.mu.Unlock()

	ch <- Update{Section: section, Config: cm.config.Get()}
	return ch
}

// Start begins watching the configuration file. The parent directory is watched
// so that editors replacing the file by rename are noticed.
func (cm *Manager) Start(ctx context.Context) error {
	if cm.stopped.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Manager", "Start", "start watcher")
	}
	if !cm.started.CompareAndSwap(false, true) {
		return errors.WrapInvalid(fmt.Errorf("already started"), "Manager", "Start", "start watcher")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		cm.started.Store(false)
		return errors.WrapTransient(err, "Manager", "Start", "create fsnotify watcher")
	}
	if err := watcher.Add(filepath.Dir(cm.path)); err != nil {
		_ = watcher.Close()
		cm.started.Store(false)
		return errors.WrapTransient(err, "Manager", "Start", "watch config directory")
	}

	cm.watcher = watcher
	cm.shutdownCh = make(chan struct{})

	cm.wg.Add(1)
	go cm.processWatcher(ctx)

	cm.logger.Debug("Watching configuration file")
	return nil
}

// Stop stops watching and closes every subscriber channel.
func (cm *Manager) Stop(timeout time.Duration) error {
	if !cm.stopped.CompareAndSwap(false, true) {
		return nil
	}

	if cm.shutdownCh != nil {
		close(cm.shutdownCh)
	}
	if cm.watcher != nil {
		_ = cm.watcher.Close()
	}

	done := make(chan struct{})
	go func() {
		cm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		cm.logger.Warn("Manager shutdown timeout", "timeout", timeout)
	}

	cm.mu.Lock()
	for _, channels := range cm.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	cm.subscribers = make(map[string][]chan Update)
	cm.mu.Unlock()

	return nil
}

func (cm *Manager) processWatcher(ctx context.Context) {
	defer cm.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case <-cm.shutdownCh:
			return

		case event, ok := <-cm.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cm.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := cm.Reload(); err != nil {
				// A half-written file fails to parse; the next write retries.
				cm.logger.Warn("Failed to reload configuration", "error", err)
			}

		case err, ok := <-cm.watcher.Errors:
			if !ok {
				return
			}
			cm.logger.Error("Config watcher error", "error", err)
		}
	}
}

// Reload reads the file again and notifies subscribers of changed sections.
// On error the current configuration is kept.
func (cm *Manager) Reload() error {
	if cm.stopped.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Manager", "Reload", "reload config")
	}

	next, err := Load(cm.path)
	if err != nil {
		return err
	}

	prev := cm.config.Get()
	if err := cm.config.Update(next); err != nil {
		return err
	}

	changed := changedSections(prev, next)
	if len(changed) == 0 {
		return nil
	}

	cm.logger.Info("Configuration reloaded", "sections", changed)
	for _, section := range changed {
		cm.notify(Update{Section: section, Config: next})
	}
	return nil
}

func (cm *Manager) notify(update Update) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, pattern := range []string{update.Section, "*"} {
		for _, ch := range cm.subscribers[pattern] {
			if cm.stopped.Load() {
				return
			}
			select {
			case ch <- update:
			default:
				// Replace the stale update.
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- update:
				default:
				}
			}
		}
	}
}

func changedSections(prev, next Config) []string {
	var changed []string
	if prev.Buffer != next.Buffer {
		changed = append(changed, SectionBuffer)
	}
	if prev.Tail != next.Tail {
		changed = append(changed, SectionTail)
	}
	if prev.Metrics != next.Metrics {
		changed = append(changed, SectionMetrics)
	}
	if prev.Log != next.Log {
		changed = append(changed, SectionLog)
	}
	return changed
}
