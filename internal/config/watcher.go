package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
)

// DefaultWatchInterval is the polling period of a [Watcher].
const DefaultWatchInterval = 5 * time.Second

// snapshot identifies one version of the watched file.
type snapshot struct {
	mtime time.Time
	size  int64
	sum   [32]byte
}

// Watcher keeps the configuration loaded from a file current. It polls the
// file and, when the content changes to a configuration that passes
// [Validate], swaps it in and calls onChange with the previous and the new
// configuration. Invalid edits are logged and skipped.
//
// Callbacks never overlap and see configurations in load order. They may
// call [Watcher.Current].
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	current atomic.Pointer[Config]

	mu   sync.Mutex // serialises reloads and callbacks
	seen snapshot

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling period. Default: [DefaultWatchInterval].
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path and starts polling it. The initial configuration
// must be valid; onChange is not called for it.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: DefaultWatchInterval,
		onChange: onChange,
		stop:     make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}

	cfg, snap, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	w.current.Store(cfg)
	w.seen = snap

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Current returns the configuration in effect.
func (w *Watcher) Current() *Config { return w.current.Load() }

// Reload reads the file now, whatever its modification time, and applies
// it when the content changed. It reports whether a new configuration was
// applied. An invalid file yields an error and keeps the current one.
func (w *Watcher) Reload() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.apply()
}

// Stop ends polling and waits for an in-flight reload to finish. It is
// safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-t.C:
			w.poll()
		}
	}
}

// poll reloads when the file's size or modification time moved.
func (w *Watcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config file unreadable, keeping current configuration", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if info.ModTime().Equal(w.seen.mtime) && info.Size() == w.seen.size {
		return
	}
	if _, err := w.apply(); err != nil {
		slog.Warn("config file rejected, keeping current configuration", "path", w.path, "err", err)
		// Wait for the next edit instead of warning on every tick.
		w.seen.mtime, w.seen.size = info.ModTime(), info.Size()
	}
}

// apply must be called with mu held.
func (w *Watcher) apply() (bool, error) {
	cfg, snap, err := w.read()
	if err != nil {
		return false, fmt.Errorf("config: reload %s: %w", w.path, err)
	}
	same := snap.sum == w.seen.sum
	w.seen = snap
	if same {
		return false, nil
	}

	old := w.current.Swap(cfg)
	slog.Info("configuration reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
	return true, nil
}

func (w *Watcher) read() (*Config, snapshot, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return nil, snapshot{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, snapshot{}, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, snapshot{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, snapshot{}, err
	}
	return cfg, snapshot{mtime: info.ModTime(), size: info.Size(), sum: blake3.Sum256(data)}, nil
}
