package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"awgobfs/internal/metrics"
)

var ErrReloadInProgress = errors.New("reload already in progress")

// Reloadable keeps the current profile and swaps it when the file on disk
// changes. The directory is watched so editors that replace the file by
// rename are picked up too.
type Reloadable struct {
	path      string
	log       *zap.Logger
	current   atomic.Pointer[Config]
	mu        sync.RWMutex
	watchers  []func(old, new *Config)
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	done      chan struct{}
	reloading atomic.Bool
}

// NewReloadable loads path and starts watching it.
func NewReloadable(path string, log *zap.Logger) (*Reloadable, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("initial config load: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}

	r := &Reloadable{
		path:    filepath.Clean(path),
		log:     log,
		watcher: watcher,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	r.current.Store(cfg)
	go r.watchLoop()
	return r, nil
}

// Get returns the current profile.
func (r *Reloadable) Get() *Config {
	return r.current.Load()
}

// Watch registers fn to run after every successful swap.
func (r *Reloadable) Watch(fn func(old, new *Config)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers = append(r.watchers, fn)
}

// Reload re-reads the file. The current profile stays in place when the
// new one fails to load or changes a restart-only setting.
func (r *Reloadable) Reload() error {
	if !r.reloading.CompareAndSwap(false, true) {
		return ErrReloadInProgress
	}
	defer r.reloading.Store(false)

	newCfg, err := Load(r.path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	oldCfg := r.Get()
	if err := validateTransition(oldCfg, newCfg); err != nil {
		return fmt.Errorf("validate transition: %w", err)
	}
	r.current.Store(newCfg)
	metrics.IncConfigReloads()

	r.mu.RLock()
	watchers := make([]func(old, new *Config), len(r.watchers))
	copy(watchers, r.watchers)
	r.mu.RUnlock()

	for _, fn := range watchers {
		fn(oldCfg, newCfg)
	}
	return nil
}

// Compiled specs are sized against max_message_size, so it cannot change
// under live senders.
func validateTransition(old, new *Config) error {
	if old.MaxMessageSize != new.MaxMessageSize {
		return fmt.Errorf("max_message_size change requires restart: %d -> %d", old.MaxMessageSize, new.MaxMessageSize)
	}
	if old.MetricsListen != new.MetricsListen {
		return fmt.Errorf("metrics_listen change requires restart")
	}
	return nil
}

func (r *Reloadable) watchLoop() {
	defer close(r.done)
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := r.Reload(); err != nil {
				r.log.Warn("config reload failed", zap.String("path", r.path), zap.Error(err))
				continue
			}
			r.log.Info("config reloaded", zap.String("path", r.path))
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Error("config watcher error", zap.Error(err))
		case <-r.stopCh:
			return
		}
	}
}

// Close stops the watcher and waits for the watch loop to exit.
func (r *Reloadable) Close() error {
	close(r.stopCh)
	err := r.watcher.Close()
	<-r.done
	return err
}
