package profile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/paneboard/paneboard/internal/logging"
)

var configLog = logging.ForComponent(logging.CompConfig)

// debounceWindow coalesces the burst of write events editors emit for one
// logical save.
const debounceWindow = 250 * time.Millisecond

// Watcher watches the config file and reloads it on change. Only validated
// configs are delivered: a save that fails validation is logged and reported
// on the error channel, and the previous configuration stays active.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	configs chan *Config
	errs    chan error
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWatcher creates a watcher for the config file at path. The parent
// directory is watched rather than the file itself so atomic-rename saves
// (write temp, rename over) keep working.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:    path,
		watcher: fw,
		configs: make(chan *Config, 1),
		errs:    make(chan error, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	go w.loop()
	return w, nil
}

// Configs delivers each successfully reloaded configuration.
func (w *Watcher) Configs() <-chan *Config {
	return w.configs
}

// Errors delivers validation failures from rejected reloads.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				// The timer may have fired between events with its value
				// still queued; drain it so Reset arms a clean window
				// instead of delivering an extra early reload.
				if !timer.Stop() {
					select {
					case <-timerC:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			configLog.Warn("config_watch_error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		configLog.Warn("config_reload_rejected", slog.String("error", err.Error()))
		select {
		case w.errs <- err:
		default:
		}
		return
	}

	configLog.Info("config_reloaded", slog.Int("profiles", cfg.Registry.Len()))
	// Replace any undelivered config: only the latest matters.
	for {
		select {
		case w.configs <- cfg:
			return
		default:
			select {
			case <-w.configs:
			default:
			}
		}
	}
}
