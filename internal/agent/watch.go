package agent

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/peteragility/smartone/internal/logging"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher reloads a ScriptSource when its script file changes. A script
// that fails to parse is logged and the previous one stays active.
type Watcher struct {
	src     *ScriptSource
	path    string
	logger  *logging.Logger
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	timer    *time.Timer
	onReload func(error)

	stop chan struct{}
	done chan struct{}
}

// WatchScript starts watching path. The directory is watched rather than
// the file so that editors which replace the file on save keep working.
func WatchScript(src *ScriptSource, path string, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		src:     src,
		path:    abs,
		logger:  logger.With("script", abs),
		watcher: fw,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// OnReload registers a callback invoked after every reload attempt.
func (w *Watcher) OnReload(fn func(error)) {
	w.mu.Lock()
	w.onReload = fn
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("script watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	script, err := LoadScript(w.path)
	if err != nil {
		w.logger.Warn("script reload failed, keeping previous scenarios", "error", err)
	} else {
		w.src.SetScript(script)
		w.logger.Info("script reloaded", "scenarios", len(script.Scenarios))
	}

	w.mu.Lock()
	fn := w.onReload
	w.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	select {
	case <-w.stop:
		return nil
	default:
	}
	close(w.stop)
	err := w.watcher.Close()
	<-w.done

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}
