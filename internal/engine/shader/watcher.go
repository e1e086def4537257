package shader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/forge3d/internal/logger"
)

// Watcher reports GLSL files changed in a library override directory.
// Changes are queued and drained from the frame loop with Poll, so the
// engine state is never touched from the watcher goroutine.
type Watcher struct {
	watcher *fsnotify.Watcher
	changed chan string
	done    chan struct{}
	log     *zap.Logger
}

// NewWatcher starts watching dir.
func NewWatcher(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating shader watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	w := &Watcher{
		watcher: fw,
		changed: make(chan string, 32),
		done:    make(chan struct{}),
		log:     logger.Named("shader"),
	}
	go w.run()

	w.log.Info("watching shader directory", zap.String("dir", dir))
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".glsl") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.changed <- filepath.Base(event.Name):
			default:
				// Drop when full.
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("shader watcher error", zap.Error(err))
		}
	}
}

// Poll returns the distinct file names changed since the last call.
func (w *Watcher) Poll() []string {
	var names []string
	seen := make(map[string]bool)
	for {
		select {
		case name := <-w.changed:
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		default:
			return names
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
