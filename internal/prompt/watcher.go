package prompt

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"lexgraph/internal/logging"
)

// templateWatcher invalidates cached prompts when an override template
// changes on disk.
type templateWatcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
	once sync.Once
}

func watchTemplates(dir string, invalidate func(Wave)) (*templateWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &templateWatcher{fsw: fsw, done: make(chan struct{})}
	go w.run(invalidate)
	logging.Prompt("watching template overrides in %s", dir)
	return w, nil
}

func (w *templateWatcher) run(invalidate func(Wave)) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, ".tmpl") {
				continue
			}
			invalidate(Wave(strings.TrimSuffix(name, ".tmpl")))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryPrompt).Warn("template watcher error: %v", err)
		}
	}
}

func (w *templateWatcher) close() error {
	w.once.Do(func() { close(w.done) })
	return w.fsw.Close()
}
