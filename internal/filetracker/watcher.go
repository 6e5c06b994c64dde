// Package filetracker is the filesystem-discovery half of §6.1's "file
// discovery and build-system logic" collaborator: it walks the configured
// search roots once at startup and, in server mode, watches them with
// github.com/fsnotify/fsnotify, translating raw OS events into the
// sourceenv.FileEvent stream internal/sourceenv.Environment.Update expects.
package filetracker

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pyscope-dev/pyscope/internal/config"
	"github.com/pyscope-dev/pyscope/internal/sourceenv"
)

// Watcher walks a set of prioritized search roots and, once started,
// reports filesystem changes underneath them as batches of
// sourceenv.FileEvent. Directory add/remove is handled transparently:
// fsnotify only watches the directories it's told about, so Watcher walks
// each root recursively and re-walks a directory the moment a Create event
// names it.
type Watcher struct {
	mu          sync.Mutex
	roots       []string
	watcher     *fsnotify.Watcher
	debounceDur time.Duration
	pending     map[string]sourceenv.FileEvent

	events chan []sourceenv.FileEvent
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a Watcher over roots, in the same priority order
// config.Settings.SearchRoots carries — lower index wins when a qualifier
// is reachable through more than one root.
func New(roots []string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		roots:       roots,
		watcher:     fw,
		debounceDur: 200 * time.Millisecond,
		pending:     make(map[string]sourceenv.FileEvent),
		events:      make(chan []sourceenv.FileEvent, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Events returns the channel batches of discovered/changed/deleted files
// are delivered on. Each batch is ready to pass straight to
// sourceenv.Environment.Update.
func (w *Watcher) Events() <-chan []sourceenv.FileEvent { return w.events }

// Scan walks every root once and returns every recognized source file
// found, for the one-shot `check`/`analyze` CLI paths that never start the
// background watch loop.
func (w *Watcher) Scan() ([]sourceenv.FileEvent, error) {
	var out []sourceenv.FileEvent
	for priority, root := range w.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !config.HasSourceExt(path) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			out = append(out, w.eventFor(rel, priority, sourceenv.CreatedOrChanged))
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	return out, nil
}

func (w *Watcher) eventFor(rel string, priority int, kind sourceenv.FileEventKind) sourceenv.FileEvent {
	qualifier, isInit := QualifierForRelPath(rel)
	return sourceenv.FileEvent{
		Path: sourceenv.ModulePath{
			Qualifier: qualifier,
			RelPath:   rel,
			Priority:  priority,
			IsStub:    config.IsStubPath(rel),
			IsInit:    isInit,
		},
		Kind: kind,
	}
}

// Start begins watching every root (recursively) in a background
// goroutine. Non-blocking; call Close to stop.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.roots {
		if err := w.addTree(root); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	go w.run(ctx)
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Close stops the watch loop and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	close(w.stopCh)
	<-w.doneCh
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addTree(ev.Name)
			return
		}
	}
	if !config.HasSourceExt(ev.Name) {
		return
	}

	root, priority, ok := w.rootFor(ev.Name)
	if !ok {
		return
	}
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil {
		return
	}

	var kind sourceenv.FileEventKind
	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		kind = sourceenv.Deleted
	case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
		kind = sourceenv.CreatedOrChanged
	default:
		return
	}

	w.mu.Lock()
	w.pending[ev.Name] = w.eventFor(rel, priority, kind)
	w.mu.Unlock()
}

func (w *Watcher) rootFor(path string) (root string, priority int, ok bool) {
	for i, r := range w.roots {
		if strings.HasPrefix(path, r+string(filepath.Separator)) || path == r {
			return r, i, true
		}
	}
	return "", 0, false
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]sourceenv.FileEvent, 0, len(w.pending))
	for _, ev := range w.pending {
		batch = append(batch, ev)
	}
	w.pending = make(map[string]sourceenv.FileEvent)
	w.mu.Unlock()

	select {
	case w.events <- batch:
	default:
	}
}
