package project

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dhamidi/jide/observability"
)

// Change describes what the watcher did with one changed source file.
type Change struct {
	Path string
	// Target is the target of the file after the change. It is empty when
	// the file was removed or declares no type.
	Target string
	Removed bool
	// Invalidated lists the targets marked invalid by the change.
	Invalidated []string
}

// Watcher keeps a project in sync with its source files. Events are
// debounced; once the files settle, added files become targets, modified
// files are reanalysed and invalidated, and removed files drop their
// targets.
type Watcher struct {
	project   *Project
	fsWatcher *fsnotify.Watcher
	filter    *sourceFilter
	debounce  time.Duration
	onChange  func([]Change)

	callbackMu sync.Mutex
	pendingMu  sync.Mutex
	pending    map[string]time.Time
	timer      *time.Timer
	started    bool
	done       chan struct{}
}

// NewWatcher creates a watcher for p. onChange is called with the changes
// of every settled batch; it may be nil.
func NewWatcher(p *Project, debounce time.Duration, onChange func([]Change)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if onChange == nil {
		onChange = func([]Change) {}
	}
	return &Watcher{
		project:   p,
		fsWatcher: fsw,
		filter:    p.newSourceFilter(),
		debounce:  debounce,
		onChange:  onChange,
		pending:   make(map[string]time.Time),
		done:      make(chan struct{}),
	}, nil
}

// Start watches every source directory below the project root.
func (w *Watcher) Start() error {
	if err := w.watchRecursive(w.project.RootDir); err != nil {
		return err
	}
	w.started = true
	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.filter.skipDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Errorf("watcher error: %s", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	observability.WatcherEvents.WithLabelValues(opName(event.Op)).Inc()

	if event.Has(fsnotify.Create) {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if w.filter.skipDir(event.Name) {
				return
			}
			if err := w.watchRecursive(event.Name); err != nil {
				log.Warningf("failed to watch new directory %s: %s", event.Name, err)
				return
			}
			w.enqueueExistingFiles(event.Name)
			return
		}
	}

	if !w.filter.keepFile(event.Name) {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.scheduleChange(event.Name)
	}
}

func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	}
	return "other"
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()

	changes := make([]Change, 0, len(paths))
	for _, path := range paths {
		if change, ok := w.apply(path); ok {
			changes = append(changes, change)
		}
	}
	if len(changes) > 0 {
		w.onChange(changes)
	}
}

// apply brings the project up to date with one file.
func (w *Watcher) apply(path string) (Change, bool) {
	change := Change{Path: path}
	p := w.project

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		old, ok := p.TargetByPath(path)
		if !ok {
			return change, false
		}
		dependents, _ := p.Modified(old.Name)
		if err := p.RemovePath(path); err != nil {
			log.Warningf("remove %s: %s", path, err)
			return change, false
		}
		change.Removed = true
		for _, name := range dependents {
			if name != old.Name {
				change.Invalidated = append(change.Invalidated, name)
			}
		}
		log.Infof("removed %s", old.Name)
		return change, true
	}

	t, err := p.Add(path)
	if err != nil {
		log.Warningf("%s", err)
		return change, false
	}
	if t == nil {
		return change, true
	}
	change.Target = t.Name
	change.Invalidated, _ = p.Modified(t.Name)
	log.Debugf("%s changed, invalidated %v", t.Name, change.Invalidated)
	return change, true
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if w.filter.keepFile(path) {
			w.scheduleChange(path)
		}
		return nil
	})
}

// Close stops watching. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	err := w.fsWatcher.Close()
	if w.started {
		<-w.done
	}
	return err
}
