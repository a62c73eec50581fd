// Package watch provides a debounced recursive filesystem watcher that
// feeds the incremental indexer its change set: a recursive
// fsnotify.Watcher tree, an accumulate-then-debounce event loop, and
// pause/resume semantics for coordinating with a foreground reindex. A
// caller-supplied ShouldWatch predicate decides eligibility, so the
// watcher doesn't need to know this module's ignore-file/language rules
// itself.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch of accumulated
// changes is delivered.
const DefaultDebounce = 500 * time.Millisecond

const (
	maxDirectories = 4000
	maxDepth       = 64
)

// Watcher recursively watches a directory tree and delivers batches of
// changed paths after a debounce quiet period.
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	root        string
	shouldWatch func(path string) bool
	debounce    time.Duration
	callback    func(paths []string)

	ctx    context.Context
	cancel context.CancelFunc

	pausedMu sync.RWMutex
	paused   bool

	accumulatedMu sync.Mutex
	accumulated   map[string]bool

	timerMu sync.Mutex
	timer   *time.Timer

	stopOnce sync.Once
	done     chan struct{}

	countMu  sync.Mutex
	watchedN int
}

// New creates a watcher rooted at root. shouldWatch filters which
// changed paths are included in a delivered batch (directories are
// always followed regardless of shouldWatch, so new subdirectories are
// picked up even if the filter would reject files within them).
func New(root string, shouldWatch func(path string) bool, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if shouldWatch == nil {
		shouldWatch = func(string) bool { return true }
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher:   fw,
		root:        root,
		shouldWatch: shouldWatch,
		debounce:    debounce,
		accumulated: make(map[string]bool),
		done:        make(chan struct{}),
	}

	if err := w.addRecursively(root, 0); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins watching and invokes callback with each debounced batch
// of changed paths. The watcher stops when ctx is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context, callback func(paths []string)) {
	w.callback = callback
	w.ctx, w.cancel = context.WithCancel(ctx)
	go w.run()
}

// Stop shuts the watcher down, blocking until its event loop exits.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.done
		} else {
			close(w.done)
		}
		err = w.fsWatcher.Close()
	})
	return err
}

// Pause stops callback delivery while still accumulating changes, used
// while the caller is itself writing sidecar files — the indexer's own
// writes shouldn't retrigger a watch-driven reindex.
func (w *Watcher) Pause() {
	w.pausedMu.Lock()
	w.paused = true
	w.pausedMu.Unlock()
}

// Resume re-enables callback delivery, firing immediately with whatever
// accumulated during the pause.
func (w *Watcher) Resume() {
	w.pausedMu.Lock()
	wasPaused := w.paused
	w.paused = false
	w.pausedMu.Unlock()

	if wasPaused {
		w.flush()
	}
}

func (w *Watcher) run() {
	defer close(w.done)

	fire := make(chan struct{}, 1)

	for {
		select {
		case <-w.ctx.Done():
			w.stopTimer()
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursively(event.Name, 0); err != nil {
						log.Printf("watch: could not follow new directory %s: %v", event.Name, err)
					}
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.shouldWatch(event.Name) {
				continue
			}

			w.accumulatedMu.Lock()
			w.accumulated[event.Name] = true
			w.accumulatedMu.Unlock()

			w.resetTimer(fire)

		case <-fire:
			w.flushIfUnpaused()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch: filesystem watcher error: %v", err)
		}
	}
}

func (w *Watcher) flushIfUnpaused() {
	w.pausedMu.RLock()
	paused := w.paused
	w.pausedMu.RUnlock()
	if paused {
		return
	}
	w.flush()
}

func (w *Watcher) flush() {
	w.accumulatedMu.Lock()
	if len(w.accumulated) == 0 {
		w.accumulatedMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.accumulated))
	for p := range w.accumulated {
		paths = append(paths, p)
	}
	w.accumulated = make(map[string]bool)
	w.accumulatedMu.Unlock()

	if w.callback != nil {
		w.callback(paths)
	}
}

func (w *Watcher) resetTimer(fire chan struct{}) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		if !w.timer.Stop() {
			select {
			case <-w.timer.C:
			default:
			}
		}
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) addRecursively(dir string, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("watch: max depth %d exceeded at %s", maxDepth, dir)
	}

	base := filepath.Base(dir)
	if base == ".git" || base == "node_modules" {
		return nil
	}

	w.countMu.Lock()
	if w.watchedN >= maxDirectories {
		n := w.watchedN
		w.countMu.Unlock()
		return fmt.Errorf("watch: directory limit reached (%d watched, max %d)", n, maxDirectories)
	}
	w.countMu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watch: failed to watch %s: %w", dir, err)
	}
	w.countMu.Lock()
	w.watchedN++
	w.countMu.Unlock()

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if entry.Name() == ".git" || entry.Name() == "node_modules" {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		if err := w.addRecursively(sub, depth+1); err != nil {
			log.Printf("watch: %v", err)
		}
	}
	return nil
}
