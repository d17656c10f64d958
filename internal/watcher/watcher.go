// Package watcher reports content changes to a set of files, such as the
// user dictionary, after they have settled.
package watcher

import (
	"crypto/sha256"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is a settled change to a watched file. Removed is set when the
// file no longer exists.
type Event struct {
	Path      string
	Hash      [32]byte
	Size      int64
	Removed   bool
	Timestamp time.Time
}

// Watcher monitors files for content changes. Editors that replace a file
// through a rename are handled by watching the parent directory.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	paths     []string
	interval  time.Duration

	// path -> last filesystem activity, for files not yet reported
	pending map[string]time.Time
	hashes  map[string][32]byte
	watched map[string]bool
	stateMu sync.RWMutex

	events chan Event
	errors chan error

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a watcher for paths. A change is reported once the file has
// been quiet for interval.
func New(paths []string, interval time.Duration) (*Watcher, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		interval:  interval,
		pending:   make(map[string]time.Time),
		hashes:    make(map[string][32]byte),
		watched:   make(map[string]bool),
		events:    make(chan Event, 16),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
		w.paths = append(w.paths, abs)
		w.watched[abs] = true
	}
	return w, nil
}

// Events returns the channel of settled changes.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start records the current content of every path and begins watching.
// A path that does not exist yet is reported when it is created.
func (w *Watcher) Start() error {
	dirs := make(map[string]bool)
	for _, path := range w.paths {
		dir := filepath.Dir(path)
		if !dirs[dir] {
			if err := w.fsWatcher.Add(dir); err != nil {
				return err
			}
			dirs[dir] = true
		}

		if hash, _, err := HashFile(path); err == nil {
			w.hashes[path] = hash
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	return nil
}

// Stop shuts the watcher down. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
		close(w.events)
		close(w.errors)
		err = w.fsWatcher.Close()
	})
	return err
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.watched[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			w.stateMu.Lock()
			w.pending[filepath.Clean(event.Name)] = time.Now()
			w.stateMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	tick := w.interval / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			w.checkStableFiles(now)
		}
	}
}

type stableFile struct {
	path    string
	lastMod time.Time
}

// checkStableFiles reports files that have been quiet for the interval
// and whose content hash differs from the last one reported. The lock is
// released while hashing.
func (w *Watcher) checkStableFiles(now time.Time) {
	threshold := now.Add(-w.interval)

	var stable []stableFile
	w.stateMu.RLock()
	for path, lastMod := range w.pending {
		if lastMod.Before(threshold) {
			stable = append(stable, stableFile{path: path, lastMod: lastMod})
		}
	}
	w.stateMu.RUnlock()

	if len(stable) == 0 {
		return
	}

	type hashResult struct {
		stableFile
		hash    [32]byte
		size    int64
		removed bool
		err     error
	}
	results := make([]hashResult, len(stable))
	for i, sf := range stable {
		hash, size, err := HashFile(sf.path)
		r := hashResult{stableFile: sf, hash: hash, size: size}
		if errors.Is(err, os.ErrNotExist) {
			r.removed = true
		} else {
			r.err = err
		}
		results[i] = r
	}

	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	for _, r := range results {
		if current, ok := w.pending[r.path]; !ok || current != r.lastMod {
			continue
		}
		if r.err != nil {
			delete(w.pending, r.path)
			w.sendError(r.err)
			continue
		}

		prev, seen := w.hashes[r.path]
		switch {
		case r.removed && !seen:
			delete(w.pending, r.path)
			continue
		case !r.removed && seen && prev == r.hash:
			delete(w.pending, r.path)
			continue
		}

		event := Event{
			Path:      r.path,
			Hash:      r.hash,
			Size:      r.size,
			Removed:   r.removed,
			Timestamp: now,
		}
		select {
		case w.events <- event:
			delete(w.pending, r.path)
			if r.removed {
				delete(w.hashes, r.path)
			} else {
				w.hashes[r.path] = r.hash
			}
		default:
			// Channel full, retry on the next tick.
		}
	}
}

// HashFile computes the SHA-256 hash of a file.
func HashFile(path string) ([32]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return [32]byte{}, 0, err
	}

	var hash [32]byte
	copy(hash[:], h.Sum(nil))
	return hash, size, nil
}

// WatchedPaths returns the absolute paths being watched.
func (w *Watcher) WatchedPaths() []string {
	return w.paths
}

// PendingFiles returns the number of files with unreported activity.
func (w *Watcher) PendingFiles() int {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return len(w.pending)
}
