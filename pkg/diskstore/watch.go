package diskstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang-sql/civil"
)

const watchDelay = 100 * time.Millisecond

// WatchExternal notices files changed outside this process (another
// moodiary, a sync client, a text editor), rebuilds the id index and
// notifies subscribers. It returns once the watcher is running; the watch
// ends when ctx is done.
func (s *Store) WatchExternal(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("diskstore: create watcher: %w", err)
	}

	dirs, err := collectDirs(s.basePath)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("diskstore: enumerate directories: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("diskstore: watch %s: %w", dir, err)
		}
	}

	go func() {
		defer watcher.Close()

		watched := make(map[string]struct{}, len(dirs))
		for _, dir := range dirs {
			watched[dir] = struct{}{}
		}

		t := newThrottle(watchDelay, s.reload)
		defer t.stop()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watcher error", "error", err)
				t.poke()
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&fsnotify.Create == fsnotify.Create {
					if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
						dir := filepath.Clean(evt.Name)
						if _, found := watched[dir]; !found {
							if err := watcher.Add(dir); err != nil {
								s.logger.Warn("watch new directory", "dir", dir, "error", err)
							} else {
								watched[dir] = struct{}{}
							}
						}
					}
				}
				t.poke()
			}
		}
	}()
	return nil
}

// reload rebuilds the id index from disk and tells subscribers to re-query.
func (s *Store) reload() {
	s.mu.Lock()
	s.byID = make(map[int64]civil.Date)
	err := s.loadIndex()
	count := len(s.byID)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("reload after external change", "error", err)
	}
	s.logger.Debug("external change picked up", "entries", count)
	s.Notify()
}

func collectDirs(base string) ([]string, error) {
	dirs := []string{base}
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() && path != base {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

// throttle runs fn once per burst of pokes, delay after the first one.
type throttle struct {
	mu    sync.Mutex
	timer *time.Timer
	delay time.Duration
	fn    func()
}

func newThrottle(delay time.Duration, fn func()) *throttle {
	return &throttle{delay: delay, fn: fn}
}

func (t *throttle) poke() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		return
	}
	t.timer = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		t.timer = nil
		t.mu.Unlock()
		t.fn()
	})
}

func (t *throttle) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
