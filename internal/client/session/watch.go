package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reconcileDebounce = 100 * time.Millisecond

// Watch reconciles the store whenever the database at dbPath is modified by
// another process. It returns once the watcher is running; the watcher stops
// when ctx is done.
func (s *Store) Watch(ctx context.Context, dbPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	abs, err := filepath.Abs(dbPath)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("resolve %s: %w", dbPath, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	s.log.Debug(ctx, "watching session database", "path", abs)
	go s.watchLoop(ctx, watcher, filepath.Base(abs))
	return nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, base string) {
	defer watcher.Close()

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// sqlite also writes <db>-wal and <db>-journal next to the main file.
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reconcileDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				if _, err := s.Reconcile(ctx); err != nil {
					s.log.Error(ctx, "failed to reconcile session after external change", "error", err)
				}
			})
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Error(ctx, "session watcher error", "error", err)
		}
	}
}
