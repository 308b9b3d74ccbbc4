package mcp

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloadable is an interface for components that can be reloaded.
type Reloadable interface {
	Reload(ctx context.Context) error
}

// DatabaseWatcher reloads a component whenever the inventory database (or
// its -wal/-journal sidecars) changes.
type DatabaseWatcher struct {
	reloadable   Reloadable
	dbName       string
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
	started      atomic.Bool
	onReload     func(error)
}

// NewDatabaseWatcher watches the directory containing dbPath.
func NewDatabaseWatcher(reloadable Reloadable, dbPath string) (*DatabaseWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(dbPath)); err != nil {
		watcher.Close()
		return nil, err
	}

	return &DatabaseWatcher{
		reloadable:   reloadable,
		dbName:       filepath.Base(dbPath),
		watcher:      watcher,
		debounceTime: 500 * time.Millisecond,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins watching for file changes.
func (dw *DatabaseWatcher) Start(ctx context.Context) {
	if dw.started.CompareAndSwap(false, true) {
		go dw.watch(ctx)
	}
}

// Stop stops the watcher. It may be called without Start.
func (dw *DatabaseWatcher) Stop() {
	dw.stopOnce.Do(func() {
		close(dw.stopCh)
		if dw.started.Load() {
			<-dw.doneCh
		}
		dw.watcher.Close()
	})
}

// watch is the main event loop with debouncing logic.
func (dw *DatabaseWatcher) watch(ctx context.Context) {
	defer close(dw.doneCh)

	var debounceTimer *time.Timer
	reloadCh := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-dw.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if !dw.isDatabaseEvent(event) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(dw.debounceTime, func() {
				// Send reload signal (non-blocking)
				select {
				case reloadCh <- struct{}{}:
				default:
				}
			})

		case <-reloadCh:
			dw.triggerReload(ctx)

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Database watcher error: %v", err)
		}
	}
}

// isDatabaseEvent reports whether event touches the database file.
func (dw *DatabaseWatcher) isDatabaseEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	return strings.HasPrefix(filepath.Base(event.Name), dw.dbName)
}

// triggerReload reloads the component, keeping the old state on failure.
func (dw *DatabaseWatcher) triggerReload(ctx context.Context) {
	log.Printf("Reloading symbol index...")
	start := time.Now()

	err := dw.reloadable.Reload(ctx)
	if err != nil {
		log.Printf("Error reloading: %v (keeping old state)", err)
	} else {
		log.Printf("Reloaded successfully in %v", time.Since(start))
	}
	if dw.onReload != nil {
		dw.onReload(err)
	}
}
