package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last event
// before reindexing.
const DefaultDebounce = 500 * time.Millisecond

// IndexerWatcher watches the root directory for file changes and triggers incremental reindexing.
type IndexerWatcher struct {
	indexer      *indexer
	rootDir      string
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
	started      atomic.Bool
	onReindex    func(*Stats)
}

// NewIndexerWatcher creates a new file watcher for the indexer.
func NewIndexerWatcher(idx Indexer, rootDir string) (*IndexerWatcher, error) {
	indexerImpl, ok := idx.(*indexer)
	if !ok {
		return nil, fmt.Errorf("watch requires the built-in indexer, got %T", idx)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	iw := &IndexerWatcher{
		indexer:      indexerImpl,
		rootDir:      rootDir,
		watcher:      watcher,
		debounceTime: DefaultDebounce,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	// Add directories to watcher recursively
	if err := iw.addDirectoriesRecursively(rootDir); err != nil {
		watcher.Close()
		return nil, err
	}

	return iw, nil
}

// Start begins watching for file changes.
func (iw *IndexerWatcher) Start(ctx context.Context) {
	if iw.started.CompareAndSwap(false, true) {
		go iw.watch(ctx)
	}
}

// Stop stops the file watcher. It may be called without Start.
func (iw *IndexerWatcher) Stop() {
	iw.stopOnce.Do(func() {
		close(iw.stopCh)
		if iw.started.Load() {
			<-iw.doneCh
		}
		iw.watcher.Close()
	})
}

// watch is the main event loop with debouncing logic.
func (iw *IndexerWatcher) watch(ctx context.Context) {
	defer close(iw.doneCh)

	var debounceTimer *time.Timer
	reindexCh := make(chan struct{}, 1)
	changedFiles := make(map[string]bool) // relative paths pending reindex

	for {
		select {
		case <-ctx.Done():
			// Context cancellation - clean shutdown
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-iw.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}

			// New directories are watched, and files that landed in them
			// before the watch was added are picked up by the walk.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !iw.shouldWatchDirectory(event.Name) {
						continue
					}
					added := iw.watchNewDirectory(event.Name)
					if len(added) == 0 {
						continue
					}
					for _, rel := range added {
						changedFiles[rel] = true
					}
					iw.resetTimer(&debounceTimer, reindexCh)
					continue
				}
			}

			if !iw.shouldProcessEvent(event) {
				continue
			}

			relPath, _ := filepath.Rel(iw.rootDir, event.Name)
			changedFiles[filepath.ToSlash(relPath)] = true
			iw.resetTimer(&debounceTimer, reindexCh)

		case <-reindexCh:
			// Execute incremental reindex
			iw.triggerReindex(ctx, changedFiles)
			// Clear changed files map for next batch
			changedFiles = make(map[string]bool)

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// resetTimer restarts the debounce window.
func (iw *IndexerWatcher) resetTimer(timer **time.Timer, reindexCh chan struct{}) {
	if *timer != nil {
		(*timer).Stop()
	}
	*timer = time.AfterFunc(iw.debounceTime, func() {
		// Send reindex signal (non-blocking)
		select {
		case reindexCh <- struct{}{}:
		default:
		}
	})
}

// watchNewDirectory adds dir to the watcher and returns the source files
// already inside it.
func (iw *IndexerWatcher) watchNewDirectory(dir string) []string {
	if err := iw.addDirectoriesRecursively(dir); err != nil {
		log.Printf("Warning: failed to watch new directory %s: %v", dir, err)
	}

	var found []string
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(iw.rootDir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if iw.indexer.discovery.Matches(rel) {
			found = append(found, rel)
		}
		return nil
	})
	return found
}

// triggerReindex re-extracts the changed files and drops removed ones.
func (iw *IndexerWatcher) triggerReindex(ctx context.Context, changedFiles map[string]bool) {
	if len(changedFiles) == 0 {
		return
	}

	fileList := make([]string, 0, len(changedFiles))
	for file := range changedFiles {
		fileList = append(fileList, file)
	}
	sort.Strings(fileList)

	log.Printf("Reindexing due to changes in %d file(s)...", len(fileList))
	start := time.Now()

	stats, err := iw.indexer.IndexFiles(ctx, fileList)
	if err != nil {
		log.Printf("Error during incremental reindex: %v", err)
		return
	}

	log.Printf("Reindex complete in %v (%d extracted, %d removed, %d symbols, %d truncated)",
		time.Since(start), stats.FilesExtracted, stats.FilesRemoved, stats.Symbols, stats.Truncated)
	if iw.onReindex != nil {
		iw.onReindex(stats)
	}
}

// shouldProcessEvent checks if an event should trigger reindexing.
func (iw *IndexerWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	// Only care about WRITE, CREATE, REMOVE and RENAME events
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	// Get relative path for pattern matching
	relPath, err := filepath.Rel(iw.rootDir, event.Name)
	if err != nil {
		return false
	}

	// Normalize path separators for glob matching
	relPath = filepath.ToSlash(relPath)

	// Removed paths can no longer be inspected, so only the patterns count
	return iw.indexer.discovery.Matches(relPath)
}

// shouldWatchDirectory checks if a directory should be watched.
func (iw *IndexerWatcher) shouldWatchDirectory(path string) bool {
	relPath, err := filepath.Rel(iw.rootDir, path)
	if err != nil {
		return false
	}

	// Normalize path separators for glob matching
	relPath = filepath.ToSlash(relPath)

	// Don't watch if it matches ignore patterns
	return !iw.indexer.discovery.shouldIgnore(relPath, true)
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (iw *IndexerWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Log but continue - don't fail the entire watch for one directory
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}

		// Only add directories
		if !info.IsDir() {
			return nil
		}

		// Check if directory should be watched
		if !iw.shouldWatchDirectory(path) {
			return filepath.SkipDir
		}

		// Add directory to watcher
		if err := iw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
			return nil // Continue anyway
		}

		return nil
	})
}
