package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvp-joe/cdoc/internal/cache"
	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
	"github.com/mvp-joe/cdoc/internal/storage"
)

// CacheDisabled turns off the on-disk result cache when used as
// Config.CacheLocation.
const CacheDisabled = "off"

// indexer implements the Indexer interface.
type indexer struct {
	config    *Config
	discovery *FileDiscovery
	parser    Parser
	processor Processor
	cache     *cache.Cache
	db        *sql.DB
	writer    *storage.FileWriter
	reader    *storage.FileReader
	progress  ProgressReporter
}

// New creates a new indexer instance.
func New(config *Config) (Indexer, error) {
	return NewWithProgress(config, &NoOpProgressReporter{})
}

// NewWithProgress creates a new indexer instance with a custom progress reporter.
func NewWithProgress(config *Config, progress ProgressReporter) (Indexer, error) {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}

	discovery, err := NewFileDiscovery(config.RootDir, config.IncludePatterns, config.IgnorePatterns, config.IgnoreFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	resultCache, err := openCache(config)
	if err != nil {
		return nil, err
	}

	dbPath := config.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(config.RootDir, dbPath)
	}
	db, err := storage.Open(dbPath, false)
	if err != nil {
		resultCache.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	parser := NewParser(config.Backend, config.ExtractOptions())
	fingerprint := cache.Fingerprint(strings.ToLower(config.Backend), config.MaxBlankLines, config.MergeLineComments)

	return &indexer{
		config:    config,
		discovery: discovery,
		parser:    parser,
		processor: NewProcessor(parser, resultCache, fingerprint, config.Workers, config.Verbose, progress),
		cache:     resultCache,
		db:        db,
		writer:    storage.NewFileWriter(db),
		reader:    storage.NewFileReader(db),
		progress:  progress,
	}, nil
}

func openCache(config *Config) (*cache.Cache, error) {
	size := config.CacheSize
	if size <= 0 {
		size = DefaultConfig(config.RootDir).CacheSize
	}

	opts := cache.Options{Size: size}
	if config.CacheLocation != CacheDisabled {
		dir, err := cache.ResolveDir(config.CacheLocation)
		if err != nil {
			return nil, err
		}
		opts.Dir = dir
	}

	c, err := cache.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return c, nil
}

// Index performs full indexing of all source files.
func (idx *indexer) Index(ctx context.Context) (*Stats, error) {
	startTime := time.Now()

	run, err := storage.StartRun(idx.db, idx.config.RootDir, idx.config.Backend)
	if err != nil {
		return nil, err
	}
	stats := &Stats{RunID: run.ID}

	// Discover files
	phaseStart := time.Now()
	idx.progress.OnDiscoveryStart()
	files, err := idx.discovery.DiscoverFiles()
	if err != nil {
		return nil, idx.abort(run, stats, fmt.Errorf("failed to discover files: %w", err))
	}
	stats.FilesDiscovered = len(files)
	idx.progress.OnDiscoveryComplete(len(files))
	log.Printf("[TIMING] Discover files: %v (%d files)\n", time.Since(phaseStart), len(files))

	results, err := idx.processor.ProcessFiles(ctx, files)
	if err != nil {
		return nil, idx.abort(run, stats, err)
	}

	phaseStart = time.Now()
	idx.progress.OnWritingResults()
	if err := idx.writeResults(run.ID, results, stats); err != nil {
		return nil, idx.abort(run, stats, err)
	}

	// Remove files that disappeared since the previous run
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.RelPath] = true
	}
	stored, err := idx.reader.GetFileHashes()
	if err != nil {
		return nil, idx.abort(run, stats, err)
	}
	for path := range stored {
		if seen[path] {
			continue
		}
		if err := idx.writer.DeleteFile(path); err != nil {
			return nil, idx.abort(run, stats, err)
		}
		stats.FilesRemoved++
	}
	log.Printf("[TIMING] Write results: %v\n", time.Since(phaseStart))

	stats.Duration = time.Since(startTime)
	if err := idx.finishRun(run, stats); err != nil {
		return nil, err
	}

	log.Printf("✓ Indexed %d files (%d cached, %d failed, %d removed): %d symbols, %d truncated in %v\n",
		stats.FilesExtracted, stats.FilesCached, stats.FilesFailed, stats.FilesRemoved,
		stats.Symbols, stats.Truncated, stats.Duration)
	idx.progress.OnComplete(stats)
	return stats, nil
}

// IndexFiles re-extracts only the given files.
func (idx *indexer) IndexFiles(ctx context.Context, paths []string) (*Stats, error) {
	startTime := time.Now()

	run, err := storage.StartRun(idx.db, idx.config.RootDir, idx.config.Backend)
	if err != nil {
		return nil, err
	}
	stats := &Stats{RunID: run.ID}

	var files []SourceFile
	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(idx.config.RootDir, p)
		}
		rel, err := filepath.Rel(idx.config.RootDir, abs)
		if err != nil {
			log.Printf("Warning: %s is outside %s: %v", p, idx.config.RootDir, err)
			continue
		}
		rel = filepath.ToSlash(rel)

		if info, err := os.Stat(abs); err == nil && !info.IsDir() && idx.discovery.Matches(rel) {
			if binary, err := IsBinary(abs); err == nil && !binary {
				files = append(files, SourceFile{Path: abs, RelPath: rel, Language: DetectLanguage(rel)})
				continue
			}
		}

		// Gone, ignored or binary: drop whatever was stored.
		existing, err := idx.reader.GetFileStats(rel)
		if err != nil {
			return nil, idx.abort(run, stats, err)
		}
		if existing != nil {
			if err := idx.writer.DeleteFile(rel); err != nil {
				return nil, idx.abort(run, stats, err)
			}
			stats.FilesRemoved++
		}
	}
	stats.FilesDiscovered = len(files)

	results, err := idx.processor.ProcessFiles(ctx, files)
	if err != nil {
		return nil, idx.abort(run, stats, err)
	}
	if err := idx.writeResults(run.ID, results, stats); err != nil {
		return nil, idx.abort(run, stats, err)
	}

	stats.Duration = time.Since(startTime)
	if err := idx.finishRun(run, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// writeResults stores successful results and logs failures. A failed file
// keeps whatever inventory was stored for it before.
func (idx *indexer) writeResults(runID string, results []*FileResult, stats *Stats) error {
	now := time.Now().UTC()
	for _, r := range results {
		stats.add(r)
		if !r.Succeeded() {
			log.Printf("Warning: %v\n", r.Err)
			continue
		}

		fe := r.Extraction
		fileStats := &storage.FileStats{
			FilePath:       r.File.RelPath,
			Language:       r.File.Language,
			Backend:        fe.Backend,
			FileHash:       r.Hash,
			SizeBytes:      r.Size,
			LineCount:      fe.EndLine,
			SymbolCount:    r.SymbolCount(),
			TruncatedCount: r.TruncatedCount(),
			RunID:          runID,
			IndexedAt:      now,
		}
		if err := idx.writer.WriteFile(fileStats, extraction.Flatten(fe.Inventory)); err != nil {
			return fmt.Errorf("failed to store %s: %w", r.File.RelPath, err)
		}
	}
	return nil
}

func (idx *indexer) finishRun(run *storage.Run, stats *Stats) error {
	return storage.FinishRun(idx.db, idx.fillRun(run, stats))
}

// fillRun copies the counters of stats onto run.
func (idx *indexer) fillRun(run *storage.Run, stats *Stats) *storage.Run {
	run.FilesDiscovered = stats.FilesDiscovered
	run.FilesExtracted = stats.FilesExtracted
	run.FilesFailed = stats.FilesFailed
	run.FilesCached = stats.FilesCached
	run.FilesRemoved = stats.FilesRemoved
	run.SymbolCount = stats.Symbols
	run.TruncatedCount = stats.Truncated
	return run
}

// abort records the run as failed and returns cause. A failure to record it
// is logged so cause is not masked.
func (idx *indexer) abort(run *storage.Run, stats *Stats, cause error) error {
	if err := storage.FailRun(idx.db, idx.fillRun(run, stats), cause); err != nil {
		log.Printf("Warning: %v\n", err)
	}
	return cause
}

// Watch starts watching for file changes and reindexes incrementally.
func (idx *indexer) Watch(ctx context.Context) error {
	w, err := NewIndexerWatcher(idx, idx.config.RootDir)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.Start(ctx)
	defer w.Stop()

	<-ctx.Done()
	return nil
}

// Close releases all resources held by the indexer.
func (idx *indexer) Close() error {
	idx.cache.Close()
	if err := idx.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
