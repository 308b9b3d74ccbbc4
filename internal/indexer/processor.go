package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/cdoc/internal/cache"
	"github.com/mvp-joe/cdoc/internal/indexer/parsers"
)

// Processor handles the read → hash → cache → extract pipeline.
type Processor interface {
	// ProcessFiles extracts every file on a bounded worker pool. Results
	// keep the order of files. Per-file failures are recorded on the result;
	// only context cancellation returns an error.
	ProcessFiles(ctx context.Context, files []SourceFile) ([]*FileResult, error)
}

// processor implements Processor interface.
type processor struct {
	parser      Parser
	cache       *cache.Cache // optional
	fingerprint string
	workers     int
	verbose     bool
	progress    ProgressReporter
}

// NewProcessor creates a new Processor instance. A nil cache disables
// caching; workers <= 0 means GOMAXPROCS.
func NewProcessor(
	parser Parser,
	resultCache *cache.Cache,
	fingerprint string,
	workers int,
	verbose bool,
	progress ProgressReporter,
) Processor {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &processor{
		parser:      parser,
		cache:       resultCache,
		fingerprint: fingerprint,
		workers:     workers,
		verbose:     verbose,
		progress:    progress,
	}
}

// ProcessFiles processes a list of files through the extraction pipeline.
func (p *processor) ProcessFiles(ctx context.Context, files []SourceFile) ([]*FileResult, error) {
	results := make([]*FileResult, len(files))
	if len(files) == 0 {
		return results, nil
	}

	startTime := time.Now()
	p.progress.OnFileProcessingStart(len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.processFile(gctx, file)
			p.progress.OnFileProcessed(file.RelPath)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Workers may all have finished before noticing a late cancellation.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Printf("[TIMING] Process source files: %v (%d files, %d workers)\n",
		time.Since(startTime), len(files), p.workers)
	return results, nil
}

// processFile reads, hashes and extracts one file, consulting the cache.
func (p *processor) processFile(ctx context.Context, file SourceFile) *FileResult {
	result := &FileResult{File: file}

	source, err := os.ReadFile(file.Path)
	if err != nil {
		result.Err = fmt.Errorf("failed to read %s: %w", file.RelPath, err)
		return result
	}
	result.Size = int64(len(source))
	result.Hash = cache.HashContent(source)

	key := cache.Key(result.Hash, file.Language, p.fingerprint)
	if p.cache != nil {
		if entry, ok := p.cache.Get(key); ok {
			inv, err := entry.Inventory()
			if err == nil {
				result.Extraction = parsers.NewFileExtraction(file.RelPath, file.Language, entry.Backend, source, inv)
				result.Cached = true
				if p.verbose {
					log.Printf("  cached %s (%d symbols)", file.RelPath, inv.Count())
				}
				return result
			}
			log.Printf("Warning: discarding corrupt cache entry for %s: %v", file.RelPath, err)
		}
	}

	extraction, err := p.parser.ParseSource(ctx, file.RelPath, file.Language, source)
	if err != nil {
		result.Err = fmt.Errorf("failed to extract %s: %w", file.RelPath, err)
		return result
	}
	result.Extraction = extraction

	if p.cache != nil {
		entry := cache.NewEntry(file.Language, extraction.Backend, extraction.Inventory)
		if err := p.cache.Put(key, entry); err != nil {
			log.Printf("Warning: failed to cache %s: %v", file.RelPath, err)
		}
	}

	if p.verbose {
		log.Printf("  extracted %s (%d symbols, %d truncated)",
			file.RelPath, extraction.Inventory.Count(), extraction.Inventory.TruncatedCount())
	}
	return result
}
