package indexer

import (
	"time"

	"github.com/mvp-joe/cdoc/internal/indexer/parsers"
)

// SourceFile is a discovered C or C++ source file.
type SourceFile struct {
	Path     string // absolute path
	RelPath  string // slash-separated, relative to the root
	Language string // "c" or "cpp"
}

// FileResult is the outcome of extracting one file.
type FileResult struct {
	File       SourceFile
	Extraction *parsers.FileExtraction // nil when Err is set
	Hash       string                  // SHA-256 of the content
	Size       int64
	Cached     bool
	Err        error
}

// Succeeded reports whether extraction produced an inventory.
func (r *FileResult) Succeeded() bool {
	return r.Err == nil && r.Extraction != nil
}

// SymbolCount returns the number of entries extracted, nested included.
func (r *FileResult) SymbolCount() int {
	if !r.Succeeded() {
		return 0
	}
	return r.Extraction.Inventory.Count()
}

// TruncatedCount returns the number of entries flagged as truncated.
func (r *FileResult) TruncatedCount() int {
	if !r.Succeeded() {
		return 0
	}
	return r.Extraction.Inventory.TruncatedCount()
}

// Stats tracks what an index run did.
type Stats struct {
	RunID           string
	FilesDiscovered int
	FilesExtracted  int
	FilesFailed     int
	FilesCached     int
	FilesRemoved    int
	Symbols         int
	Truncated       int
	Duration        time.Duration
}

// add folds one file result into the counters.
func (s *Stats) add(r *FileResult) {
	if !r.Succeeded() {
		s.FilesFailed++
		return
	}
	s.FilesExtracted++
	if r.Cached {
		s.FilesCached++
	}
	s.Symbols += r.SymbolCount()
	s.Truncated += r.TruncatedCount()
}
