package parsers

import (
	"context"
	"strings"

	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
)

// Backend names accepted by configuration.
const (
	BackendHeuristic  = "heuristic"
	BackendTreeSitter = "treesitter"
)

// FileExtraction is the extraction result for one source file.
type FileExtraction struct {
	Inventory *extraction.Inventory

	// Metadata about the extraction
	Language  string
	FilePath  string
	Backend   string
	StartLine int
	EndLine   int
}

// Extractor turns one source buffer into an inventory.
type Extractor interface {
	// Name returns the backend name recorded on results.
	Name() string

	// ParseSource extracts the declarations of source. filePath is only
	// recorded; the source is never read from disk.
	ParseSource(ctx context.Context, filePath, language string, source []byte) (*FileExtraction, error)
}

// Options tunes comment handling. Both backends share it.
type Options struct {
	// MaxBlankLines is the number of blank lines tolerated between a doc
	// comment and its declaration.
	MaxBlankLines int

	// MergeLineComments joins runs of line comments on consecutive lines.
	MergeLineComments bool
}

// DefaultOptions returns the options used when configuration is silent.
func DefaultOptions() Options {
	return Options{MaxBlankLines: 1, MergeLineComments: true}
}

// NewFileExtraction wraps inv with the metadata of the file it came from.
func NewFileExtraction(filePath, language, backend string, source []byte, inv *extraction.Inventory) *FileExtraction {
	return &FileExtraction{
		Inventory: inv,
		Language:  language,
		FilePath:  filePath,
		Backend:   backend,
		StartLine: 1,
		EndLine:   strings.Count(string(source), "\n") + 1,
	}
}
