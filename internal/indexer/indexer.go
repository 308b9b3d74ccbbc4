package indexer

import (
	"context"

	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
	"github.com/mvp-joe/cdoc/internal/indexer/parsers"
)

// Indexer provides the main interface for indexing a C/C++ codebase.
type Indexer interface {
	// Index discovers, extracts and stores every source file, removing
	// stored files that no longer exist. Returns statistics about the run.
	Index(ctx context.Context) (*Stats, error)

	// IndexFiles re-extracts the given paths (absolute or relative to the
	// root). Paths that no longer exist or no longer match are removed.
	IndexFiles(ctx context.Context, paths []string) (*Stats, error)

	// Watch starts watching for file changes and reindexes incrementally.
	// Blocks until context is cancelled.
	Watch(ctx context.Context) error

	// Close releases all resources held by the indexer.
	Close() error
}

// Parser extracts an inventory from an in-memory source file.
type Parser interface {
	// ParseSource extracts the declarations of source. filePath is only
	// recorded on the result.
	ParseSource(ctx context.Context, filePath, language string, source []byte) (*parsers.FileExtraction, error)

	// SupportsLanguage checks if this parser supports the given language.
	SupportsLanguage(language string) bool
}

// Formatter renders inventories for humans and tools.
type Formatter interface {
	// FormatMarkdown renders a heading per file and a nested bullet list.
	FormatMarkdown(path string, inv *extraction.Inventory) string

	// FormatJSON renders flattened records with parent indices.
	FormatJSON(path string, inv *extraction.Inventory) ([]byte, error)
}

// Config contains configuration for the indexer.
type Config struct {
	// Root directory of the codebase to index
	RootDir string

	// Paths configuration
	IncludePatterns []string
	IgnorePatterns  []string
	IgnoreFile      string

	// Extraction configuration
	Backend           string
	MaxBlankLines     int
	MergeLineComments bool

	// Worker pool size, 0 means GOMAXPROCS
	Workers int

	// Storage configuration
	DatabasePath  string
	CacheLocation string // "" means ~/.cdoc/cache, "off" disables the disk cache
	CacheSize     int

	Verbose bool
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig(rootDir string) *Config {
	opts := parsers.DefaultOptions()
	return &Config{
		RootDir: rootDir,
		IncludePatterns: []string{
			"**/*.c",
			"**/*.h",
			"**/*.cpp",
			"**/*.cc",
			"**/*.cxx",
			"**/*.hpp",
			"**/*.hh",
			"**/*.hxx",
		},
		IgnorePatterns: []string{
			".git/**",
			"build/**",
			"vendor/**",
			"node_modules/**",
		},
		IgnoreFile:        ".cdocignore",
		Backend:           parsers.BackendHeuristic,
		MaxBlankLines:     opts.MaxBlankLines,
		MergeLineComments: opts.MergeLineComments,
		DatabasePath:      ".cdoc/inventory.db",
		CacheSize:         10000,
	}
}

// ExtractOptions returns the comment handling options for both backends.
func (c *Config) ExtractOptions() parsers.Options {
	return parsers.Options{
		MaxBlankLines:     c.MaxBlankLines,
		MergeLineComments: c.MergeLineComments,
	}
}
