package config

import (
	"path/filepath"

	"github.com/mvp-joe/cdoc/internal/indexer"
)

// ToIndexerConfig converts a Config to an indexer.Config.
// The rootDir parameter specifies the root directory of the codebase to index.
func (c *Config) ToIndexerConfig(rootDir string) *indexer.Config {
	dbPath := c.Storage.Database
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(rootDir, dbPath)
	}

	return &indexer.Config{
		RootDir:           rootDir,
		IncludePatterns:   c.Paths.Include,
		IgnorePatterns:    c.Paths.Ignore,
		IgnoreFile:        c.Paths.IgnoreFile,
		Backend:           c.Extraction.Backend,
		MaxBlankLines:     c.Extraction.MaxBlankLines,
		MergeLineComments: c.Extraction.MergeLineComments,
		Workers:           c.Processing.Workers,
		DatabasePath:      dbPath,
		CacheLocation:     c.Storage.CacheLocation,
		CacheSize:         c.Storage.CacheSize,
		Verbose:           c.Logging.Verbose,
	}
}
