package cache

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/maypok86/otter"
	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
)

// entrySchema is bumped whenever Entry or extraction.Record change shape.
const entrySchema uint16 = 2

// Entry is one cached extraction result.
type Entry struct {
	Schema     uint16              `msgpack:"schema"`
	Language   string              `msgpack:"language"`
	Backend    string              `msgpack:"backend"`
	SourceSize int                 `msgpack:"source_size"`
	Records    []extraction.Record `msgpack:"records"`
}

// NewEntry flattens inv into a cache entry.
func NewEntry(language, backend string, inv *extraction.Inventory) *Entry {
	return &Entry{
		Schema:     entrySchema,
		Language:   language,
		Backend:    backend,
		SourceSize: inv.SourceSize,
		Records:    extraction.Flatten(inv),
	}
}

// Inventory rebuilds the inventory stored in the entry.
func (e *Entry) Inventory() (*extraction.Inventory, error) {
	return extraction.Unflatten(e.Records, e.SourceSize)
}

// Options configures a Cache.
type Options struct {
	// Size is the number of entries kept in memory.
	Size int

	// Dir is the on-disk cache directory. Empty disables the disk layer.
	Dir string
}

// Stats counts cache lookups.
type Stats struct {
	Hits     int64
	DiskHits int64
	Misses   int64
}

// Cache is a two-level extraction cache: an in-memory otter cache in front of
// a msgpack disk store. Safe for concurrent use.
type Cache struct {
	memory otter.Cache[string, *Entry]
	disk   *DiskStore

	hits     atomic.Int64
	diskHits atomic.Int64
	misses   atomic.Int64
}

// New creates a cache.
func New(opts Options) (*Cache, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", opts.Size)
	}

	memory, err := otter.MustBuilder[string, *Entry](opts.Size).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build memory cache: %w", err)
	}

	c := &Cache{memory: memory}
	if opts.Dir != "" {
		disk, err := OpenDiskStore(opts.Dir)
		if err != nil {
			memory.Close()
			return nil, err
		}
		c.disk = disk
	}
	return c, nil
}

// Get returns the entry for key. Disk hits are promoted to memory. Entries
// written by an older schema are treated as misses.
func (c *Cache) Get(key string) (*Entry, bool) {
	if entry, ok := c.memory.Get(key); ok {
		c.hits.Add(1)
		return entry, true
	}

	if c.disk != nil {
		entry, ok, err := c.disk.Get(key)
		if err != nil {
			log.Printf("Warning: failed to read cache entry %s: %v", key, err)
		}
		if ok && entry.Schema == entrySchema {
			c.memory.Set(key, entry)
			c.diskHits.Add(1)
			return entry, true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Put stores entry in memory and, when enabled, on disk.
func (c *Cache) Put(key string, entry *Entry) error {
	c.memory.Set(key, entry)
	if c.disk == nil {
		return nil
	}
	if err := c.disk.Put(key, entry); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Stats returns lookup counters since creation.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		DiskHits: c.diskHits.Load(),
		Misses:   c.misses.Load(),
	}
}

// Close releases the memory cache.
func (c *Cache) Close() {
	c.memory.Close()
}

// ResolveDir returns the disk cache directory for a configured location.
// Empty means ~/.cdoc/cache; a leading ~ is expanded.
func ResolveDir(location string) (string, error) {
	if location == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, ".cdoc", "cache"), nil
	}
	return expandPath(location), nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
