package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// DiskStore keeps msgpack-encoded entries under a directory, one file per
// key. Writes go through a temp file and an atomic rename.
type DiskStore struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskStore creates dir if needed and returns a store rooted there.
func OpenDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) pathFor(key string) string {
	prefix := key
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(s.dir, "entries", prefix, key+".mp")
}

// Put serializes and writes entry.
func (s *DiskStore) Put(key string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := msgpack.NewEncoder(f).Encode(entry); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Get reads and deserializes the entry for key. A missing file is reported
// as ok == false without an error.
func (s *DiskStore) Get(key string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.pathFor(key)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var entry Entry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return nil, false, err
	}

	// Mark as recently used for Evict.
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return &entry, true, nil
}

// DropAll removes every stored entry.
func (s *DiskStore) DropAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := filepath.Join(s.dir, "entries")
	old := entries + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(entries, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}
