package cache

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// EvictionPolicy controls which disk entries get pruned.
type EvictionPolicy struct {
	MaxAgeDays int     // Delete entries not used for this long (default: 30)
	MaxSizeMB  float64 // Delete least recently used until under this (default: 500)
}

// DefaultEvictionPolicy returns the default eviction policy.
func DefaultEvictionPolicy() EvictionPolicy {
	return EvictionPolicy{
		MaxAgeDays: 30,
		MaxSizeMB:  500,
	}
}

// EvictionResult contains statistics about an eviction run.
type EvictionResult struct {
	EvictedEntries int     // Number of entry files removed
	FreedMB        float64 // Total size freed in MB
	RemainingMB    float64 // Total size after eviction
	Duration       time.Duration
}

// evictionCandidate is one stored entry file.
type evictionCandidate struct {
	path     string
	lastUsed time.Time
	sizeMB   float64
}

// Evict prunes stored entries. An entry's last use is its modification
// time, which Put sets and Get refreshes.
//
// Eviction criteria (in order):
//  1. Entries unused for longer than MaxAgeDays
//  2. Least recently used entries while the total exceeds MaxSizeMB
//
// A zero limit disables that criterion.
func (s *DiskStore) Evict(policy EvictionPolicy) (*EvictionResult, error) {
	startTime := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	candidates, totalMB, err := s.listEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}

	// Oldest first
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastUsed.Before(candidates[j].lastUsed)
	})

	result := &EvictionResult{}
	for _, candidate := range candidates {
		shouldEvict := false

		// Reason 1: not used in MaxAgeDays
		if policy.MaxAgeDays > 0 {
			age := time.Since(candidate.lastUsed)
			if age > time.Duration(policy.MaxAgeDays)*24*time.Hour {
				shouldEvict = true
			}
		}

		// Reason 2: cache too large (evict oldest)
		if !shouldEvict && policy.MaxSizeMB > 0 && totalMB > policy.MaxSizeMB {
			shouldEvict = true
		}

		if !shouldEvict {
			continue
		}

		if err := os.Remove(candidate.path); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: Failed to evict cache entry %s: %v", candidate.path, err)
			continue
		}
		result.EvictedEntries++
		result.FreedMB += candidate.sizeMB
		totalMB -= candidate.sizeMB
	}

	result.RemainingMB = totalMB
	result.Duration = time.Since(startTime)
	return result, nil
}

// listEntries returns every entry file and their combined size in MB.
func (s *DiskStore) listEntries() ([]evictionCandidate, float64, error) {
	root := filepath.Join(s.dir, "entries")
	var candidates []evictionCandidate
	var totalMB float64

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".mp") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		sizeMB := float64(info.Size()) / (1024 * 1024)
		totalMB += sizeMB
		candidates = append(candidates, evictionCandidate{
			path:     path,
			lastUsed: info.ModTime(),
			sizeMB:   sizeMB,
		})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return candidates, totalMB, nil
}
