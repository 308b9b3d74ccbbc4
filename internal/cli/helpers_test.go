package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/cdoc/internal/indexer"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../../testdata/code/c"

// newProject creates a project root holding src/sample.c and
// src/with_class.cpp (11 symbols in total).
func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{"sample.c", "with_class.cpp"} {
		copyFixture(t, name, filepath.Join(root, "src", name))
	}
	return root
}

func copyFixture(t *testing.T, name, dst string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(fixtureDir, name))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0755))
	require.NoError(t, os.WriteFile(dst, data, 0644))
}

// testIndexerConfig indexes root with the disk cache turned off.
func testIndexerConfig(root string) *indexer.Config {
	cfg := indexer.DefaultConfig(root)
	cfg.CacheLocation = indexer.CacheDisabled
	cfg.Workers = 2
	return cfg
}

// indexProject runs a full index of root and returns the database path.
func indexProject(t *testing.T, root string) string {
	t.Helper()
	cfg := testIndexerConfig(root)
	require.NoError(t, executeIndex(context.Background(), cfg, &indexer.NoOpProgressReporter{}, false))
	return filepath.Join(root, cfg.DatabasePath)
}
