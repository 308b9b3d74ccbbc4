package cli

// Test Plan for index:
// - executeIndex stores every discovered file and reports progress
// - A second run over an unchanged project keeps the same inventory
// - Watch mode returns cleanly once the context is cancelled
// - An invalid include pattern fails before any work is done

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mvp-joe/cdoc/internal/indexer"
	"github.com/mvp-joe/cdoc/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteIndex(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	var out bytes.Buffer
	progress := newProgressReporter(&out, false, false)

	cfg := testIndexerConfig(root)
	require.NoError(t, executeIndex(context.Background(), cfg, progress, false))
	assert.Contains(t, out.String(), "✓ Indexing complete: 11 symbols from 2 files")

	db, err := storage.Open(filepath.Join(root, cfg.DatabasePath), true)
	require.NoError(t, err)
	defer db.Close()

	files, err := storage.NewFileReader(db).GetAllFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "src/sample.c", files[0].FilePath)
	assert.Equal(t, "src/with_class.cpp", files[1].FilePath)
}

func TestExecuteIndex_Reindex(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	dbPath := indexProject(t, root)
	indexProject(t, root)

	var out bytes.Buffer
	require.NoError(t, executeStatus(&out, dbPath, false))
	assert.Contains(t, out.String(), "Files:        2 (c: 1, cpp: 1)")
	assert.Contains(t, out.String(), "Symbols:      11")
}

func TestExecuteIndex_WatchStopsOnCancel(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- executeIndex(ctx, testIndexerConfig(root), &indexer.NoOpProgressReporter{}, true)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		// Cancelling during the initial index is also a clean stop.
		if err != nil {
			assert.Contains(t, err.Error(), "cancelled")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("watch mode did not stop")
	}
}

func TestExecuteIndex_InvalidPattern(t *testing.T) {
	t.Parallel()

	cfg := testIndexerConfig(t.TempDir())
	cfg.IncludePatterns = []string{"[unclosed"}

	err := executeIndex(context.Background(), cfg, &indexer.NoOpProgressReporter{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create indexer")
}
