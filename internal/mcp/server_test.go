package mcp

// Test Plan for MCPServer:
// - NewMCPServer opens an indexed project and indexes its symbols
// - NewMCPServer fails with ErrDatabaseNotFound before the first index
// - Close releases a server that was never served
// - ResolveDatabasePath keeps absolute paths and joins relative ones

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mvp-joe/cdoc/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMCPServer(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	dbPath := filepath.Join(project, ".cdoc", "inventory.db")

	db, err := storage.Open(dbPath, false)
	require.NoError(t, err)
	seedFixtures(t, db)
	require.NoError(t, db.Close())

	s, err := NewMCPServer(context.Background(), &MCPServerConfig{
		ProjectPath:  project,
		DatabasePath: ".cdoc/inventory.db",
	}, "test")
	require.NoError(t, err)
	defer s.Close()

	count, err := s.searcher.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(11), count)

	tools := s.mcp.ListTools()
	assert.Len(t, tools, 2)
}

func TestMCPServer_CloseWithoutServe(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	db, err := storage.Open(filepath.Join(project, ".cdoc", "inventory.db"), false)
	require.NoError(t, err)
	seedFixtures(t, db)
	require.NoError(t, db.Close())

	s, err := NewMCPServer(context.Background(), &MCPServerConfig{
		ProjectPath:  project,
		DatabasePath: ".cdoc/inventory.db",
	}, "test")
	require.NoError(t, err)

	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()

	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a server that was never served")
	}
}

func TestNewMCPServer_NotIndexed(t *testing.T) {
	t.Parallel()

	_, err := NewMCPServer(context.Background(), &MCPServerConfig{
		ProjectPath:  t.TempDir(),
		DatabasePath: ".cdoc/inventory.db",
	}, "test")
	assert.ErrorIs(t, err, storage.ErrDatabaseNotFound)
}

func TestResolveDatabasePath(t *testing.T) {
	t.Parallel()

	abs := filepath.Join(t.TempDir(), "x.db")
	assert.Equal(t, abs, ResolveDatabasePath("/project", abs))
	assert.Equal(t, filepath.Join("/project", ".cdoc", "inventory.db"), ResolveDatabasePath("/project", ".cdoc/inventory.db"))
}
