package mcp

// Test Plan for DatabaseWatcher:
// - Writes to the database file trigger a debounced reload
// - Sidecar files (-wal, -journal) count as database writes
// - Unrelated files, chmods and removals are ignored
// - Reload errors are reported and the loop keeps running
// - Stop is idempotent and returns promptly without Start
// - Missing directories fail at construction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReloadable struct {
	calls atomic.Int32
	err   error
}

func (c *countingReloadable) Reload(ctx context.Context) error {
	c.calls.Add(1)
	return c.err
}

func startDatabaseWatcher(t *testing.T, r Reloadable, dbPath string) <-chan error {
	t.Helper()

	w, err := NewDatabaseWatcher(r, dbPath)
	require.NoError(t, err)
	w.debounceTime = 20 * time.Millisecond

	reloaded := make(chan error, 8)
	w.onReload = func(err error) {
		select {
		case reloaded <- err:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	return reloaded
}

func TestDatabaseWatcher_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "inventory.db")
	r := &countingReloadable{}
	reloaded := startDatabaseWatcher(t, r, dbPath)

	require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0644))

	select {
	case err := <-reloaded:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	assert.GreaterOrEqual(t, r.calls.Load(), int32(1))
}

func TestDatabaseWatcher_ReportsReloadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "inventory.db")
	r := &countingReloadable{err: errors.New("boom")}
	reloaded := startDatabaseWatcher(t, r, dbPath)

	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("x"), 0644))

	select {
	case err := <-reloaded:
		assert.EqualError(t, err, "boom")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestDatabaseWatcher_IsDatabaseEvent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewDatabaseWatcher(&countingReloadable{}, filepath.Join(dir, "inventory.db"))
	require.NoError(t, err)
	defer w.Stop()

	event := func(name string, op fsnotify.Op) fsnotify.Event {
		return fsnotify.Event{Name: filepath.Join(dir, name), Op: op}
	}

	assert.True(t, w.isDatabaseEvent(event("inventory.db", fsnotify.Write)))
	assert.True(t, w.isDatabaseEvent(event("inventory.db-journal", fsnotify.Create)))
	assert.True(t, w.isDatabaseEvent(event("inventory.db-wal", fsnotify.Write)))
	assert.False(t, w.isDatabaseEvent(event("inventory.db", fsnotify.Chmod)))
	assert.False(t, w.isDatabaseEvent(event("inventory.db", fsnotify.Remove)))
	assert.False(t, w.isDatabaseEvent(event("config.yml", fsnotify.Write)))
}

func TestDatabaseWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	w, err := NewDatabaseWatcher(&countingReloadable{}, filepath.Join(t.TempDir(), "inventory.db"))
	require.NoError(t, err)

	w.Start(context.Background())
	w.Stop()
	w.Stop()
}

func TestDatabaseWatcher_StopWithoutStart(t *testing.T) {
	t.Parallel()

	w, err := NewDatabaseWatcher(&countingReloadable{}, filepath.Join(t.TempDir(), "inventory.db"))
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without Start")
	}
}

func TestNewDatabaseWatcher_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := NewDatabaseWatcher(&countingReloadable{}, filepath.Join(t.TempDir(), "missing", "inventory.db"))
	assert.Error(t, err)
}
