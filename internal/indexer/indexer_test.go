package indexer

// Test Plan for Indexer:
// - Index extracts every fixture and stores files and symbols
// - Index records a finished run with matching counters
// - A second Index serves every file from the cache
// - Index removes stored files that no longer exist
// - Index skips files under .cdoc and binary files
// - IndexFiles re-extracts modified files and removes deleted ones
// - IndexFiles ignores paths that do not match the include patterns
// - The tree-sitter backend stores C files with the treesitter backend name
// - Cancelled contexts abort Index and IndexFiles and leave a failed run

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
	"github.com/mvp-joe/cdoc/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../../testdata/code/c"

// newTestConfig returns a config rooted at a fresh temp dir with a private
// disk cache.
func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig(t.TempDir())
	cfg.CacheLocation = t.TempDir()
	cfg.Workers = 2
	return cfg
}

func writeSource(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// copyFixtures copies the C/C++ fixtures into root/src.
func copyFixtures(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(fixtureDir)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(fixtureDir, e.Name()))
		require.NoError(t, err)
		writeSource(t, root, "src/"+e.Name(), string(data))
	}
}

func openIndexer(t *testing.T, cfg *Config) *indexer {
	t.Helper()
	idx, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx.(*indexer)
}

func TestIndex_ExtractsFixtures(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	copyFixtures(t, cfg.RootDir)
	idx := openIndexer(t, cfg)

	stats, err := idx.Index(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.FilesDiscovered)
	assert.Equal(t, 4, stats.FilesExtracted)
	assert.Equal(t, 0, stats.FilesFailed)
	assert.Equal(t, 0, stats.FilesCached)
	assert.Equal(t, 0, stats.Truncated)
	assert.NotEmpty(t, stats.RunID)
	assert.Greater(t, stats.Symbols, 0)

	reader := storage.NewFileReader(idx.db)
	files, err := reader.GetAllFiles()
	require.NoError(t, err)
	require.Len(t, files, 4)
	assert.Equal(t, "src/sample.c", files[0].FilePath)
	assert.Equal(t, "c", files[0].Language)
	assert.Equal(t, "heuristic", files[0].Backend)
	assert.Equal(t, stats.RunID, files[0].RunID)

	inv, err := reader.ReadInventory("src/with_class.cpp")
	require.NoError(t, err)
	require.Len(t, inv.Entries, 2)
	assert.Equal(t, "Calculator", inv.Entries[0].Decl.DeclName())
	assert.Equal(t, "A simple calculator class", inv.Entries[0].DocText())
	assert.Equal(t, 8, inv.Count())

	total := 0
	for _, f := range files {
		total += f.SymbolCount
	}
	assert.Equal(t, stats.Symbols, total)

	run, err := storage.LatestRun(idx.db)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, stats.RunID, run.ID)
	assert.Equal(t, 4, run.FilesExtracted)
	assert.Equal(t, stats.Symbols, run.SymbolCount)
	assert.False(t, run.FinishedAt.IsZero())
	assert.Equal(t, storage.RunCompleted, run.Status)
}

func TestIndex_SecondRunIsCached(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	copyFixtures(t, cfg.RootDir)
	idx := openIndexer(t, cfg)

	first, err := idx.Index(context.Background())
	require.NoError(t, err)

	second, err := idx.Index(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, second.FilesCached)
	assert.Equal(t, first.Symbols, second.Symbols)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestIndex_CacheSurvivesRestart(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	copyFixtures(t, cfg.RootDir)

	first, err := New(cfg)
	require.NoError(t, err)
	_, err = first.Index(context.Background())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := openIndexer(t, cfg)
	stats, err := second.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.FilesCached)
}

func TestIndex_RemovesDeletedFiles(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	copyFixtures(t, cfg.RootDir)
	idx := openIndexer(t, cfg)

	_, err := idx.Index(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(cfg.RootDir, "src", "sample.cpp")))

	stats, err := idx.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesRemoved)
	assert.Equal(t, 3, stats.FilesDiscovered)

	existing, err := idx.reader.GetFileStats("src/sample.cpp")
	require.NoError(t, err)
	assert.Nil(t, existing)
}

func TestIndex_SkipsStateDirAndBinaries(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	writeSource(t, cfg.RootDir, "main.c", "/** Entry */\nint main(void) { return 0; }\n")
	writeSource(t, cfg.RootDir, ".cdoc/generated.c", "int hidden(void);\n")
	writeSource(t, cfg.RootDir, "blob.h", "int x;\x00\x01\x02")
	writeSource(t, cfg.RootDir, "README.md", "# readme\n")
	idx := openIndexer(t, cfg)

	stats, err := idx.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesDiscovered)

	rows, err := idx.reader.ReadSymbols(storage.SymbolFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "main", rows[0].Record.Name)
	assert.Equal(t, "Entry", rows[0].Record.Doc.Text)
}

func TestIndexFiles_ModifyAndDelete(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	writeSource(t, cfg.RootDir, "a.c", "void a(void);\n")
	writeSource(t, cfg.RootDir, "b.c", "void b(void);\n")
	idx := openIndexer(t, cfg)

	_, err := idx.Index(context.Background())
	require.NoError(t, err)

	aPath := writeSource(t, cfg.RootDir, "a.c", "/** First */\nvoid a1(void);\n/** Second */\nvoid a2(void);\n")
	require.NoError(t, os.Remove(filepath.Join(cfg.RootDir, "b.c")))

	stats, err := idx.IndexFiles(context.Background(), []string{aPath, "b.c", "notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesExtracted)
	assert.Equal(t, 1, stats.FilesRemoved)
	assert.Equal(t, 2, stats.Symbols)

	rows, err := idx.reader.ReadSymbols(storage.SymbolFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a1", rows[0].Record.Name)
	assert.Equal(t, "Second", rows[1].Record.Doc.Text)
}

func TestIndex_TreeSitterBackend(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.Backend = "treesitter"
	copyFixtures(t, cfg.RootDir)
	idx := openIndexer(t, cfg)

	_, err := idx.Index(context.Background())
	require.NoError(t, err)

	cFile, err := idx.reader.GetFileStats("src/with_struct.c")
	require.NoError(t, err)
	assert.Equal(t, "treesitter", cFile.Backend)

	cppFile, err := idx.reader.GetFileStats("src/with_class.cpp")
	require.NoError(t, err)
	assert.Equal(t, "heuristic", cppFile.Backend)

	inv, err := idx.reader.ReadInventory("src/sample.c")
	require.NoError(t, err)
	var names []string
	inv.Walk(func(e extraction.SymbolEntry, _ int) bool {
		names = append(names, e.Decl.DeclName())
		return true
	})
	assert.Equal(t, []string{"greet", "add", "no_args"}, names)
}

func TestIndex_CancelledContext(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	copyFixtures(t, cfg.RootDir)
	idx := openIndexer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Index(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	run, err := storage.LatestRun(idx.db)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, storage.RunFailed, run.Status)
	assert.Contains(t, run.Error, context.Canceled.Error())
	assert.Equal(t, 4, run.FilesDiscovered)
	assert.False(t, run.FinishedAt.IsZero())

	_, err = idx.IndexFiles(ctx, []string{"src/sample.c"})
	assert.ErrorIs(t, err, context.Canceled)

	latest, err := storage.LatestRun(idx.db)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, storage.RunFailed, latest.Status)
}
