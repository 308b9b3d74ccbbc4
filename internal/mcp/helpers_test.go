package mcp

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
	"github.com/mvp-joe/cdoc/internal/indexer/parsers"
	"github.com/mvp-joe/cdoc/internal/storage"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../../testdata/code/c"

// seedFixtures stores the inventories of sample.c and with_class.cpp under
// src/. Together they hold 11 symbols.
func seedFixtures(t *testing.T, db *sql.DB) {
	t.Helper()
	seedFile(t, db, "src/sample.c", "c", readFixture(t, "sample.c"))
	seedFile(t, db, "src/with_class.cpp", "cpp", readFixture(t, "with_class.cpp"))
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(fixtureDir, name))
	require.NoError(t, err)
	return string(data)
}

func seedFile(t *testing.T, db *sql.DB, path, language, source string) {
	t.Helper()
	inv := parsers.Extract(source)
	stats := &storage.FileStats{
		FilePath:    path,
		Language:    language,
		Backend:     parsers.BackendHeuristic,
		FileHash:    "hash-" + path,
		SizeBytes:   int64(len(source)),
		LineCount:   strings.Count(source, "\n") + 1,
		SymbolCount: inv.Count(),
		IndexedAt:   time.Now(),
	}
	require.NoError(t, storage.NewFileWriter(db).WriteFile(stats, extraction.Flatten(inv)))
}

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}
