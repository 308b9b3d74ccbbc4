package cli

// Test Plan for search:
// - Text output lists kind, signature, location and doc per hit
// - Filters narrow results and JSON output decodes into a SearchResponse
// - Queries without hits print a message
// - Searching before the first index returns ErrDatabaseNotFound

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/cdoc/internal/mcp"
	"github.com/mvp-joe/cdoc/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSearch_Text(t *testing.T) {
	t.Parallel()

	dbPath := indexProject(t, newProject(t))

	var out bytes.Buffer
	require.NoError(t, executeSearch(context.Background(), &out, dbPath, "name:greet", &mcp.SearchOptions{}, false))

	text := out.String()
	assert.Contains(t, text, " 1. function `")
	assert.Contains(t, text, "greet(")
	assert.Contains(t, text, "    src/sample.c:8-12\n")
	assert.Contains(t, text, "    Greet a person by name\n")
	assert.Contains(t, text, "1 results")
}

func TestExecuteSearch_JSON(t *testing.T) {
	t.Parallel()

	dbPath := indexProject(t, newProject(t))

	var out bytes.Buffer
	opts := &mcp.SearchOptions{Kind: "function", Language: "cpp", Limit: 10}
	require.NoError(t, executeSearch(context.Background(), &out, dbPath, "scope:Calculator", opts, true))

	var response mcp.SearchResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &response))
	assert.Equal(t, "scope:Calculator", response.Query)
	assert.Equal(t, "bleve", response.Metadata.Source)
	assert.Equal(t, 3, response.TotalReturned)
	for _, r := range response.Results {
		assert.Equal(t, "src/with_class.cpp", r.Symbol.FilePath)
		assert.Equal(t, "function", r.Symbol.Kind)
	}
}

func TestExecuteSearch_NoResults(t *testing.T) {
	t.Parallel()

	dbPath := indexProject(t, newProject(t))

	var out bytes.Buffer
	require.NoError(t, executeSearch(context.Background(), &out, dbPath, "name:nonexistent", nil, false))
	assert.Equal(t, "No symbols match \"name:nonexistent\"\n", out.String())
}

func TestExecuteSearch_NotIndexed(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := executeSearch(context.Background(), &out, filepath.Join(t.TempDir(), "inventory.db"), "add", nil, false)
	assert.ErrorIs(t, err, storage.ErrDatabaseNotFound)
}

func TestSymbolLocation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a.c:3", symbolLocation(&mcp.Symbol{FilePath: "a.c", StartLine: 3, EndLine: 3}))
	assert.Equal(t, "a.c:3-9", symbolLocation(&mcp.Symbol{FilePath: "a.c", StartLine: 3, EndLine: 9}))
}
