package mcp

// Test Plan for cdoc_search and cdoc_symbols:
// - cdoc_search returns JSON results for a query
// - cdoc_search passes filters and clamps the limit
// - cdoc_search reports missing queries and bad languages as tool errors
// - cdoc_symbols renders markdown by default and JSON on request
// - cdoc_symbols reports unknown files and bad formats as tool errors
// - Both tools register on a server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/cdoc/internal/indexer"
	"github.com/mvp-joe/cdoc/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTool(t *testing.T) {
	t.Parallel()

	searcher, _ := newFixtureSearcher(t)
	handler := createSearchHandler(searcher)

	result, err := handler(context.Background(), callTool(map[string]interface{}{
		"query": "scope:Calculator",
		"kind":  "function",
		"limit": float64(500),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var response SearchResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Equal(t, "scope:Calculator", response.Query)
	assert.Equal(t, "bleve", response.Metadata.Source)
	assert.Equal(t, 3, response.TotalReturned)
	assert.ElementsMatch(t, []string{"add", "multiply", "reset"}, names(response.Results))
}

func TestSearchTool_Errors(t *testing.T) {
	t.Parallel()

	searcher, _ := newFixtureSearcher(t)
	handler := createSearchHandler(searcher)

	tests := map[string]map[string]interface{}{
		"missing query": {},
		"empty query":   {"query": ""},
		"bad language":  {"query": "name:add", "language": "rust"},
		"bad kind type": {"query": "name:add", "kind": 3},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			result, err := handler(context.Background(), callTool(args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}

	var req = callTool(nil)
	req.Params.Arguments = "not a map"
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSymbolsTool(t *testing.T) {
	t.Parallel()

	db := storage.NewTestDB(t)
	seedFixtures(t, db)
	handler := createSymbolsHandler(storage.NewFileReader(db), indexer.NewFormatter())

	result, err := handler(context.Background(), callTool(map[string]interface{}{
		"file_path": "src/with_class.cpp",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "# src/with_class.cpp")
	assert.Contains(t, text, "- class `class Calculator` (lines 8-40): A simple calculator class")
	assert.Contains(t, text, "  - constructor `Calculator()` (line 16): Constructor")
	assert.Contains(t, text, "- namespace `namespace Helper` (lines 45-49): A namespace function")

	result, err = handler(context.Background(), callTool(map[string]interface{}{
		"file_path": "src/sample.c",
		"format":    "json",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var doc indexer.JSONDocument
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &doc))
	assert.Equal(t, "src/sample.c", doc.File)
	assert.Equal(t, 3, doc.Count)
	require.Len(t, doc.Symbols, 3)
	assert.Equal(t, "no_args", doc.Symbols[2].Name)
}

func TestSymbolsTool_Errors(t *testing.T) {
	t.Parallel()

	db := storage.NewTestDB(t)
	seedFixtures(t, db)
	handler := createSymbolsHandler(storage.NewFileReader(db), indexer.NewFormatter())

	result, err := handler(context.Background(), callTool(map[string]interface{}{"file_path": "src/missing.c"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "file not indexed: src/missing.c")

	result, err = handler(context.Background(), callTool(map[string]interface{}{"file_path": "src/sample.c", "format": "xml"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = handler(context.Background(), callTool(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRegisterTools(t *testing.T) {
	t.Parallel()

	db := storage.NewTestDB(t)
	searcher, _ := newFixtureSearcher(t)

	s := server.NewMCPServer("test", "0.0.0", server.WithToolCapabilities(true))
	AddSearchTool(s, searcher)
	AddSymbolsTool(s, storage.NewFileReader(db))

	tools := s.ListTools()
	assert.Contains(t, tools, "cdoc_search")
	assert.Contains(t, tools, "cdoc_symbols")
}
