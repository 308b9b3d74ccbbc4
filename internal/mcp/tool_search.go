package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// AddSearchTool registers the cdoc_search tool with an MCP server.
func AddSearchTool(s *server.MCPServer, searcher SymbolSearcher) {
	tool := mcp.NewTool(
		"cdoc_search",
		mcp.WithDescription(`Full-text search over the extracted C/C++ declarations and their doc comments.

Uses bleve query syntax:
- Field scoping: name:greet, doc:calculator, scope:Calculator, kind:prototype, language:cpp
- Boolean operators: AND, OR, NOT, +required, -excluded
- Phrase search: doc:"two numbers"
- Wildcards: name:calc* (prefix matching)
- Fuzzy: name:multipy~1 (edit distance)

Kinds: function, prototype, constructor, class, struct, union, enum, namespace, field.

Examples:
- doc:"add two numbers" - documented adders
- scope:Calculator AND kind:function - methods of Calculator
- name:init* AND -kind:prototype - definitions only`),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Bleve query string with field scoping and boolean operators")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (1-100, default: 15)")),
		mcp.WithString("kind",
			mcp.Description("Only return symbols of this kind")),
		mcp.WithString("language",
			mcp.Description("Only return symbols from c or cpp files"),
			mcp.Enum("c", "cpp")),
		mcp.WithString("file_path",
			mcp.Description("Only return symbols from files matching this wildcard, e.g. src/*")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createSearchHandler(searcher))
}

// createSearchHandler creates the handler function for the cdoc_search tool.
func createSearchHandler(searcher SymbolSearcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		startTime := time.Now()

		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		var args SearchRequest
		var err error
		if args.Query, err = parseStringArg(argsMap, "query", true); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Kind, err = parseStringArg(argsMap, "kind", false); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Language, err = parseEnumArg(argsMap, "language", []string{"c", "cpp"}, ""); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.FilePath, err = parseStringArg(argsMap, "file_path", false); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		args.Limit = parseClampedInt(argsMap, "limit", defaultSearchLimit, 1, maxSearchLimit)

		results, err := searcher.Search(ctx, args.Query, &SearchOptions{
			Limit:    args.Limit,
			Kind:     args.Kind,
			Language: args.Language,
			FilePath: args.FilePath,
		})
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		response := &SearchResponse{
			Query:         args.Query,
			Results:       results,
			TotalReturned: len(results),
			Metadata: ResponseMetadata{
				TookMs: int(time.Since(startTime).Milliseconds()),
				Source: "bleve",
			},
		}

		jsonData, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		// Return as text result (mcp-go convention)
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}
