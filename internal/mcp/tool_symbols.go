package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/cdoc/internal/indexer"
	"github.com/mvp-joe/cdoc/internal/storage"
)

const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

// AddSymbolsTool registers the cdoc_symbols tool, which returns the full
// stored inventory of one file.
func AddSymbolsTool(s *server.MCPServer, reader *storage.FileReader) {
	tool := mcp.NewTool(
		"cdoc_symbols",
		mcp.WithDescription(`Returns every declaration extracted from one C/C++ file, nested the way
the source nests them (classes, structs and namespaces contain their members), each
with its signature, line range and doc comment.

Use cdoc_search to find files first, then cdoc_symbols to read a file's inventory.`),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("File path relative to the project root, as returned by cdoc_search")),
		mcp.WithString("format",
			mcp.Description("Output format (default: markdown)"),
			mcp.Enum(formatMarkdown, formatJSON)),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createSymbolsHandler(reader, indexer.NewFormatter()))
}

// createSymbolsHandler creates the handler function for the cdoc_symbols tool.
func createSymbolsHandler(reader *storage.FileReader, formatter indexer.Formatter) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		var args SymbolsRequest
		var err error
		if args.FilePath, err = parseStringArg(argsMap, "file_path", true); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Format, err = parseEnumArg(argsMap, "format", []string{formatMarkdown, formatJSON}, formatMarkdown); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		inv, err := reader.ReadInventory(args.FilePath)
		if errors.Is(err, storage.ErrFileNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("file not indexed: %s", args.FilePath)), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read inventory: %w", err)
		}

		if args.Format == formatJSON {
			data, err := formatter.FormatJSON(args.FilePath, inv)
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultText(string(data)), nil
		}
		return mcp.NewToolResultText(formatter.FormatMarkdown(args.FilePath, inv)), nil
	}
}
