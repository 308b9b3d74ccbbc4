package mcp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mvp-joe/cdoc/internal/storage"
)

// Symbol is one stored declaration as exposed to search clients.
type Symbol struct {
	ID        string `json:"id"` // "<file_path>#<index>"
	FilePath  string `json:"file_path"`
	Language  string `json:"language"`
	Index     int    `json:"index"`
	Kind      string `json:"kind"` // function, prototype, class, struct, ...
	Name      string `json:"name"`
	Scope     string `json:"scope,omitempty"`
	Signature string `json:"signature"`
	Doc       string `json:"doc,omitempty"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Truncated bool   `json:"truncated,omitempty"`

	Arguments    []string `json:"arguments,omitempty"`
	LOC          int      `json:"loc"`
	CommentLines int      `json:"comment_lines"`
}

// SymbolID builds the document id of a stored record.
func SymbolID(filePath string, index int) string {
	return filePath + "#" + strconv.Itoa(index)
}

// ParseSymbolID splits an id built by SymbolID.
func ParseSymbolID(id string) (string, int, error) {
	i := strings.LastIndexByte(id, '#')
	if i < 0 {
		return "", 0, fmt.Errorf("invalid symbol id %q", id)
	}
	index, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid symbol id %q: %w", id, err)
	}
	return id[:i], index, nil
}

// symbolFromRow converts a stored row into its search representation.
func symbolFromRow(row *storage.SymbolRow) *Symbol {
	rec := row.Record
	s := &Symbol{
		ID:        SymbolID(row.FilePath, rec.Index),
		FilePath:  row.FilePath,
		Language:  row.Language,
		Index:     rec.Index,
		Kind:      rec.Label(),
		Name:      rec.Name,
		Scope:     rec.Scope,
		Signature: rec.Signature(),
		StartLine: rec.Span.StartLine,
		EndLine:   rec.Span.EndLine,
		Truncated: rec.Truncated,

		Arguments:    rec.Arguments,
		LOC:          rec.LOC,
		CommentLines: rec.CommentLines,
	}
	if rec.Doc != nil {
		s.Doc = rec.Doc.Text
	}
	return s
}

// MCPServerConfig contains configuration for the MCP server.
type MCPServerConfig struct {
	ProjectPath  string // Project root path
	DatabasePath string // Inventory database, relative to ProjectPath unless absolute
}

// DefaultMCPServerConfig returns default MCP server configuration.
func DefaultMCPServerConfig() *MCPServerConfig {
	return &MCPServerConfig{
		ProjectPath:  ".",
		DatabasePath: ".cdoc/inventory.db",
	}
}

// SearchRequest represents the JSON request schema for the cdoc_search MCP tool.
type SearchRequest struct {
	Query    string `json:"query" jsonschema:"required,description=Bleve query string"`
	Limit    int    `json:"limit,omitempty" jsonschema:"minimum=1,maximum=100,default=15"`
	Kind     string `json:"kind,omitempty" jsonschema:"description=Filter by kind (function|prototype|constructor|class|struct|union|enum|namespace|field)"`
	Language string `json:"language,omitempty" jsonschema:"description=Filter by language (c|cpp)"`
	FilePath string `json:"file_path,omitempty" jsonschema:"description=Filter by file path glob, e.g. src/*"`
}

// SearchResponse represents the JSON response schema for the cdoc_search MCP tool.
type SearchResponse struct {
	Query         string          `json:"query"`
	Results       []*SearchResult `json:"results"`
	TotalReturned int             `json:"total_returned"`
	Metadata      ResponseMetadata `json:"metadata"`
}

// SymbolsRequest represents the JSON request schema for the cdoc_symbols MCP tool.
type SymbolsRequest struct {
	FilePath string `json:"file_path" jsonschema:"required,description=Path relative to the project root"`
	Format   string `json:"format,omitempty" jsonschema:"enum=markdown,enum=json,default=markdown"`
}

// ResponseMetadata contains timing and source information.
type ResponseMetadata struct {
	TookMs int    `json:"took_ms"`
	Source string `json:"source"`
}
