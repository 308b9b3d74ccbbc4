package indexer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
)

// formatter implements the Formatter interface.
type formatter struct{}

// NewFormatter creates a new formatter instance.
func NewFormatter() Formatter {
	return &formatter{}
}

// JSONDocument is the JSON rendering of one file's inventory.
type JSONDocument struct {
	File      string              `json:"file"`
	Symbols   []extraction.Record `json:"symbols"`
	Count     int                 `json:"count"`
	Truncated int                 `json:"truncated"`
}

// NewJSONDocument flattens inv for JSON output.
func NewJSONDocument(path string, inv *extraction.Inventory) JSONDocument {
	records := extraction.Flatten(inv)
	if records == nil {
		records = []extraction.Record{}
	}
	return JSONDocument{
		File:      path,
		Symbols:   records,
		Count:     inv.Count(),
		Truncated: inv.TruncatedCount(),
	}
}

// FormatJSON renders the inventory as indented JSON with flattened records.
func (f *formatter) FormatJSON(path string, inv *extraction.Inventory) ([]byte, error) {
	data, err := json.MarshalIndent(NewJSONDocument(path, inv), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode inventory of %s: %w", path, err)
	}
	return data, nil
}

// FormatMarkdown renders a heading for the file and a nested bullet list
// with one item per entry.
func (f *formatter) FormatMarkdown(path string, inv *extraction.Inventory) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", path))

	if inv.Count() == 0 {
		sb.WriteString("_No declarations found._\n")
		return sb.String()
	}

	writeEntries(&sb, inv.Entries, 0)
	return sb.String()
}

func writeEntries(sb *strings.Builder, entries []extraction.SymbolEntry, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		sb.WriteString(indent)
		sb.WriteString("- ")
		sb.WriteString(formatEntry(e))
		sb.WriteString("\n")
		writeEntries(sb, e.Members(), depth+1)
	}
}

// formatEntry renders "kind `signature` (lines a-b) [n loc, m comment] [args: x, y]: doc".
func formatEntry(e extraction.SymbolEntry) string {
	var sb strings.Builder
	span := e.Decl.DeclSpan()

	sb.WriteString(fmt.Sprintf("%s `%s` %s", extraction.Label(e.Decl), entrySignature(e.Decl), formatLineRange(span.StartLine, span.EndLine)))
	if e.Metrics.LOC > 0 {
		sb.WriteString(fmt.Sprintf(" [%d loc, %d comment]", e.Metrics.LOC, e.Metrics.CommentLines))
	}
	if args := entryArguments(e.Decl); len(args) > 0 {
		sb.WriteString(" [args: " + strings.Join(args, ", ") + "]")
	}
	if e.Decl.IsTruncated() {
		sb.WriteString(" [truncated]")
	}
	if doc := e.DocText(); doc != "" {
		sb.WriteString(": ")
		sb.WriteString(doc)
	}
	return sb.String()
}

func entryArguments(d extraction.Declaration) []string {
	switch d := d.(type) {
	case *extraction.Function:
		return d.Arguments
	case *extraction.Constructor:
		return d.Arguments
	}
	return nil
}

// entrySignature falls back to the name when a field has no text.
func entrySignature(d extraction.Declaration) string {
	sig := extraction.Signature(d)
	if sig == "" {
		sig = d.DeclName()
	}
	if sig == "" {
		sig = "(anonymous)"
	}
	return sig
}

// formatLineRange formats line numbers into a human-readable range.
func formatLineRange(start, end int) string {
	if start == end {
		return fmt.Sprintf("(line %d)", start)
	}
	return fmt.Sprintf("(lines %d-%d)", start, end)
}
