package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mvp-joe/cdoc/internal/indexer"
	"github.com/mvp-joe/cdoc/internal/indexer/extraction"
	"github.com/mvp-joe/cdoc/internal/indexer/parsers"
	"github.com/spf13/cobra"
)

var (
	extractFormat   string
	extractBackend  string
	extractLanguage string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file>...",
	Short: "Print the declarations and doc comments of source files",
	Long: `Extract runs the extractor over the given files and prints their inventory
without touching the project database.

Markdown output lists every declaration with its kind, signature, line range
and doc comment, nested by class, struct and namespace. JSON output contains
the flattened records with parent indices.

Examples:
  cdoc extract src/calculator.h
  cdoc extract --format json src/*.c
  cdoc extract --backend treesitter lib/list.c
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "markdown", "Output format (markdown or json)")
	extractCmd.Flags().StringVarP(&extractBackend, "backend", "b", "", "Extraction backend (heuristic or treesitter, default from config)")
	extractCmd.Flags().StringVarP(&extractLanguage, "language", "l", "", "Treat every file as this language (c or cpp)")
}

// extractOptions carries everything executeExtract needs.
type extractOptions struct {
	Files    []string
	Format   string
	Backend  string
	Language string
	Extract  parsers.Options
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.ErrOrStderr(), "")
	defer cancel()

	_, cfg, err := loadProject()
	if err != nil {
		return err
	}

	opts := extractOptions{
		Files:    args,
		Format:   extractFormat,
		Backend:  cfg.Extraction.Backend,
		Language: extractLanguage,
		Extract: parsers.Options{
			MaxBlankLines:     cfg.Extraction.MaxBlankLines,
			MergeLineComments: cfg.Extraction.MergeLineComments,
		},
	}
	if extractBackend != "" {
		opts.Backend = extractBackend
	}

	return executeExtract(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
}

// executeExtract renders each file to out and reports failures, truncation
// warnings and a summary to errOut. Unreadable files do not stop the batch
// but make the command fail at the end.
func executeExtract(ctx context.Context, out, errOut io.Writer, opts extractOptions) error {
	switch opts.Format {
	case "markdown", "json":
	default:
		return fmt.Errorf("unsupported format %q (use markdown or json)", opts.Format)
	}
	switch strings.ToLower(opts.Backend) {
	case parsers.BackendHeuristic, parsers.BackendTreeSitter:
	default:
		return fmt.Errorf("unsupported backend %q (use %s or %s)", opts.Backend, parsers.BackendHeuristic, parsers.BackendTreeSitter)
	}
	switch opts.Language {
	case "", "c", "cpp":
	default:
		return fmt.Errorf("unsupported language %q (use c or cpp)", opts.Language)
	}

	parser := indexer.NewParser(opts.Backend, opts.Extract)
	formatter := indexer.NewFormatter()

	var (
		docs      []indexer.JSONDocument
		failed    int
		printed   int
		symbols   int
		truncated int
	)
	for _, path := range opts.Files {
		result, err := extractFile(ctx, parser, path, opts.Language)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failColor.Fprint(errOut, "✗ ")
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			failed++
			continue
		}

		inv := result.Inventory
		symbols += inv.Count()
		truncated += warnTruncated(errOut, path, inv)

		if opts.Format == "json" {
			docs = append(docs, indexer.NewJSONDocument(path, inv))
			continue
		}
		if printed > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, formatter.FormatMarkdown(path, inv))
		printed++
	}

	if opts.Format == "json" && len(docs) > 0 {
		if err := writeJSONDocuments(out, docs); err != nil {
			return err
		}
	}

	extracted := len(opts.Files) - failed
	successColor.Fprintf(errOut, "✓ Extracted %s symbols from %s files\n", formatNumber(symbols), formatNumber(extracted))
	if truncated > 0 {
		warnColor.Fprintf(errOut, "  %s truncated declarations\n", formatNumber(truncated))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(opts.Files))
	}
	return nil
}

// extractFile reads and extracts one file. Unknown extensions are treated
// as C++ so the heuristic backend handles them.
func extractFile(ctx context.Context, parser indexer.Parser, path, language string) (*parsers.FileExtraction, error) {
	if language == "" {
		language = indexer.DetectLanguage(path)
	}
	if language == "" {
		language = "cpp"
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return parser.ParseSource(ctx, path, language, source)
}

// warnTruncated prints one warning per truncated entry and returns how many
// there were.
func warnTruncated(errOut io.Writer, path string, inv *extraction.Inventory) int {
	n := 0
	inv.Walk(func(e extraction.SymbolEntry, _ int) bool {
		if !e.Decl.IsTruncated() {
			return true
		}
		n++
		span := e.Decl.DeclSpan()
		warnColor.Fprint(errOut, "Warning: ")
		fmt.Fprintf(errOut, "%s:%d: %s %s is truncated at end of input\n",
			path, span.StartLine, extraction.Label(e.Decl), displayName(e.Decl))
		return true
	})
	return n
}

func displayName(d extraction.Declaration) string {
	if name := d.DeclName(); name != "" {
		return name
	}
	return "(anonymous)"
}

// writeJSONDocuments prints a single document as an object and several as
// an array.
func writeJSONDocuments(out io.Writer, docs []indexer.JSONDocument) error {
	var v any = docs
	if len(docs) == 1 {
		v = docs[0]
	}
	return writeJSON(out, v)
}
