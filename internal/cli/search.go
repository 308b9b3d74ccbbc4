package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mvp-joe/cdoc/internal/mcp"
	"github.com/mvp-joe/cdoc/internal/storage"
	"github.com/spf13/cobra"
)

var (
	searchKind     string
	searchLanguage string
	searchPath     string
	searchLimit    int
	searchJSON     bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed symbols",
	Long: `Search loads the indexed inventory into an in-memory full-text index and
runs a query against it.

Queries use the query-string syntax: bare words match any field, and
name:, scope:, doc:, signature:, kind:, language: and file_path: restrict a
term to one field. Quote phrases, prefix + to require and - to exclude.

Examples:
  cdoc search calculator
  cdoc search 'doc:"two numbers"' --kind function
  cdoc search 'scope:Calculator' --path 'src/*' --json
`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchKind, "kind", "k", "", "Only symbols of this kind (function, prototype, class, struct, ...)")
	searchCmd.Flags().StringVarP(&searchLanguage, "language", "l", "", "Only symbols from c or cpp files")
	searchCmd.Flags().StringVarP(&searchPath, "path", "p", "", "Only files matching this wildcard (e.g. 'src/*')")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 15, "Maximum number of results (1-100)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProject()
	if err != nil {
		return err
	}

	dbPath := mcp.ResolveDatabasePath(root, cfg.Storage.Database)
	return executeSearch(cmd.Context(), cmd.OutOrStdout(), dbPath, args[0], &mcp.SearchOptions{
		Limit:    searchLimit,
		Kind:     searchKind,
		Language: searchLanguage,
		FilePath: searchPath,
	}, searchJSON)
}

func executeSearch(ctx context.Context, out io.Writer, dbPath, query string, opts *mcp.SearchOptions, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	startTime := time.Now()

	db, err := storage.Open(dbPath, true)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := mcp.NewSymbolSearcher(ctx, mcp.StorageSource(storage.NewFileReader(db)))
	if err != nil {
		return fmt.Errorf("failed to build search index: %w", err)
	}
	defer searcher.Close()

	results, err := searcher.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if asJSON {
		response := &mcp.SearchResponse{
			Query:         query,
			Results:       results,
			TotalReturned: len(results),
			Metadata: mcp.ResponseMetadata{
				TookMs: int(time.Since(startTime).Milliseconds()),
				Source: "bleve",
			},
		}
		return writeJSON(out, response)
	}

	if len(results) == 0 {
		fmt.Fprintf(out, "No symbols match %q\n", query)
		return nil
	}

	for i, r := range results {
		s := r.Symbol
		fmt.Fprintf(out, "%2d. %s `%s`\n", i+1, s.Kind, s.Signature)
		fmt.Fprintf(out, "    %s\n", symbolLocation(s))
		if s.Doc != "" {
			fmt.Fprintf(out, "    %s\n", s.Doc)
		}
	}
	fmt.Fprintf(out, "\n%d results\n", len(results))
	return nil
}

// symbolLocation renders "path:line" or "path:start-end".
func symbolLocation(s *mcp.Symbol) string {
	if s.StartLine == s.EndLine {
		return fmt.Sprintf("%s:%d", s.FilePath, s.StartLine)
	}
	return fmt.Sprintf("%s:%d-%d", s.FilePath, s.StartLine, s.EndLine)
}
