package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/mvp-joe/cdoc/internal/indexer"
	"github.com/spf13/cobra"
)

var (
	quietFlag bool
	watchFlag bool
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the project's C/C++ sources into SQLite",
	Long: `Index discovers C and C++ sources under the project root, extracts their
declarations and doc comments, and stores the inventory in
.cdoc/inventory.db (storage.database).

Unchanged files are served from the extraction cache. Files that disappeared
since the previous run are removed from the inventory.

Examples:
  # Index the current directory
  cdoc index

  # Index with progress bars disabled
  cdoc index --quiet

  # Watch for changes and reindex incrementally
  cdoc index --watch

  # Index another project
  cdoc index --dir /path/to/project
`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	indexCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and reindex incrementally")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.OutOrStdout(), "\nInterrupted! Cancelling indexing...")
	defer cancel()

	root, cfg, err := loadProject()
	if err != nil {
		return err
	}

	restore, err := setupLogging(root, cfg)
	if err != nil {
		return err
	}
	defer restore()

	indexerConfig := cfg.ToIndexerConfig(root)
	progress := newProgressReporter(cmd.OutOrStdout(), quietFlag, cfg.Logging.Verbose)

	return executeIndex(ctx, indexerConfig, progress, watchFlag)
}

// executeIndex runs one full index and, when watch is set, keeps the
// inventory current until ctx is cancelled.
func executeIndex(ctx context.Context, indexerConfig *indexer.Config, progress indexer.ProgressReporter, watch bool) error {
	idx, err := indexer.NewWithProgress(indexerConfig, progress)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}
	defer idx.Close()

	stats, err := idx.Index(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("indexing cancelled")
		}
		return fmt.Errorf("indexing failed: %w", err)
	}

	if !watch {
		if stats.FilesFailed > 0 {
			return fmt.Errorf("%d of %d files failed to extract", stats.FilesFailed, stats.FilesDiscovered)
		}
		return nil
	}

	log.Println("Watching for changes (Ctrl+C to stop)...")
	if err := idx.Watch(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch mode failed: %w", err)
	}
	log.Println("Watch mode stopped")
	return nil
}
