package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mvp-joe/cdoc/internal/cache"
	"github.com/mvp-joe/cdoc/internal/indexer"
	"github.com/mvp-joe/cdoc/internal/mcp"
	"github.com/spf13/cobra"
)

var cleanQuietFlag bool
var cleanAllFlag bool
var cleanPruneFlag bool
var cleanPolicy = cache.DefaultEvictionPolicy()

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete the inventory database to force a full reindex",
	Long: `Clean removes the project's inventory database (.cdoc/inventory.db by
default) together with its SQLite journal files. The next 'cdoc index' run
rebuilds it from scratch.

With --all the shared extraction cache (~/.cdoc/cache by default) is emptied
as well, so every file is extracted again instead of being served from cache.

With --prune only the extraction cache is touched: entries unused for
--max-age-days are removed, then the least recently used ones until the cache
fits in --max-size-mb. The inventory database is kept.

The configuration file (.cdoc/config.yml) is preserved.

Use cases:
  - Corrupted or outdated database
  - Suspected stale cache entries
  - Debugging extraction issues

Examples:
  # Remove the inventory database
  cdoc clean

  # Also empty the extraction cache
  cdoc clean --all

  # Trim the extraction cache to 100 MB
  cdoc clean --prune --max-size-mb 100

  # Clean with minimal output
  cdoc clean --quiet
`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVarP(&cleanQuietFlag, "quiet", "q", false, "Suppress output messages")
	cleanCmd.Flags().BoolVarP(&cleanAllFlag, "all", "a", false, "Also empty the extraction cache")
	cleanCmd.Flags().BoolVar(&cleanPruneFlag, "prune", false, "Only evict stale extraction cache entries")
	cleanCmd.Flags().IntVar(&cleanPolicy.MaxAgeDays, "max-age-days", cleanPolicy.MaxAgeDays, "With --prune, evict entries unused for this many days (0 disables)")
	cleanCmd.Flags().Float64Var(&cleanPolicy.MaxSizeMB, "max-size-mb", cleanPolicy.MaxSizeMB, "With --prune, evict least recently used entries above this size (0 disables)")
	cleanCmd.MarkFlagsMutuallyExclusive("all", "prune")
}

func runClean(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProject()
	if err != nil {
		return err
	}

	if cleanPruneFlag {
		return executePrune(cmd.OutOrStdout(), cfg.Storage.CacheLocation, cleanPolicy, cleanQuietFlag)
	}

	dbPath := mcp.ResolveDatabasePath(root, cfg.Storage.Database)
	return executeClean(cmd.OutOrStdout(), dbPath, cfg.Storage.CacheLocation, cleanQuietFlag, cleanAllFlag)
}

// databaseSidecars are the files SQLite keeps next to a database.
var databaseSidecars = []string{"", "-wal", "-shm", "-journal"}

func executeClean(out io.Writer, dbPath, cacheLocation string, quiet, all bool) error {
	var removed int
	var sizeMB float64
	for _, suffix := range databaseSidecars {
		path := dbPath + suffix
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed++
		sizeMB += float64(info.Size()) / (1024 * 1024)
	}

	if !quiet {
		switch {
		case removed == 0:
			fmt.Fprintf(out, "No inventory database found at %s\n", dbPath)
		case sizeMB > 0:
			successColor.Fprintf(out, "✓ Removed inventory database (~%.1f MB)\n", sizeMB)
		default:
			successColor.Fprintln(out, "✓ Removed inventory database")
		}
	}

	if all {
		if err := dropCache(out, cacheLocation, quiet); err != nil {
			return err
		}
	}

	if !quiet && (removed > 0 || all) {
		fmt.Fprintln(out, "Next 'cdoc index' will perform a full reindex")
	}
	return nil
}

// dropCache empties the disk extraction cache unless it is disabled.
func dropCache(out io.Writer, cacheLocation string, quiet bool) error {
	store, err := openExistingCache(out, cacheLocation, quiet)
	if err != nil || store == nil {
		return err
	}
	if err := store.DropAll(); err != nil {
		return fmt.Errorf("failed to empty cache: %w", err)
	}

	if !quiet {
		successColor.Fprintf(out, "✓ Emptied extraction cache at %s\n", store.Dir())
	}
	return nil
}

// executePrune evicts stale disk cache entries according to policy.
func executePrune(out io.Writer, cacheLocation string, policy cache.EvictionPolicy, quiet bool) error {
	store, err := openExistingCache(out, cacheLocation, quiet)
	if err != nil || store == nil {
		return err
	}
	result, err := store.Evict(policy)
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}

	if !quiet {
		successColor.Fprintf(out, "✓ Pruned %s cache entries (~%.1f MB freed, ~%.1f MB left)\n",
			formatNumber(result.EvictedEntries), result.FreedMB, result.RemainingMB)
	}
	return nil
}

// openExistingCache returns the disk store for cacheLocation, or nil when
// the cache is disabled or was never created.
func openExistingCache(out io.Writer, cacheLocation string, quiet bool) (*cache.DiskStore, error) {
	if cacheLocation == indexer.CacheDisabled {
		if !quiet {
			fmt.Fprintln(out, "Extraction cache is disabled, nothing to clean")
		}
		return nil, nil
	}

	dir, err := cache.ResolveDir(cacheLocation)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if !quiet {
			fmt.Fprintf(out, "No extraction cache found at %s\n", dir)
		}
		return nil, nil
	}
	return cache.OpenDiskStore(dir)
}
