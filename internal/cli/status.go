package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mvp-joe/cdoc/internal/mcp"
	"github.com/mvp-joe/cdoc/internal/storage"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the inventory database contains",
	Long: `Show the state of the project's inventory database.

Displays:
- Indexed files per language
- Total and truncated symbols
- When the project was last indexed
- Counters of the most recent index run`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

// statusReport is the JSON form of the status output.
type statusReport struct {
	Indexed     bool           `json:"indexed"`
	Database    string         `json:"database"`
	Files       int            `json:"files"`
	Languages   map[string]int `json:"languages,omitempty"`
	Symbols     int            `json:"symbols"`
	Truncated   int            `json:"truncated"`
	LastIndexed string         `json:"last_indexed,omitempty"`
	LatestRun   *runReport     `json:"latest_run,omitempty"`
}

type runReport struct {
	ID              string `json:"id"`
	Backend         string `json:"backend"`
	StartedAt       string `json:"started_at"`
	FinishedAt      string `json:"finished_at,omitempty"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
	FilesDiscovered int    `json:"files_discovered"`
	FilesExtracted  int    `json:"files_extracted"`
	FilesFailed     int    `json:"files_failed"`
	FilesCached     int    `json:"files_cached"`
	FilesRemoved    int    `json:"files_removed"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProject()
	if err != nil {
		return err
	}
	return executeStatus(cmd.OutOrStdout(), mcp.ResolveDatabasePath(root, cfg.Storage.Database), statusJSON)
}

func executeStatus(out io.Writer, dbPath string, asJSON bool) error {
	db, err := storage.Open(dbPath, true)
	if errors.Is(err, storage.ErrDatabaseNotFound) {
		report := &statusReport{Database: dbPath}
		if asJSON {
			return writeJSON(out, report)
		}
		fmt.Fprintln(out, "Not indexed yet. Run 'cdoc index' to build the inventory.")
		return nil
	}
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := collectStatus(db, dbPath)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(out, report)
	}
	formatStatus(out, report)
	return nil
}

func collectStatus(db *sql.DB, dbPath string) (*statusReport, error) {
	files, err := storage.NewFileReader(db).GetAllFiles()
	if err != nil {
		return nil, err
	}

	report := &statusReport{
		Indexed:   true,
		Database:  dbPath,
		Files:     len(files),
		Languages: make(map[string]int),
	}
	for _, f := range files {
		report.Languages[f.Language]++
		report.Symbols += f.SymbolCount
		report.Truncated += f.TruncatedCount
	}

	if report.LastIndexed, err = storage.GetMetadata(db, "last_indexed"); err != nil {
		return nil, err
	}

	run, err := storage.LatestRun(db)
	if err != nil {
		return nil, err
	}
	if run != nil {
		report.LatestRun = &runReport{
			ID:              run.ID,
			Backend:         run.Backend,
			StartedAt:       run.StartedAt.Format(time.RFC3339),
			Status:          run.Status,
			Error:           run.Error,
			FilesDiscovered: run.FilesDiscovered,
			FilesExtracted:  run.FilesExtracted,
			FilesFailed:     run.FilesFailed,
			FilesCached:     run.FilesCached,
			FilesRemoved:    run.FilesRemoved,
		}
		if !run.FinishedAt.IsZero() {
			report.LatestRun.FinishedAt = run.FinishedAt.Format(time.RFC3339)
		}
	}
	return report, nil
}

func formatStatus(out io.Writer, r *statusReport) {
	fmt.Fprintln(out, "Inventory:")
	fmt.Fprintf(out, "  Database:     %s\n", r.Database)
	fmt.Fprintf(out, "  Files:        %s%s\n", formatNumber(r.Files), formatLanguages(r.Languages))
	fmt.Fprintf(out, "  Symbols:      %s\n", formatNumber(r.Symbols))
	if r.Truncated > 0 {
		warnColor.Fprintf(out, "  Truncated:    %s\n", formatNumber(r.Truncated))
	}
	fmt.Fprintf(out, "  Last indexed: %s\n", formatTimeSince(parseUnix(r.LastIndexed)))

	if run := r.LatestRun; run != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Latest run:")
		fmt.Fprintf(out, "  ID:         %s\n", run.ID)
		fmt.Fprintf(out, "  Backend:    %s\n", run.Backend)
		switch {
		case run.FinishedAt == "":
			fmt.Fprintf(out, "  Status:     running (started %s)\n", formatTimeSince(parseUnix(run.StartedAt)))
		case run.Status == storage.RunFailed:
			failColor.Fprintf(out, "  Status:     failed: %s\n", run.Error)
		default:
			fmt.Fprintf(out, "  Discovered: %s\n", formatNumber(run.FilesDiscovered))
			fmt.Fprintf(out, "  Extracted:  %s (%s cached)\n", formatNumber(run.FilesExtracted), formatNumber(run.FilesCached))
			fmt.Fprintf(out, "  Removed:    %s\n", formatNumber(run.FilesRemoved))
			if run.FilesFailed > 0 {
				failColor.Fprintf(out, "  Failed:     %s\n", formatNumber(run.FilesFailed))
			}
		}
	}
}

// formatLanguages renders " (c: 3, cpp: 5)" in sorted order.
func formatLanguages(languages map[string]int) string {
	if len(languages) == 0 {
		return ""
	}
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)

	s := " ("
	for i, name := range names {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s: %s", name, formatNumber(languages[name]))
	}
	return s + ")"
}

// parseUnix converts an RFC3339 timestamp to Unix seconds, 0 when unset.
func parseUnix(value string) int64 {
	if value == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0
	}
	return t.Unix()
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
