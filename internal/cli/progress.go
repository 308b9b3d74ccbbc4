package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/mvp-joe/cdoc/internal/indexer"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter implements progress reporting with progress bars.
type CLIProgressReporter struct {
	out     io.Writer
	quiet   bool
	verbose bool

	mu             sync.Mutex
	fileBar        *progressbar.ProgressBar
	startTime      time.Time
	totalFiles     int
	processedFiles int
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to stdout.
func NewCLIProgressReporter(quiet, verbose bool) *CLIProgressReporter {
	return newProgressReporter(os.Stdout, quiet, verbose)
}

func newProgressReporter(out io.Writer, quiet, verbose bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		out:       out,
		quiet:     quiet,
		verbose:   verbose,
		startTime: time.Now(),
	}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	if c.quiet {
		return
	}
	log.Println("Discovering files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(sourceFiles int) {
	if c.quiet {
		return
	}
	log.Printf("Processing %s source files\n", formatNumber(sourceFiles))
}

func (c *CLIProgressReporter) OnFileProcessingStart(totalFiles int) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalFiles = totalFiles
	c.processedFiles = 0
	if totalFiles == 0 || c.verbose {
		c.fileBar = nil
		return
	}

	out := c.out
	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Extracting files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
	)
}

// OnFileProcessed is called from worker goroutines.
func (c *CLIProgressReporter) OnFileProcessed(fileName string) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.processedFiles++
	if c.verbose {
		log.Printf("[%d/%d] %s\n", c.processedFiles, c.totalFiles, fileName)
		return
	}
	if c.fileBar != nil {
		c.fileBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnWritingResults() {
	if c.quiet {
		return
	}
	c.mu.Lock()
	if c.fileBar != nil {
		c.fileBar.Finish()
		c.fileBar = nil
	}
	c.mu.Unlock()
	log.Println("Writing inventory...")
}

func (c *CLIProgressReporter) OnComplete(stats *indexer.Stats) {
	if c.quiet {
		return
	}
	printIndexSummary(c.out, stats)
}

// printIndexSummary prints the coloured end-of-run report.
func printIndexSummary(out io.Writer, stats *indexer.Stats) {
	fmt.Fprintln(out)
	successColor.Fprintf(out, "✓ Indexing complete: %s symbols from %s files in %.1fs\n",
		formatNumber(stats.Symbols),
		formatNumber(stats.FilesExtracted),
		stats.Duration.Seconds())
	fmt.Fprintf(out, "  Cached:    %s\n", formatNumber(stats.FilesCached))
	fmt.Fprintf(out, "  Removed:   %s\n", formatNumber(stats.FilesRemoved))
	if stats.FilesFailed > 0 {
		failColor.Fprintf(out, "  Failed:    %s\n", formatNumber(stats.FilesFailed))
	}
	if stats.Truncated > 0 {
		warnColor.Fprintf(out, "  Truncated: %s (unterminated declarations)\n", formatNumber(stats.Truncated))
	}
}
