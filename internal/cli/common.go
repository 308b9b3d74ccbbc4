package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mvp-joe/cdoc/internal/config"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
	failColor    = color.New(color.FgRed, color.Bold)
)

// resolveProjectRoot returns the absolute project root from --dir, falling
// back to the working directory.
func resolveProjectRoot() (string, error) {
	dir := projectDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return abs, nil
}

// loadProject resolves the project root and loads its configuration with
// the global flags applied on top.
func loadProject() (string, *config.Config, error) {
	root, err := resolveProjectRoot()
	if err != nil {
		return "", nil, err
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		cfg.Logging.Verbose = true
	}
	if logFile != "" {
		cfg.Logging.File = logFile
	}
	return root, cfg, nil
}

// setupLogging points the standard logger at logging.file when one is set.
// The returned function restores stderr and closes the file.
func setupLogging(root string, cfg *config.Config) (func(), error) {
	if cfg.Logging.File == "" {
		return func() {}, nil
	}

	path := cfg.Logging.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)

	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext(out io.Writer, message string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			if message != "" {
				fmt.Fprintln(out, message)
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// formatDuration formats a duration in compact format.
// Examples: "5s", "1m", "1h 30m", "2h", "1d", "1d 3h", "3d"
func formatDuration(d time.Duration) string {
	seconds := int(d.Seconds())

	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%dd %dh", days, hours)
		}
		return fmt.Sprintf("%dd", days)
	}

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}

	if minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}

	return fmt.Sprintf("%ds", secs)
}

// formatTimeSince formats Unix timestamp as time ago.
// Examples: "5m ago", "2h ago", "3d ago"
func formatTimeSince(unixSeconds int64) string {
	if unixSeconds == 0 {
		return "never"
	}

	since := time.Since(time.Unix(unixSeconds, 0))
	if since < time.Minute {
		return fmt.Sprintf("%ds ago", int(since.Seconds()))
	}
	return formatDuration(since) + " ago"
}

// formatNumber formats integer with thousand separators.
// Examples: 1234 -> "1,234", 1234567 -> "1,234,567"
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result []byte
	for i := 0; i < len(str); i++ {
		if i > 0 && (len(str)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, str[i])
	}
	return string(result)
}
