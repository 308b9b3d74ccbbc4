package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	projectDir string
	verbose    bool
	logFile    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cdoc",
	Short: "cdoc - C/C++ symbol and documentation extractor",
	Long: `cdoc extracts functions, classes, structs, namespaces and fields from C and
C++ sources together with the documentation comments attached to them.

Extract a few files directly, or index a whole project into SQLite and search
it from the command line or from an MCP-capable coding assistant.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", "", "project root (default is the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write log output to this file (overrides logging.file)")
}
