package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/mvp-joe/cdoc/internal/config"
	"github.com/spf13/cobra"
)

var initForce bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .cdoc/config.yml",
	Long: `Init writes the default configuration to .cdoc/config.yml in the project
root. Edit it to change the include and ignore globs, the extraction backend,
doc comment handling, worker count and storage locations.

An existing file is left alone unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := resolveProjectRoot()
	if err != nil {
		return err
	}
	return executeInit(cmd.OutOrStdout(), root, initForce)
}

func executeInit(out io.Writer, root string, force bool) error {
	path, err := config.WriteDefault(root, force)
	if errors.Is(err, config.ErrConfigExists) {
		return fmt.Errorf("%w (use --force to overwrite)", err)
	}
	if err != nil {
		return err
	}

	successColor.Fprintf(out, "✓ Wrote %s\n", path)
	fmt.Fprintln(out, "Run 'cdoc index' to build the inventory")
	return nil
}
