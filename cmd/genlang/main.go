// Package main implements the genlang tool, which writes the built-in English
// messages as a JSON overlay that translators can copy and edit.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"tools.zach/dev/dropsminer/internal/catalog"
	"tools.zach/dev/dropsminer/internal/paths"
)

func newRootCmd(stdout io.Writer) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:           "genlang",
		Short:         "Write the base message catalog as a translation template",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create %s: %w", dir, err)
				}
			}
			if err := catalog.WriteTemplate(out); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "wrote %s\n", out)
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.Flags().StringVarP(&out, "output", "o",
		filepath.Join(paths.LangDir, catalog.DefaultLanguage+".json"), "Template output path")
	return cmd
}

func main() {
	cmd := newRootCmd(os.Stdout)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "genlang: %v\n", err)
		os.Exit(1)
	}
}
