package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/contentgraph/internal/log"
	"github.com/zjrosen/contentgraph/internal/templates"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [DIR]",
	Short: "Write a starter dimension configuration and node types",
	Long: `Write dimensions.yaml and a NodeTypes directory with a small site model
(homepage, pages, text and image content) into DIR, the current directory by
default. The default config already points at these paths.

Existing files are never touched unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		written, err := templates.WriteSite(dir, initForce)
		if err != nil {
			return err
		}
		log.Info(log.CatConfig, "starter project written", "dir", dir, "files", len(written))
		for _, path := range written {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing files")
	rootCmd.AddCommand(initCmd)
}
