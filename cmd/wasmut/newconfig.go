package wasmut

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"wasmut.dev/pkg/wasmut/internal/config"
)

func newNewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new-config [PATH]",
		Short: "Write a default, fully-commented wasmut.toml",
		Long: `Create a config file at PATH, or when PATH is omitted a wasmut.toml in
the current directory (or -C's directory), populated with every key
commented out, ready to be edited by hand.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := configDirFlag
			if dir == "" {
				dir = "."
			}
			path := filepath.Join(dir, config.DefaultFileName)
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.WriteDefaultConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newNewConfigCmd())
}
