package wasmut

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/operator"
)

func newListFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-files <module.wasm>",
		Short: "List source files seen in a module's debug info",
		Long:  "List source files seen in a module's debug info and whether the configured filter admits them.\n\n" + pathHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subj, err := loadSubject(args[0])
			if err != nil {
				return err
			}
			entries := discovery.Files(subj.module, subj.resolver, subj.pol)

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"File", "Allowed"})
			for _, e := range entries {
				table.Append([]string{e.Name, fmt.Sprintf("%v", e.Allowed)})
			}
			table.Render()
			return nil
		},
	}
}

func newListFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-functions <module.wasm>",
		Short: "List functions defined in a module",
		Long:  "List functions defined in a module and whether the configured filter admits them.\n\n" + pathHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subj, err := loadSubject(args[0])
			if err != nil {
				return err
			}
			entries := discovery.Functions(subj.module, subj.pol)

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Function", "Allowed"})
			for _, e := range entries {
				table.Append([]string{e.Name, fmt.Sprintf("%v", e.Allowed)})
			}
			table.Render()
			return nil
		},
	}
}

func newListOperatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-operators",
		Short: "List mutation operators and whether they are enabled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := cfg.Registry()
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Operator", "Enabled"})
			for _, name := range operator.Names() {
				table.Append([]string{name, fmt.Sprintf("%v", reg.Enabled(name))})
			}
			table.Render()
			return nil
		},
	}
}

func newListCandidatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-candidates <module.wasm>",
		Short: "List every discovered mutation candidate",
		Long:  "List every discovered mutation candidate, with its file, line, function, and operator.\n\n" + pathHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subj, err := loadSubject(args[0])
			if err != nil {
				return err
			}
			candidates, err := discovery.Discover(subj.module, subj.resolver, subj.registry, subj.pol)
			if err != nil {
				return err
			}
			if err := ui.DisplayDiscovery(cmd.Context(), candidates); err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "File", "Line", "Function", "Operator"})
			for _, c := range candidates {
				table.Append([]string{
					fmt.Sprintf("%d", c.ID),
					c.File,
					fmt.Sprintf("%d", c.Line),
					c.Function,
					c.Operator,
				})
			}
			table.Render()
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newListFilesCmd())
	rootCmd.AddCommand(newListFunctionsCmd())
	rootCmd.AddCommand(newListOperatorsCmd())
	rootCmd.AddCommand(newListCandidatesCmd())
}
