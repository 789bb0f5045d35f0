package main

import (
	"github.com/spf13/cobra"

	"github.com/pacm-sh/pacm/internal/linker"
)

var updateCmd = &cobra.Command{
	Use:   "update [packages...]",
	Short: "Update installed packages to their newest versions",
	Long: `Update the named packages, or all direct dependencies when no names are
given. Packages that are not in package.json are skipped; update never
adds new dependencies.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		report, err := m.Update(cmd.Context(), linker.UpdateOptions{
			Names:         args,
			Force:         flagForce,
			IgnoreScripts: flagIgnoreScripts,
		})
		if err != nil {
			return err
		}
		printInstallReport(report)
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVar(&flagIgnoreScripts, "ignore-scripts", false, "do not run postinstall scripts")
	rootCmd.AddCommand(updateCmd)
}
