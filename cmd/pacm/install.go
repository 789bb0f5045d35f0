package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pacm-sh/pacm/internal/linker"
)

var flagIgnoreScripts bool

var installCmd = &cobra.Command{
	Use:     "install [packages...]",
	Aliases: []string{"i", "add"},
	Short:   "Install packages and their dependencies",
	Long: `Install the named packages, or, with no arguments, the packages recorded
in pacm.lockp (falling back to the package.json dependency maps).

Specs take the form name[@range] or alias@npm:name@range; scoped names
keep their @scope/ prefix.

Examples:
  pacm install lodash@4.17.21
  pacm install @types/node -D
  pacm install my-lodash@npm:lodash@^4.0.0
  pacm install`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		report, err := m.Install(cmd.Context(), linker.InstallOptions{
			Specs:         args,
			Force:         flagForce,
			Dev:           flagDev,
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
	installCmd.Flags().BoolVar(&flagIgnoreScripts, "ignore-scripts", false, "do not run postinstall scripts")
	rootCmd.AddCommand(installCmd)
}

func printInstallReport(report *linker.Report) {
	for _, name := range report.Installed {
		fmt.Printf("+ %s\n", name)
	}
	summary := fmt.Sprintf("%d installed, %d already installed", len(report.Installed), len(report.AlreadyInstalled))
	if len(report.UpToDate) > 0 {
		summary = fmt.Sprintf("%d updated, %d up-to-date", len(report.Installed), len(report.UpToDate))
	}
	if len(report.SkippedOptional) > 0 {
		summary += fmt.Sprintf(", %d optional skipped", len(report.SkippedOptional))
	}
	fmt.Println(summary)
}
