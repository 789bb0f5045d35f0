package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "remove <packages...>",
	Aliases: []string{"rm", "uninstall"},
	Short:   "Remove packages and their dependency trees",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		report, err := m.Remove(cmd.Context(), args)
		if err != nil {
			return err
		}
		for _, name := range report.Removed {
			fmt.Printf("- %s\n", name)
		}
		fmt.Printf("%d removed\n", len(report.Removed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
