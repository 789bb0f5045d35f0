package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		packages, err := m.List()
		if err != nil {
			return err
		}
		if len(packages) == 0 {
			fmt.Println("no packages installed")
			return nil
		}
		for _, pkg := range packages {
			marker := " "
			switch {
			case pkg.Direct && pkg.Dev:
				marker = "D"
			case pkg.Direct:
				marker = "*"
			}
			fmt.Printf("%s %s@%s\n", marker, pkg.Name, pkg.Version)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
