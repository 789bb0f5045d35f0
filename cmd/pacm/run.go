package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [script]",
	Short: "Run a package.json script",
	Long: `Run the named script from package.json with node_modules/.bin prepended
to PATH. With no argument, lists available scripts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			if len(m.Manifest.Scripts) == 0 {
				fmt.Println("no scripts defined")
				return nil
			}
			names := make([]string, 0, len(m.Manifest.Scripts))
			for name := range m.Manifest.Scripts {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("%s\n  %s\n", name, m.Manifest.Scripts[name])
			}
			return nil
		}
		return m.RunScript(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
