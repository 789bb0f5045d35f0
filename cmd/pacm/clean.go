package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pacm-sh/pacm/internal/cache"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the tarball cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.Default()
		if err != nil {
			return err
		}

		removed, err := store.Clean()
		if err != nil {
			return err
		}
		if removed {
			fmt.Printf("removed %s\n", store.Root())
		} else {
			fmt.Println("cache is already empty")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
