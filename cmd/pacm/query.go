package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <package>",
	Short: "Show registry information for a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		meta, err := m.Registry.FetchMetadata(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", meta.Name)
		fmt.Printf("  versions: %d\n", len(meta.Versions))

		tags := make([]string, 0, len(meta.DistTags))
		for tag := range meta.DistTags {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			fmt.Printf("  %s: %s\n", tag, meta.DistTags[tag])
		}

		if latest, ok := meta.Versions[meta.DistTags["latest"]]; ok {
			fmt.Printf("  dependencies: %d\n", len(latest.Dependencies))
			if latest.Dist.Tarball != "" {
				fmt.Printf("  tarball: %s\n", latest.Dist.Tarball)
			}
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		results, err := m.Registry.Search(cmd.Context(), args[0], 20)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("no results")
			return nil
		}
		for _, r := range results {
			fmt.Printf("%s@%s\n", r.Name, r.Version)
			if r.Description != "" {
				fmt.Printf("  %s\n", r.Description)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd, searchCmd)
}
