package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pacm-sh/pacm/internal/errs"
	"github.com/pacm-sh/pacm/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter package.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return &errs.FilesystemError{Path: ".", Err: err}
		}
		if project.Exists(cwd) {
			return &errs.ArgumentError{Arg: "init", Reason: "package.json already exists"}
		}

		manifest, err := project.LoadManifest(cwd)
		if err != nil {
			return err
		}
		manifest.Name = filepath.Base(cwd)
		manifest.Version = "1.0.0"
		if err := manifest.Save(); err != nil {
			return err
		}
		fmt.Println("created package.json")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
