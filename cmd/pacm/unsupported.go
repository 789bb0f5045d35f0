package main

import (
	"github.com/spf13/cobra"

	"github.com/pacm-sh/pacm/internal/errs"
)

// publish and self-update are recognized so help text and exit codes stay
// stable, but this build does not ship them.

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the current package to the registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return &errs.ArgumentError{Arg: "publish", Reason: "not supported in this build"}
	},
}

var selfUpdateCmd = &cobra.Command{
	Use:   "self-update",
	Short: "Update pacm itself",
	RunE: func(cmd *cobra.Command, args []string) error {
		return &errs.ArgumentError{Arg: "self-update", Reason: "not supported in this build"}
	},
}

func init() {
	rootCmd.AddCommand(publishCmd, selfUpdateCmd)
}
