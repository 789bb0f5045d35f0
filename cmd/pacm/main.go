// Command pacm is an npm-compatible package manager.
package main

import (
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pacm-sh/pacm/internal/errs"
	"github.com/pacm-sh/pacm/internal/linker"
)

const version = "0.1.0"

var (
	flagForce bool
	flagDev   bool
)

var rootCmd = &cobra.Command{
	Use:     "pacm",
	Short:   "A fast npm-compatible package manager",
	Version: version,
	Long: `pacm installs npm packages into a project-local node_modules directory,
keeps a deterministic pacm.lockp lockfile, and caches downloaded tarballs
under ~/.pacm-cache for reuse across projects.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	log.SetReportTimestamp(false)

	rootCmd.Flags().BoolP("version", "v", false, "print the pacm version")
	rootCmd.PersistentFlags().BoolVarP(&flagForce, "force", "f", false, "re-fetch and re-extract even when already installed")
	rootCmd.PersistentFlags().BoolVarP(&flagDev, "dev", "D", false, "operate on devDependencies")
	rootCmd.SetVersionTemplate("pacm {{.Version}}\n")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the pacm version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("pacm %s\n", version)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatal(err)
	}
}

// fatal prints the single categorized error line and exits non-zero.
// Errors outside the taxonomy at this boundary, such as cobra usage
// failures, are reported with the argument tag.
func fatal(err error) {
	tag := errs.TagArgument
	var tagged errs.Tagged
	if errors.As(err, &tagged) {
		tag = tagged.Tag()
	}
	log.Error(err.Error(), "tag", tag)
	os.Exit(1)
}

// newManager loads project state for the current directory.
func newManager() (*linker.Manager, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, &errs.FilesystemError{Path: ".", Err: err}
	}
	return linker.NewManager(cwd)
}
