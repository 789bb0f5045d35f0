package linker

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pacm-sh/pacm/internal/errs"
)

// runPostInstalls executes the postinstall script of every freshly
// materialized package. Failures are warnings; installation has already
// succeeded and integrity was verified before extraction.
func (m *Manager) runPostInstalls(ctx context.Context, installed []string) {
	for _, name := range installed {
		destDir := m.destDir(name)
		pkg, err := readInstalled(destDir)
		if err != nil || pkg.Scripts["postinstall"] == "" {
			continue
		}
		if err := m.runScript(ctx, destDir, pkg.Scripts["postinstall"]); err != nil {
			postErr := &errs.PostInstallError{Name: name, Err: err}
			logger.Warn("postinstall script failed", "tag", postErr.Tag(), "name", name, "err", err)
		}
	}
}

// runProjectPostInstall executes the project's own postinstall, if any.
func (m *Manager) runProjectPostInstall(ctx context.Context) {
	script := m.Manifest.Scripts["postinstall"]
	if script == "" {
		return
	}
	if err := m.runScript(ctx, m.ProjectDir, script); err != nil {
		postErr := &errs.PostInstallError{Name: m.Manifest.Name, Err: err}
		logger.Warn("project postinstall failed", "tag", postErr.Tag(), "err", err)
	}
}

// RunScript executes a named manifest script with node_modules/.bin on
// PATH, the behavior behind the run subcommand.
func (m *Manager) RunScript(ctx context.Context, name string) error {
	script, ok := m.Manifest.Scripts[name]
	if !ok {
		return &errs.ArgumentError{Arg: name, Reason: "no such script in package.json"}
	}
	return m.runScript(ctx, m.ProjectDir, script)
}

// runScript shells out to the ambient script host with dir as the working
// directory and the project's .bin directory prepended to PATH.
func (m *Manager) runScript(ctx context.Context, dir, script string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/c", script)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", script)
	}
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	binPath := filepath.Join(m.ProjectDir, NodeModulesDir, binDir)
	cmd.Env = append(os.Environ(), "PATH="+binPath+string(os.PathListSeparator)+os.Getenv("PATH"))
	return cmd.Run()
}
