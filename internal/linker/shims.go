package linker

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pacm-sh/pacm/internal/errs"
)

// binDir is the shim directory under node_modules.
const binDir = ".bin"

// writeShims creates node_modules/.bin/<binName> for each bin entry of an
// installed package. On Windows a companion .cmd shim is written as well.
func (m *Manager) writeShims(pkgName string, bin map[string]string) error {
	if len(bin) == 0 {
		return nil
	}
	dir := filepath.Join(m.ProjectDir, NodeModulesDir, binDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &errs.FilesystemError{Path: dir, Err: err}
	}

	for binName, rel := range bin {
		target := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel))), "./")

		shim := fmt.Sprintf("#!/bin/sh\nexec node \"$(dirname \"$0\")/../%s/%s\" \"$@\"\n", pkgName, target)
		shimPath := filepath.Join(dir, binName)
		if err := os.WriteFile(shimPath, []byte(shim), 0o755); err != nil {
			return &errs.FilesystemError{Path: shimPath, Err: err}
		}

		if runtime.GOOS == "windows" {
			winTarget := filepath.FromSlash(pkgName + "/" + target)
			cmd := fmt.Sprintf("@ECHO off\r\nnode \"%%~dp0\\..\\%s\" %%*\r\n", winTarget)
			cmdPath := shimPath + ".cmd"
			if err := os.WriteFile(cmdPath, []byte(cmd), 0o755); err != nil {
				return &errs.FilesystemError{Path: cmdPath, Err: err}
			}
		}
	}
	return nil
}

// removeShims deletes the shim files belonging to a package's bin map.
func (m *Manager) removeShims(bin map[string]string) {
	dir := filepath.Join(m.ProjectDir, NodeModulesDir, binDir)
	for binName := range bin {
		_ = os.Remove(filepath.Join(dir, binName))
		_ = os.Remove(filepath.Join(dir, binName+".cmd"))
	}
}
