package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kbukum/melos/task"
)

// Environment variables injected into package commands.
const (
	EnvRootPath             = "MELOS_ROOT_PATH"
	EnvSDKPath              = "MELOS_SDK_PATH"
	EnvPackageName          = "MELOS_PACKAGE_NAME"
	EnvPackagePath          = "MELOS_PACKAGE_PATH"
	EnvPackageVersion       = "MELOS_PACKAGE_VERSION"
	EnvParentPackageName    = "MELOS_PARENT_PACKAGE_NAME"
	EnvParentPackagePath    = "MELOS_PARENT_PACKAGE_PATH"
	EnvParentPackageVersion = "MELOS_PARENT_PACKAGE_VERSION"
)

// Workspace is the snapshot handed to a single run. It is passed explicitly
// and never held globally.
type Workspace struct {
	RootPath string
	Packages []Package
	// SDKPath, when set, is exported and its bin directory is put first on PATH.
	SDKPath string
	// Env holds extra variables applied to every command.
	Env map[string]string
}

// EnvVars returns the workspace-scoped variables.
func (w *Workspace) EnvVars() map[string]string {
	env := make(map[string]string, len(w.Env)+3)
	for k, v := range w.Env {
		env[k] = v
	}
	env[EnvRootPath] = w.RootPath
	if w.SDKPath != "" {
		env[EnvSDKPath] = w.SDKPath
		bin := filepath.Join(w.SDKPath, "bin")
		if path := os.Getenv("PATH"); path != "" {
			env["PATH"] = bin + string(os.PathListSeparator) + path
		} else {
			env["PATH"] = bin
		}
	}
	return env
}

// PackageEnv returns the workspace variables plus the package-scoped ones
// for pkg, including the parent package of example packages.
func (w *Workspace) PackageEnv(pkg Package) map[string]string {
	env := w.EnvVars()
	env[EnvPackageName] = pkg.Name
	env[EnvPackagePath] = pkg.Path
	if pkg.Version != "" {
		env[EnvPackageVersion] = pkg.Version
	}
	if parent, ok := w.ParentOf(pkg); ok {
		env[EnvParentPackageName] = parent.Name
		env[EnvParentPackagePath] = parent.Path
		if parent.Version != "" {
			env[EnvParentPackageVersion] = parent.Version
		}
	}
	return env
}

// ParentOf finds the package an example package belongs to. A package is an
// example child when its name ends in "example" and its path lies inside
// another package; the deepest such package wins.
func (w *Workspace) ParentOf(pkg Package) (Package, bool) {
	if !strings.HasSuffix(pkg.Name, "example") {
		return Package{}, false
	}
	var best Package
	found := false
	for _, candidate := range w.Packages {
		if candidate.Name == pkg.Name {
			continue
		}
		if !candidate.Contains(pkg.Path) {
			continue
		}
		if !found || len(filepath.Clean(candidate.Path)) > len(filepath.Clean(best.Path)) {
			best = candidate
			found = true
		}
	}
	return best, found
}

// Tasks builds one execution task per package, running command in the
// package root with the injected environment.
func (w *Workspace) Tasks(command string, pkgs []Package, timeout time.Duration) map[string]task.Task {
	tasks := make(map[string]task.Task, len(pkgs))
	for _, pkg := range pkgs {
		tasks[pkg.Name] = task.Task{
			Package:    pkg.Name,
			Command:    command,
			Env:        w.PackageEnv(pkg),
			WorkingDir: pkg.Path,
			Timeout:    timeout,
		}
	}
	return tasks
}
