// Package workspace holds the package model supplied by manifest discovery
// and the environment injected into every command run against a package.
package workspace

import (
	"path/filepath"
	"slices"
	"strings"
)

// Package is one unit of buildable code in the workspace. It is supplied by
// a discovery collaborator and treated as read-only.
type Package struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version"`
	// Path is the absolute package root.
	Path      string `json:"path" yaml:"path"`
	IsFlutter bool   `json:"flutter" yaml:"flutter"`
	// Dependencies lists intra-workspace dependencies by name.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies"`
	IsPrivate    bool     `json:"private" yaml:"private"`
	Categories   []string `json:"categories,omitempty" yaml:"categories"`
}

// DependsOn reports whether name is a direct dependency of p.
func (p Package) DependsOn(name string) bool {
	return slices.Contains(p.Dependencies, name)
}

// InCategory reports whether p is tagged with category.
func (p Package) InCategory(category string) bool {
	return slices.Contains(p.Categories, category)
}

// Contains reports whether path lies under the package root. Relative paths
// are not resolved; callers pass absolute paths.
func (p Package) Contains(path string) bool {
	return isUnder(filepath.Clean(path), filepath.Clean(p.Path))
}

// isUnder reports whether child equals parent or is nested inside it,
// comparing whole path components.
func isUnder(child, parent string) bool {
	if child == parent {
		return true
	}
	if !strings.HasSuffix(parent, string(filepath.Separator)) {
		parent += string(filepath.Separator)
	}
	return strings.HasPrefix(child, parent)
}

// Names returns the names of pkgs in their input order.
func Names(pkgs []Package) []string {
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	return names
}
