package filter

import (
	"github.com/kbukum/melos/util"
)

// Spec selects packages. Every field is an independent dimension: values
// inside a list dimension are OR'd, dimensions are AND'd. The two Include
// flags expand the selection after the predicates ran.
//
// Keys follow the packageFilters section of melos.yaml.
type Spec struct {
	// Scope keeps packages whose name matches at least one glob.
	Scope []string `yaml:"scope" mapstructure:"scope" json:"scope,omitempty"`
	// Ignore drops packages whose name matches any glob.
	Ignore []string `yaml:"ignore" mapstructure:"ignore" json:"ignore,omitempty"`
	// Flutter keeps Flutter (true) or non-Flutter (false) packages.
	Flutter *bool `yaml:"flutter" mapstructure:"flutter" json:"flutter,omitempty"`
	// DirExists keeps packages containing this relative directory.
	DirExists string `yaml:"dirExists" mapstructure:"dirExists" json:"dirExists,omitempty"`
	// FileExists keeps packages containing this relative file.
	FileExists string `yaml:"fileExists" mapstructure:"fileExists" json:"fileExists,omitempty"`
	// DependsOn keeps packages that directly depend on every listed package.
	DependsOn []string `yaml:"dependsOn" mapstructure:"dependsOn" json:"dependsOn,omitempty"`
	// NoDependsOn keeps packages that depend on none of the listed packages.
	NoDependsOn []string `yaml:"noDependsOn" mapstructure:"noDependsOn" json:"noDependsOn,omitempty"`
	// Category keeps packages tagged with this category.
	Category string `yaml:"category" mapstructure:"category" json:"category,omitempty"`
	// ChangedSince is a git ref; packages containing a file changed since it are kept.
	ChangedSince string `yaml:"diff" mapstructure:"diff" json:"diff,omitempty"`
	// NoPrivate drops private packages.
	NoPrivate bool `yaml:"noPrivate" mapstructure:"noPrivate" json:"noPrivate,omitempty"`
	// Published keeps public (true) or private (false) packages.
	Published *bool `yaml:"published" mapstructure:"published" json:"published,omitempty"`

	IncludeDependencies bool `yaml:"includeDependencies" mapstructure:"includeDependencies" json:"includeDependencies,omitempty"`
	IncludeDependents   bool `yaml:"includeDependents" mapstructure:"includeDependents" json:"includeDependents,omitempty"`
}

// IsEmpty reports whether the spec selects every package unchanged.
func (s Spec) IsEmpty() bool {
	return len(s.Scope) == 0 &&
		len(s.Ignore) == 0 &&
		s.Flutter == nil &&
		s.DirExists == "" &&
		s.FileExists == "" &&
		len(s.DependsOn) == 0 &&
		len(s.NoDependsOn) == 0 &&
		s.Category == "" &&
		s.ChangedSince == "" &&
		!s.NoPrivate &&
		s.Published == nil &&
		!s.IncludeDependencies &&
		!s.IncludeDependents
}

// Merge composes a base spec (script level) with an overlay (command line).
// List dimensions become the sorted set union of both sides. Optional
// values take the overlay's value when it is set, otherwise the base's.
// Flags are set when either side sets them.
func Merge(base, overlay Spec) Spec {
	return Spec{
		Scope:               util.Union(base.Scope, overlay.Scope),
		Ignore:              util.Union(base.Ignore, overlay.Ignore),
		Flutter:             util.Coalesce(base.Flutter, overlay.Flutter),
		DirExists:           coalesce(base.DirExists, overlay.DirExists),
		FileExists:          coalesce(base.FileExists, overlay.FileExists),
		DependsOn:           util.Union(base.DependsOn, overlay.DependsOn),
		NoDependsOn:         util.Union(base.NoDependsOn, overlay.NoDependsOn),
		Category:            coalesce(base.Category, overlay.Category),
		ChangedSince:        coalesce(base.ChangedSince, overlay.ChangedSince),
		NoPrivate:           base.NoPrivate || overlay.NoPrivate,
		Published:           util.Coalesce(base.Published, overlay.Published),
		IncludeDependencies: base.IncludeDependencies || overlay.IncludeDependencies,
		IncludeDependents:   base.IncludeDependents || overlay.IncludeDependents,
	}
}

func coalesce(base, overlay string) string {
	if overlay != "" {
		return overlay
	}
	return base
}
