// Package filter selects the packages a command runs against.
package filter

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/graph"
	"github.com/kbukum/melos/logger"
	"github.com/kbukum/melos/workspace"
)

// ChangeDetector resolves a git ref to the absolute paths of files changed
// since that ref.
type ChangeDetector interface {
	ChangedFiles(ctx context.Context, ref string) ([]string, error)
}

// ChangeDetectorFunc adapts a function to ChangeDetector.
type ChangeDetectorFunc func(ctx context.Context, ref string) ([]string, error)

// ChangedFiles calls f.
func (f ChangeDetectorFunc) ChangedFiles(ctx context.Context, ref string) ([]string, error) {
	return f(ctx, ref)
}

// Engine evaluates specs against the packages of a graph. It holds no state
// between calls.
type Engine struct {
	graph   *graph.Graph
	fs      afero.Fs
	changes ChangeDetector
	warn    func(message string)
	log     *logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFs sets the filesystem used for dirExists and fileExists checks.
func WithFs(fs afero.Fs) Option {
	return func(e *Engine) { e.fs = fs }
}

// WithChangeDetector sets the collaborator resolving ChangedSince.
func WithChangeDetector(d ChangeDetector) Option {
	return func(e *Engine) { e.changes = d }
}

// WithWarningHandler receives warnings such as a failed change lookup.
func WithWarningHandler(fn func(message string)) Option {
	return func(e *Engine) { e.warn = fn }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an engine over the full package graph g.
func New(g *graph.Graph, opts ...Option) *Engine {
	e := &Engine{
		graph: g,
		fs:    afero.NewOsFs(),
		warn:  func(string) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get(logger.ComponentFilter)
	}
	return e
}

// Apply returns the packages selected by spec in ascending name order.
// A malformed glob fails the whole call with InvalidFilterPattern before
// any package is evaluated.
func (e *Engine) Apply(ctx context.Context, spec Spec) ([]workspace.Package, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}

	var changed []string
	if spec.ChangedSince != "" {
		changed = e.changedFiles(ctx, spec.ChangedSince)
	}

	selected := make(map[string]bool)
	for _, p := range e.graph.Packages() {
		if e.matches(p, spec, changed) {
			selected[p.Name] = true
		}
	}

	if spec.IncludeDependencies || spec.IncludeDependents {
		var extra []string
		for name := range selected {
			if spec.IncludeDependencies {
				extra = append(extra, e.graph.TransitiveDependencies(name)...)
			}
			if spec.IncludeDependents {
				extra = append(extra, e.graph.TransitiveDependents(name)...)
			}
		}
		for _, name := range extra {
			selected[name] = true
		}
	}

	var out []workspace.Package
	for _, p := range e.graph.Packages() {
		if selected[p.Name] {
			out = append(out, p)
		}
	}

	e.log.Debug("filter applied", logger.Fields(
		"selected", len(out),
		"total", e.graph.Len(),
	))
	return out, nil
}

// Validate checks every glob in spec.
func Validate(spec Spec) error {
	for _, patterns := range [][]string{spec.Scope, spec.Ignore} {
		for _, p := range patterns {
			if _, err := filepath.Match(p, ""); err != nil {
				return errors.InvalidFilterPattern(p, err)
			}
		}
	}
	return nil
}

func (e *Engine) matches(p workspace.Package, spec Spec, changed []string) bool {
	if len(spec.Scope) > 0 && !matchAny(spec.Scope, p.Name) {
		return false
	}
	if matchAny(spec.Ignore, p.Name) {
		return false
	}
	if spec.Flutter != nil && p.IsFlutter != *spec.Flutter {
		return false
	}
	if spec.DirExists != "" {
		if ok, _ := afero.DirExists(e.fs, filepath.Join(p.Path, spec.DirExists)); !ok {
			return false
		}
	}
	if spec.FileExists != "" && !e.fileExists(filepath.Join(p.Path, spec.FileExists)) {
		return false
	}
	for _, dep := range spec.DependsOn {
		if !p.DependsOn(dep) {
			return false
		}
	}
	for _, dep := range spec.NoDependsOn {
		if p.DependsOn(dep) {
			return false
		}
	}
	if spec.Category != "" && !p.InCategory(spec.Category) {
		return false
	}
	if spec.ChangedSince != "" && !containsAny(p, changed) {
		return false
	}
	if spec.NoPrivate && p.IsPrivate {
		return false
	}
	if spec.Published != nil && p.IsPrivate == *spec.Published {
		return false
	}
	return true
}

func (e *Engine) fileExists(path string) bool {
	info, err := e.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// changedFiles resolves ref. A failing or missing detector degrades to an
// empty change set and a warning.
func (e *Engine) changedFiles(ctx context.Context, ref string) []string {
	if e.changes == nil {
		e.warn("no change detector configured, treating diff " + ref + " as no changes")
		return nil
	}
	files, err := e.changes.ChangedFiles(ctx, ref)
	if err != nil {
		e.log.WithError(err).Warn("change detection failed", logger.Fields("ref", ref))
		e.warn("could not resolve changes since " + ref + ": " + err.Error() + "; treating as no changes")
		return nil
	}
	return files
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

func containsAny(p workspace.Package, files []string) bool {
	for _, f := range files {
		if p.Contains(f) {
			return true
		}
	}
	return false
}
