package graph

import (
	"slices"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/util"
	"github.com/kbukum/melos/workspace"
)

// Graph is an immutable view over a set of packages and their direct
// dependency edges. It is safe for concurrent reads.
type Graph struct {
	packages     map[string]workspace.Package
	names        []string
	dependencies map[string][]string
	dependents   map[string][]string
}

// New builds a graph from pkgs. It fails with DuplicatePackage when two
// packages share a name and with DanglingDependency when a dependency names
// a package outside the set.
func New(pkgs []workspace.Package) (*Graph, error) {
	g := &Graph{
		packages:     make(map[string]workspace.Package, len(pkgs)),
		dependencies: make(map[string][]string, len(pkgs)),
		dependents:   make(map[string][]string, len(pkgs)),
	}
	for _, p := range pkgs {
		if _, dup := g.packages[p.Name]; dup {
			return nil, errors.DuplicatePackage(p.Name)
		}
		g.packages[p.Name] = p
	}
	for _, p := range pkgs {
		deps := util.Unique(p.Dependencies)
		slices.Sort(deps)
		for _, dep := range deps {
			if _, ok := g.packages[dep]; !ok {
				return nil, errors.DanglingDependency(p.Name, dep)
			}
			g.dependents[dep] = append(g.dependents[dep], p.Name)
		}
		g.dependencies[p.Name] = deps
	}
	for name := range g.dependents {
		slices.Sort(g.dependents[name])
	}
	g.names = util.SortedKeys(g.packages)
	return g, nil
}

// Len returns the number of packages.
func (g *Graph) Len() int { return len(g.names) }

// Names returns every package name in ascending order.
func (g *Graph) Names() []string {
	return slices.Clone(g.names)
}

// Package returns the package called name.
func (g *Graph) Package(name string) (workspace.Package, bool) {
	p, ok := g.packages[name]
	return p, ok
}

// Packages returns every package in ascending name order.
func (g *Graph) Packages() []workspace.Package {
	out := make([]workspace.Package, len(g.names))
	for i, n := range g.names {
		out[i] = g.packages[n]
	}
	return out
}

// DirectDependencies returns the packages name depends on, sorted.
func (g *Graph) DirectDependencies(name string) []string {
	return slices.Clone(g.dependencies[name])
}

// DirectDependents returns the packages depending on name, sorted.
func (g *Graph) DirectDependents(name string) []string {
	return slices.Clone(g.dependents[name])
}

// TransitiveDependencies returns every package reachable from name by
// following dependency edges, sorted. name itself is only included when it
// sits on a cycle.
func (g *Graph) TransitiveDependencies(name string) []string {
	return g.closure(name, g.dependencies)
}

// TransitiveDependents returns every package that reaches name by following
// dependency edges, sorted.
func (g *Graph) TransitiveDependents(name string) []string {
	return g.closure(name, g.dependents)
}

func (g *Graph) closure(start string, edges map[string][]string) []string {
	visited := make(map[string]struct{})
	stack := slices.Clone(edges[start])
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[n]; seen {
			continue
		}
		visited[n] = struct{}{}
		stack = append(stack, edges[n]...)
	}
	return util.SortedKeys(visited)
}

// subset resolves names to a membership set. A nil slice selects every
// package.
func (g *Graph) subset(names []string) (map[string]bool, error) {
	if names == nil {
		names = g.names
	}
	in := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := g.packages[n]; !ok {
			return nil, errors.UnknownPackage(n)
		}
		in[n] = true
	}
	return in, nil
}

// internalDependencies returns the dependencies of name that are members of
// in, sorted.
func (g *Graph) internalDependencies(name string, in map[string]bool) []string {
	var deps []string
	for _, d := range g.dependencies[name] {
		if in[d] {
			deps = append(deps, d)
		}
	}
	return deps
}
