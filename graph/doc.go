// Package graph provides the package dependency graph of a workspace.
//
// An edge A -> B means "A depends on B". The graph is not assumed to be
// acyclic: local path dependencies can form cycles, so every ordering query
// detects and reports them.
//
//	g, err := graph.New(packages)
//	order, err := g.TopologicalOrder(nil) // dependencies first
//	cycles := g.DetectCycles()
package graph
