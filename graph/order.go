package graph

import (
	"container/heap"
	"slices"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/workspace"
)

// TopologicalOrder orders the members of subset so that every package comes
// after its dependencies. Only edges between members count. Ties are broken
// by ascending name, so the order is reproducible. A nil subset orders the
// whole graph.
//
// When a cycle blocks the order, a CycleDetected error names the packages
// that could not be placed.
func (g *Graph) TopologicalOrder(subset []string) ([]workspace.Package, error) {
	in, err := g.subset(subset)
	if err != nil {
		return nil, err
	}

	inDegree := make(map[string]int, len(in))
	dependents := make(map[string][]string, len(in))
	for n := range in {
		deps := g.internalDependencies(n, in)
		inDegree[n] = len(deps)
		for _, d := range deps {
			dependents[d] = append(dependents[d], n)
		}
	}

	ready := &nameHeap{}
	for n, deg := range inDegree {
		if deg == 0 {
			heap.Push(ready, n)
		}
	}

	order := make([]workspace.Package, 0, len(in))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(string)
		order = append(order, g.packages[n])
		for _, d := range dependents[n] {
			inDegree[d]--
			if inDegree[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}

	if len(order) != len(in) {
		var remaining []string
		for n, deg := range inDegree {
			if deg > 0 {
				remaining = append(remaining, n)
			}
		}
		return nil, errors.CycleDetected(remaining)
	}
	return order, nil
}

// Levels groups the members of subset by dependency depth: level 0 has no
// dependencies inside the subset, level n depends only on earlier levels.
// Packages in one level are independent of each other. Names in a level are
// sorted.
func (g *Graph) Levels(subset []string) ([][]string, error) {
	in, err := g.subset(subset)
	if err != nil {
		return nil, err
	}

	inDegree := make(map[string]int, len(in))
	dependents := make(map[string][]string, len(in))
	var queue []string
	for n := range in {
		deps := g.internalDependencies(n, in)
		inDegree[n] = len(deps)
		for _, d := range deps {
			dependents[d] = append(dependents[d], n)
		}
		if len(deps) == 0 {
			queue = append(queue, n)
		}
	}

	var levels [][]string
	visited := 0
	for len(queue) > 0 {
		slices.Sort(queue)
		levels = append(levels, queue)
		visited += len(queue)

		var next []string
		for _, n := range queue {
			for _, d := range dependents[n] {
				inDegree[d]--
				if inDegree[d] == 0 {
					next = append(next, d)
				}
			}
		}
		queue = next
	}

	if visited != len(in) {
		var remaining []string
		for n, deg := range inDegree {
			if deg > 0 {
				remaining = append(remaining, n)
			}
		}
		return nil, errors.CycleDetected(remaining)
	}
	return levels, nil
}

// nameHeap is a min-heap of package names.
type nameHeap []string

func (h nameHeap) Len() int           { return len(h) }
func (h nameHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h nameHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nameHeap) Push(x any)        { *h = append(*h, x.(string)) }
func (h *nameHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}
