package graph

import (
	"slices"
	"strings"
)

type visitState int

const (
	unvisited visitState = iota
	onStack
	done
)

// DetectCycles returns the cycles of the whole graph. It is empty when the
// graph is acyclic.
func (g *Graph) DetectCycles() [][]string {
	cycles, _ := g.DetectCyclesIn(nil)
	return cycles
}

// DetectCyclesIn returns the cycles formed by edges between members of
// subset. It runs a depth-first search with a recursion stack: a back edge
// to a node still on the stack yields the stack slice from that node to the
// current one. Nodes and edges are visited in ascending name order, so the
// result is deterministic. Each cycle is reported once.
func (g *Graph) DetectCyclesIn(subset []string) ([][]string, error) {
	in, err := g.subset(subset)
	if err != nil {
		return nil, err
	}

	state := make(map[string]visitState, len(in))
	var stack []string
	var cycles [][]string
	seen := make(map[string]bool)

	var visit func(n string)
	visit = func(n string) {
		state[n] = onStack
		stack = append(stack, n)
		for _, dep := range g.internalDependencies(n, in) {
			switch state[dep] {
			case unvisited:
				visit(dep)
			case onStack:
				idx := slices.Index(stack, dep)
				cycle := slices.Clone(stack[idx:])
				if key := cycleKey(cycle); !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
	}

	for _, n := range g.names {
		if in[n] && state[n] == unvisited {
			visit(n)
		}
	}
	return cycles, nil
}

// cycleKey identifies a cycle independent of its starting node.
func cycleKey(cycle []string) string {
	start := 0
	for i, n := range cycle {
		if n < cycle[start] {
			start = i
		}
	}
	rotated := append(slices.Clone(cycle[start:]), cycle[:start]...)
	return strings.Join(rotated, "\x00")
}
