package graph

import (
	"fmt"
	"strings"
)

// DOT renders the members of subset as a Graphviz digraph. Edges point from
// a package to its dependencies. Node IDs replace '-' with '_'; the label
// keeps the real name.
func (g *Graph) DOT(subset []string) (string, error) {
	in, err := g.subset(subset)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("digraph packages {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")
	for _, n := range g.names {
		if !in[n] {
			continue
		}
		fmt.Fprintf(&b, "  %s [label=%q];\n", nodeID(n), n)
		for _, d := range g.internalDependencies(n, in) {
			fmt.Fprintf(&b, "  %s -> %s;\n", nodeID(n), nodeID(d))
		}
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// Mermaid renders the members of subset as a Mermaid flowchart.
func (g *Graph) Mermaid(subset []string) (string, error) {
	in, err := g.subset(subset)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("graph LR\n")
	for _, n := range g.names {
		if !in[n] {
			continue
		}
		fmt.Fprintf(&b, "  %s[%s]\n", nodeID(n), n)
		for _, d := range g.internalDependencies(n, in) {
			fmt.Fprintf(&b, "  %s --> %s\n", nodeID(n), nodeID(d))
		}
	}
	return b.String(), nil
}

func nodeID(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
