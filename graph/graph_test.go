package graph

import (
	stderrors "errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/workspace"
)

func pkgs(edges map[string][]string) []workspace.Package {
	var out []workspace.Package
	for name, deps := range edges {
		out = append(out, workspace.Package{Name: name, Path: "/ws/" + name, Dependencies: deps})
	}
	slices.SortFunc(out, func(a, b workspace.Package) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func mustNew(t *testing.T, edges map[string][]string) *Graph {
	t.Helper()
	g, err := New(pkgs(edges))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

func names(ps []workspace.Package) []string {
	return workspace.Names(ps)
}

// --- Build tests ---

func TestNew_DanglingDependency(t *testing.T) {
	_, err := New(pkgs(map[string][]string{"ui": {"core"}}))
	if !stderrors.Is(err, errors.ErrDanglingDependency) {
		t.Fatalf("expected DanglingDependency, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Details["dependency"] != "core" {
		t.Errorf("expected dependency detail core, got %v", appErr.Details)
	}
}

func TestNew_DuplicatePackage(t *testing.T) {
	_, err := New([]workspace.Package{{Name: "a"}, {Name: "a"}})
	if !stderrors.Is(err, errors.ErrDuplicatePackage) {
		t.Fatalf("expected DuplicatePackage, got %v", err)
	}
}

func TestDirectEdges(t *testing.T) {
	g := mustNew(t, map[string][]string{
		"core": nil,
		"ui":   {"core", "core"},
		"app":  {"ui", "core"},
	})
	if got := g.DirectDependencies("app"); !slices.Equal(got, []string{"core", "ui"}) {
		t.Errorf("expected [core ui], got %v", got)
	}
	if got := g.DirectDependencies("ui"); !slices.Equal(got, []string{"core"}) {
		t.Errorf("expected duplicates collapsed to [core], got %v", got)
	}
	if got := g.DirectDependents("core"); !slices.Equal(got, []string{"app", "ui"}) {
		t.Errorf("expected [app ui], got %v", got)
	}
	if g.DirectDependencies("missing") != nil {
		t.Error("expected nil for unknown package")
	}
	if g.Len() != 3 || !slices.Equal(g.Names(), []string{"app", "core", "ui"}) {
		t.Errorf("unexpected names %v", g.Names())
	}
}

func TestTransitiveClosure(t *testing.T) {
	g := mustNew(t, map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": {"b"},
		"d": nil,
	})
	if got := g.TransitiveDependencies("c"); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", got)
	}
	if got := g.TransitiveDependents("a"); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("expected [b c], got %v", got)
	}
	if got := g.TransitiveDependencies("d"); len(got) != 0 {
		t.Errorf("expected no dependencies, got %v", got)
	}
}

func TestTransitiveClosure_Cycle(t *testing.T) {
	g := mustNew(t, map[string][]string{"a": {"b"}, "b": {"a"}})
	if got := g.TransitiveDependencies("a"); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("expected closure to terminate with [a b], got %v", got)
	}
}

// --- Cycle tests ---

func TestDetectCycles_TwoNodeCycle(t *testing.T) {
	g := mustNew(t, map[string][]string{"a": {"b"}, "b": {"a"}})

	cycles := g.DetectCycles()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %v", cycles)
	}
	if !slices.Equal(cycles[0], []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", cycles[0])
	}

	_, err := g.TopologicalOrder(nil)
	if !stderrors.Is(err, errors.ErrCycleDetected) {
		t.Fatalf("expected CycleDetected, got %v", err)
	}
	if got := errors.Packages(err); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestDetectCycles_SelfLoop(t *testing.T) {
	g := mustNew(t, map[string][]string{"a": {"a"}, "b": nil})
	cycles := g.DetectCycles()
	if len(cycles) != 1 || !slices.Equal(cycles[0], []string{"a"}) {
		t.Errorf("expected [[a]], got %v", cycles)
	}
}

func TestDetectCycles_Acyclic(t *testing.T) {
	g := mustNew(t, map[string][]string{"a": nil, "b": {"a"}, "c": {"a", "b"}})
	if cycles := g.DetectCycles(); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestDetectCyclesIn_Subset(t *testing.T) {
	g := mustNew(t, map[string][]string{"a": {"b"}, "b": {"a"}, "c": nil, "d": {"c"}})

	cycles, err := g.DetectCyclesIn([]string{"c", "d", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cycles) != 0 {
		t.Errorf("cycle edges outside the subset must not count, got %v", cycles)
	}
	if _, err := g.DetectCyclesIn([]string{"zzz"}); !stderrors.Is(err, errors.ErrUnknownPackage) {
		t.Errorf("expected UnknownPackage, got %v", err)
	}
}

func TestDetectCycles_MultipleCycles(t *testing.T) {
	g := mustNew(t, map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"c": {"d"},
		"d": {"e"},
		"e": {"c"},
		"f": {"a"},
	})
	cycles := g.DetectCycles()
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %v", cycles)
	}
	if !slices.Equal(cycles[0], []string{"a", "b"}) || !slices.Equal(cycles[1], []string{"c", "d", "e"}) {
		t.Errorf("unexpected cycles %v", cycles)
	}

	_, err := g.TopologicalOrder(nil)
	if got := errors.Packages(err); !slices.Equal(got, []string{"a", "b", "c", "d", "e", "f"}) {
		t.Errorf("expected every blocked package to be named, got %v", got)
	}
}

// --- Order tests ---

func TestTopologicalOrder_TieBreakByName(t *testing.T) {
	g := mustNew(t, map[string][]string{
		"zeta":  nil,
		"alpha": nil,
		"mid":   {"zeta"},
		"app":   {"mid", "alpha"},
	})
	order, err := g.TopologicalOrder(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"alpha", "zeta", "mid", "app"}
	if got := names(order); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTopologicalOrder_SubsetIgnoresOutsideEdges(t *testing.T) {
	g := mustNew(t, map[string][]string{"a": nil, "b": {"a"}, "c": {"b"}})
	order, err := g.TopologicalOrder([]string{"c", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := names(order); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("expected [a c], got %v", got)
	}
}

// randomDAG builds a random acyclic graph where package i may only depend on
// packages with a lower index.
func randomDAG(r *rand.Rand, n int) map[string][]string {
	edges := make(map[string][]string, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("p%02d", i)
		edges[name] = nil
		for j := 0; j < i; j++ {
			if r.Intn(4) == 0 {
				edges[name] = append(edges[name], fmt.Sprintf("p%02d", j))
			}
		}
	}
	return edges
}

func TestTopologicalOrder_RespectsEveryEdge(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 25; round++ {
		edges := randomDAG(r, 15)
		g := mustNew(t, edges)

		var subset []string
		for _, n := range g.Names() {
			if r.Intn(3) != 0 {
				subset = append(subset, n)
			}
		}
		order, err := g.TopologicalOrder(subset)
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", round, err)
		}
		cycles, _ := g.DetectCyclesIn(subset)
		if len(cycles) != 0 {
			t.Fatalf("round %d: acyclic subset reported cycles %v", round, cycles)
		}
		pos := make(map[string]int, len(order))
		for i, p := range order {
			pos[p.Name] = i
		}
		for _, a := range subset {
			for _, b := range edges[a] {
				if _, ok := pos[b]; ok && pos[b] > pos[a] {
					t.Fatalf("round %d: %s depends on %s but comes first", round, a, b)
				}
			}
		}
	}
}

func TestCyclesIffOrderFails(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for round := 0; round < 25; round++ {
		edges := randomDAG(r, 8)
		if round%2 == 0 {
			// close a back edge to create a cycle
			edges["p00"] = append(edges["p00"], "p07")
		}
		g := mustNew(t, edges)
		cycles := g.DetectCycles()
		_, err := g.TopologicalOrder(nil)
		if (len(cycles) > 0) != (err != nil) {
			t.Fatalf("round %d: cycles=%v but order error=%v", round, cycles, err)
		}
	}
}

func TestLevels(t *testing.T) {
	g := mustNew(t, map[string][]string{
		"core":  nil,
		"utils": nil,
		"ui":    {"core"},
		"app":   {"ui", "utils"},
	})
	levels, err := g.Levels(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]string{{"core", "utils"}, {"ui"}, {"app"}}
	if len(levels) != len(want) {
		t.Fatalf("expected %d levels, got %v", len(want), levels)
	}
	for i := range want {
		if !slices.Equal(levels[i], want[i]) {
			t.Errorf("level %d: expected %v, got %v", i, want[i], levels[i])
		}
	}

	cyclic := mustNew(t, map[string][]string{"a": {"b"}, "b": {"a"}})
	if _, err := cyclic.Levels(nil); !stderrors.Is(err, errors.ErrCycleDetected) {
		t.Errorf("expected CycleDetected, got %v", err)
	}
}

// --- Output tests ---

func TestDOT(t *testing.T) {
	g := mustNew(t, map[string][]string{"my-core": nil, "my-ui": {"my-core"}})
	out, err := g.DOT(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"digraph packages {",
		"rankdir=LR;",
		"node [shape=box];",
		`my_core [label="my-core"];`,
		"my_ui -> my_core;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestMermaid(t *testing.T) {
	g := mustNew(t, map[string][]string{"a": nil, "b": {"a"}})
	out, err := g.Mermaid([]string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "graph LR\n") || !strings.Contains(out, "b --> a") {
		t.Errorf("unexpected mermaid output:\n%s", out)
	}
}
