package scheduler

import (
	stderrors "errors"
	"slices"
	"testing"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/graph"
	"github.com/kbukum/melos/task"
	"github.com/kbukum/melos/workspace"
)

func newGraph(t *testing.T, edges map[string][]string) *graph.Graph {
	t.Helper()
	var pkgs []workspace.Package
	for name, deps := range edges {
		pkgs = append(pkgs, workspace.Package{Name: name, Path: "/ws/" + name, Dependencies: deps})
	}
	g, err := graph.New(pkgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

func drainReady(p *Plan) []string {
	var out []string
	for {
		n, ok := p.Next()
		if !ok {
			return out
		}
		out = append(out, n)
	}
}

// --- Construction tests ---

func TestNew_UnknownPackage(t *testing.T) {
	g := newGraph(t, map[string][]string{"a": nil})
	_, err := New(g, []string{"a", "zz"}, Options{})
	if !stderrors.Is(err, errors.ErrUnknownPackage) {
		t.Fatalf("expected UnknownPackage, got %v", err)
	}
}

func TestNew_CycleRejectedWhenOrdered(t *testing.T) {
	g := newGraph(t, map[string][]string{"a": {"b"}, "b": {"a"}, "c": nil})
	_, err := New(g, []string{"a", "b", "c"}, Options{OrderDependents: true})
	if !stderrors.Is(err, errors.ErrCycleDetected) {
		t.Fatalf("expected CycleDetected, got %v", err)
	}
	if got := errors.Packages(err); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("expected cycle members [a b], got %v", got)
	}
}

func TestNew_CycleOutsideSubsetIgnored(t *testing.T) {
	g := newGraph(t, map[string][]string{"a": {"b"}, "b": {"a"}, "c": nil})
	p, err := New(g, []string{"c"}, Options{OrderDependents: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Len() != 1 {
		t.Errorf("expected 1 planned package, got %d", p.Len())
	}
}

func TestNew_CycleAllowedWhenUnordered(t *testing.T) {
	g := newGraph(t, map[string][]string{"a": {"b"}, "b": {"a"}})
	p, err := New(g, []string{"a", "b"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := drainReady(p); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("expected all ready, got %v", got)
	}
}

func TestNew_EmptySubset(t *testing.T) {
	g := newGraph(t, map[string][]string{"a": {"b"}, "b": {"a"}})
	p, err := New(g, nil, Options{OrderDependents: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Done() {
		t.Error("expected an empty plan to be done")
	}
}

// --- Ready set tests ---

func TestPlan_ReleasesDependentsAsPrerequisitesFinish(t *testing.T) {
	// core <- net <- app ; core <- ui
	g := newGraph(t, map[string][]string{
		"core": nil,
		"net":  {"core"},
		"ui":   {"core"},
		"app":  {"net", "ui"},
	})
	p, err := New(g, []string{"app", "core", "net", "ui"}, Options{OrderDependents: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := drainReady(p); !slices.Equal(got, []string{"core"}) {
		t.Fatalf("expected [core] ready, got %v", got)
	}
	p.Complete("core", task.StatusSucceeded)
	if got := drainReady(p); !slices.Equal(got, []string{"net", "ui"}) {
		t.Fatalf("expected [net ui] ready, got %v", got)
	}
	p.Complete("ui", task.StatusSucceeded)
	if _, ok := p.Next(); ok {
		t.Fatal("app must wait for net")
	}
	p.Complete("net", task.StatusSucceeded)
	if got := drainReady(p); !slices.Equal(got, []string{"app"}) {
		t.Fatalf("expected [app] ready, got %v", got)
	}
	p.Complete("app", task.StatusSucceeded)
	if !p.Done() {
		t.Errorf("expected plan done, %d remaining", p.Remaining())
	}
}

func TestPlan_DependencyOutsideSubsetDoesNotBlock(t *testing.T) {
	g := newGraph(t, map[string][]string{"core": nil, "ui": {"core"}})
	p, err := New(g, []string{"ui"}, Options{OrderDependents: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := drainReady(p); !slices.Equal(got, []string{"ui"}) {
		t.Errorf("expected [ui] ready, got %v", got)
	}
}

func TestPlan_FailureStillReleasesWithoutSkip(t *testing.T) {
	g := newGraph(t, map[string][]string{"core": nil, "ui": {"core"}})
	p, _ := New(g, []string{"core", "ui"}, Options{OrderDependents: true})

	drainReady(p)
	skipped := p.Complete("core", task.StatusFailed)
	if len(skipped) != 0 {
		t.Errorf("expected no skips, got %v", skipped)
	}
	if got := drainReady(p); !slices.Equal(got, []string{"ui"}) {
		t.Errorf("expected [ui] ready, got %v", got)
	}
}

func TestPlan_SkipsTransitiveDependentsOnFailure(t *testing.T) {
	g := newGraph(t, map[string][]string{
		"core":  nil,
		"net":   {"core"},
		"app":   {"net"},
		"other": nil,
	})
	p, _ := New(g, []string{"app", "core", "net", "other"},
		Options{OrderDependents: true, SkipDependentsOnFailure: true})

	if got := drainReady(p); !slices.Equal(got, []string{"core", "other"}) {
		t.Fatalf("expected [core other] ready, got %v", got)
	}
	skipped := p.Complete("core", task.StatusTimedOut)
	if !slices.Equal(skipped, []string{"net", "app"}) {
		t.Errorf("expected [net app] skipped, got %v", skipped)
	}
	if p.Remaining() != 1 {
		t.Errorf("expected only other remaining, got %d", p.Remaining())
	}
	p.Complete("other", task.StatusSucceeded)
	if !p.Done() {
		t.Error("expected plan done")
	}
}

func TestPlan_SkipWaitsForAllPrerequisites(t *testing.T) {
	g := newGraph(t, map[string][]string{"a": nil, "b": nil, "c": {"a", "b"}})
	p, _ := New(g, []string{"a", "b", "c"},
		Options{OrderDependents: true, SkipDependentsOnFailure: true})

	drainReady(p)
	if skipped := p.Complete("a", task.StatusFailed); len(skipped) != 0 {
		t.Fatalf("c must wait for b before it is skipped, got %v", skipped)
	}
	if skipped := p.Complete("b", task.StatusSucceeded); !slices.Equal(skipped, []string{"c"}) {
		t.Errorf("expected [c] skipped, got %v", skipped)
	}
}

func TestPlan_CompleteIgnoresUndispatched(t *testing.T) {
	g := newGraph(t, map[string][]string{"a": nil})
	p, _ := New(g, []string{"a"}, Options{OrderDependents: true})
	p.Complete("a", task.StatusSucceeded)
	if p.Done() {
		t.Error("completing a package that was never dequeued must be a no-op")
	}
}

// Every package must be dequeued after all its in-subset dependencies
// completed, whatever order completions arrive in.
func TestPlan_OrderProperty(t *testing.T) {
	edges := map[string][]string{
		"a": nil, "b": {"a"}, "c": {"a"}, "d": {"b", "c"},
		"e": nil, "f": {"e", "d"}, "g": {"f"}, "h": {"a", "e"},
	}
	g := newGraph(t, edges)
	p, err := New(g, g.Names(), Options{OrderDependents: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	completed := map[string]bool{}
	var inflight []string
	for !p.Done() {
		inflight = append(inflight, drainReady(p)...)
		if len(inflight) == 0 {
			t.Fatal("stalled with packages remaining")
		}
		// complete the most recently dispatched first
		n := inflight[len(inflight)-1]
		inflight = inflight[:len(inflight)-1]
		for _, d := range edges[n] {
			if !completed[d] {
				t.Fatalf("%s dispatched before dependency %s completed", n, d)
			}
		}
		completed[n] = true
		p.Complete(n, task.StatusSucceeded)
	}
	if len(completed) != len(edges) {
		t.Errorf("expected %d completions, got %d", len(edges), len(completed))
	}
}
