// Package scheduler decides when each selected package may run.
//
// In dependency order a package becomes ready the moment every one of its
// dependencies inside the selection has reached a terminal outcome, so
// independent branches interleave freely instead of waiting for level
// barriers.
package scheduler

import (
	"container/heap"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/graph"
	"github.com/kbukum/melos/task"
)

// Options controls plan construction.
type Options struct {
	// OrderDependents makes every package wait for its dependencies.
	OrderDependents bool
	// SkipDependentsOnFailure marks a package Skipped, without running it,
	// when a dependency did not succeed. Only meaningful with
	// OrderDependents.
	SkipDependentsOnFailure bool
}

type nodeState int

const (
	waiting nodeState = iota
	ready
	dispatched
	finished
)

// Plan is the dynamic ready set of one run. It is not safe for concurrent
// use; the runner drives it from a single goroutine.
type Plan struct {
	opts Options

	state      map[string]nodeState
	pending    map[string]int
	blocked    map[string]bool
	dependents map[string][]string
	ready      readyHeap

	remaining int
	order     []string
}

// New plans subset against g. Unknown names fail with UnknownPackage. In
// dependency order, any cycle among the members fails with CycleDetected
// and nothing is planned.
func New(g *graph.Graph, subset []string, opts Options) (*Plan, error) {
	if subset == nil {
		subset = []string{}
	}
	p := &Plan{
		opts:       opts,
		state:      make(map[string]nodeState, len(subset)),
		pending:    make(map[string]int, len(subset)),
		blocked:    make(map[string]bool),
		dependents: make(map[string][]string),
	}

	in := make(map[string]bool, len(subset))
	for _, n := range subset {
		if _, ok := g.Package(n); !ok {
			return nil, errors.UnknownPackage(n)
		}
		if in[n] {
			continue
		}
		in[n] = true
		p.order = append(p.order, n)
	}
	p.remaining = len(p.order)

	if opts.OrderDependents && len(p.order) > 0 {
		cycles, err := g.DetectCyclesIn(p.order)
		if err != nil {
			return nil, err
		}
		if len(cycles) > 0 {
			return nil, errors.Cycles(cycles)
		}
		for _, n := range p.order {
			for _, d := range g.DirectDependencies(n) {
				if in[d] {
					p.pending[n]++
					p.dependents[d] = append(p.dependents[d], n)
				}
			}
		}
	}

	for _, n := range p.order {
		if p.pending[n] == 0 {
			p.markReady(n)
		}
	}
	return p, nil
}

// Len returns the number of planned packages.
func (p *Plan) Len() int { return len(p.order) }

// Names returns the planned packages in the order they were given.
func (p *Plan) Names() []string {
	return append([]string(nil), p.order...)
}

// Remaining returns the number of packages without a terminal outcome.
func (p *Plan) Remaining() int { return p.remaining }

// Ready returns the number of packages waiting to be dequeued.
func (p *Plan) Ready() int { return p.ready.Len() }

// Done reports whether every package reached a terminal outcome.
func (p *Plan) Done() bool { return p.remaining == 0 }

// Next dequeues the ready package with the smallest name. It returns false
// when nothing is ready right now, which does not mean the plan is done.
func (p *Plan) Next() (string, bool) {
	if p.ready.Len() == 0 {
		return "", false
	}
	n := heap.Pop(&p.ready).(string)
	p.state[n] = dispatched
	return n, true
}

// Complete records the terminal outcome of a dequeued package and releases
// its dependents. It returns the packages that were skipped as a
// consequence, in the order they were resolved. Those are terminal already
// and must not be completed again.
func (p *Plan) Complete(name string, status task.Status) []string {
	if p.state[name] != dispatched {
		return nil
	}
	var skipped []string
	p.finish(name, status, &skipped)
	return skipped
}

func (p *Plan) finish(name string, status task.Status, skipped *[]string) {
	p.state[name] = finished
	p.remaining--

	for _, d := range p.dependents[name] {
		if status != task.StatusSucceeded && p.opts.SkipDependentsOnFailure {
			p.blocked[d] = true
		}
		p.pending[d]--
		if p.pending[d] > 0 {
			continue
		}
		if p.blocked[d] {
			*skipped = append(*skipped, d)
			p.finish(d, task.StatusSkipped, skipped)
			continue
		}
		p.markReady(d)
	}
}

func (p *Plan) markReady(n string) {
	p.state[n] = ready
	heap.Push(&p.ready, n)
}

type readyHeap []string

func (h readyHeap) Len() int           { return len(h) }
func (h readyHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h readyHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *readyHeap) Push(x any)        { *h = append(*h, x.(string)) }
func (h *readyHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}
