package events

import (
	"time"

	"github.com/kbukum/melos/task"
)

// Line is one captured output line.
type Line struct {
	Text     string
	IsStderr bool
}

// Block is the complete output of one package, as a renderer prints it
// under a single header.
type Block struct {
	Name     string
	Lines    []Line
	Outcome  task.Outcome
	Duration time.Duration
	// Started is false for packages that were skipped without running.
	Started bool
}

// Grouper rebuilds per-package output blocks from an interleaved event
// stream. Feed it every event in order; it returns a block each time a
// package finishes. A Grouper is not safe for concurrent use.
type Grouper struct {
	open map[string]*Block
}

// NewGrouper creates an empty grouper.
func NewGrouper() *Grouper {
	return &Grouper{open: make(map[string]*Block)}
}

// Add consumes e. It returns the finished block and true when e is a
// PackageFinished.
func (g *Grouper) Add(e Event) (Block, bool) {
	switch ev := e.(type) {
	case PackageStarted:
		g.block(ev.Name).Started = true
	case PackageOutput:
		b := g.block(ev.Name)
		b.Lines = append(b.Lines, Line{Text: ev.Line, IsStderr: ev.IsStderr})
	case PackageFinished:
		b := g.block(ev.Name)
		b.Outcome = ev.Outcome
		b.Duration = ev.Duration
		delete(g.open, ev.Name)
		return *b, true
	}
	return Block{}, false
}

// Pending returns the names of packages that started but have not finished.
func (g *Grouper) Pending() []string {
	names := make([]string, 0, len(g.open))
	for n := range g.open {
		names = append(names, n)
	}
	return names
}

func (g *Grouper) block(name string) *Block {
	b, ok := g.open[name]
	if !ok {
		b = &Block{Name: name}
		g.open[name] = b
	}
	return b
}

// Group replays a full event stream and returns the blocks in the order
// packages finished.
func Group(stream []Event) []Block {
	g := NewGrouper()
	var blocks []Block
	for _, e := range stream {
		if b, ok := g.Add(e); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}
