// Package events defines the progress events a run emits and the bus that
// fans them out to any number of consumers.
//
// For one package the order is PackageStarted, then PackageOutput lines,
// then PackageFinished. Events of different packages interleave freely.
package events

import (
	"time"

	"github.com/kbukum/melos/task"
)

// Kind names an event type on the wire.
type Kind string

const (
	KindCommandStarted  Kind = "command_started"
	KindCommandFinished Kind = "command_finished"
	KindPackageStarted  Kind = "package_started"
	KindPackageOutput   Kind = "package_output"
	KindPackageFinished Kind = "package_finished"
	KindProgress        Kind = "progress"
	KindWarning         Kind = "warning"
	KindInfo            Kind = "info"
)

// Event is one of the concrete event types below. The set is closed: only
// types in this package implement it, so a type switch over them is
// exhaustive.
type Event interface {
	Kind() Kind
	event()
}

// CommandStarted opens a run.
type CommandStarted struct {
	RunID        string `json:"run_id"`
	Command      string `json:"command"`
	PackageCount int    `json:"package_count"`
}

// CommandFinished closes a run.
type CommandFinished struct {
	RunID    string        `json:"run_id"`
	Command  string        `json:"command"`
	Duration time.Duration `json:"duration"`
}

// PackageStarted is emitted when a package's command is spawned.
type PackageStarted struct {
	Name string `json:"name"`
}

// PackageOutput carries one line of a package's output.
type PackageOutput struct {
	Name     string `json:"name"`
	Line     string `json:"line"`
	IsStderr bool   `json:"is_stderr"`
}

// PackageFinished is emitted once per package with its terminal outcome.
// Skipped packages get one without a preceding PackageStarted.
type PackageFinished struct {
	Name     string        `json:"name"`
	Outcome  task.Outcome  `json:"outcome"`
	Duration time.Duration `json:"duration"`
}

// Progress reports how many packages reached a terminal outcome.
type Progress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Message   string `json:"message,omitempty"`
}

// Warning reports a degraded but non-fatal condition.
type Warning struct {
	Message string `json:"message"`
}

// Info reports an informational notice.
type Info struct {
	Message string `json:"message"`
}

func (CommandStarted) Kind() Kind  { return KindCommandStarted }
func (CommandFinished) Kind() Kind { return KindCommandFinished }
func (PackageStarted) Kind() Kind  { return KindPackageStarted }
func (PackageOutput) Kind() Kind   { return KindPackageOutput }
func (PackageFinished) Kind() Kind { return KindPackageFinished }
func (Progress) Kind() Kind        { return KindProgress }
func (Warning) Kind() Kind         { return KindWarning }
func (Info) Kind() Kind            { return KindInfo }

func (CommandStarted) event()  {}
func (CommandFinished) event() {}
func (PackageStarted) event()  {}
func (PackageOutput) event()   {}
func (PackageFinished) event() {}
func (Progress) event()        {}
func (Warning) event()         {}
func (Info) event()            {}

// PackageName returns the package an event concerns, or "" for run-level
// events.
func PackageName(e Event) string {
	switch ev := e.(type) {
	case PackageStarted:
		return ev.Name
	case PackageOutput:
		return ev.Name
	case PackageFinished:
		return ev.Name
	default:
		return ""
	}
}
