// Package task defines the unit of work handed to the runner and the
// outcomes it reports back.
package task

import (
	"fmt"
	"time"
)

// Task is one command to run against one package. It is built by the caller
// and opaque to the scheduler.
type Task struct {
	// Package is the name of the package the task belongs to.
	Package string
	// Command is the fully resolved shell command.
	Command    string
	Env        map[string]string
	WorkingDir string
	// Timeout bounds the command's run time. Zero means no timeout.
	Timeout time.Duration
}

// Status is the terminal state of a task.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	StatusTimedOut
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed_out"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result of a task. ExitCode is only meaningful for
// StatusFailed; spawn failures use -1.
type Outcome struct {
	Status   Status `json:"status"`
	ExitCode int    `json:"exit_code,omitempty"`
}

func Succeeded() Outcome { return Outcome{Status: StatusSucceeded} }

func Failed(exitCode int) Outcome { return Outcome{Status: StatusFailed, ExitCode: exitCode} }

func TimedOut() Outcome { return Outcome{Status: StatusTimedOut} }

func Skipped() Outcome { return Outcome{Status: StatusSkipped} }

// IsFailure reports whether the outcome trips fail-fast.
func (o Outcome) IsFailure() bool {
	return o.Status == StatusFailed || o.Status == StatusTimedOut
}

func (o Outcome) String() string {
	if o.Status == StatusFailed {
		return fmt.Sprintf("failed(exit %d)", o.ExitCode)
	}
	return o.Status.String()
}

// Result is the record of one task after it reached a terminal outcome.
type Result struct {
	Package  string        `json:"package"`
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Stdout   []string      `json:"stdout,omitempty"`
	Stderr   []string      `json:"stderr,omitempty"`
}

// Summary aggregates the results of a run. Failed counts both failed and
// timed out tasks.
type Summary struct {
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"total_duration"`
	Results  []Result      `json:"results,omitempty"`
}

// Add counts r and appends it to the results.
func (s *Summary) Add(r Result) {
	switch r.Outcome.Status {
	case StatusSucceeded:
		s.Passed++
	case StatusFailed, StatusTimedOut:
		s.Failed++
	case StatusSkipped:
		s.Skipped++
	}
	s.Results = append(s.Results, r)
}

// Total returns the number of tasks that reached a terminal outcome.
func (s Summary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// Success reports whether no task failed or timed out.
func (s Summary) Success() bool {
	return s.Failed == 0
}

// Result returns the result for pkg, if recorded.
func (s Summary) Result(pkg string) (Result, bool) {
	for _, r := range s.Results {
		if r.Package == pkg {
			return r, true
		}
	}
	return Result{}, false
}
