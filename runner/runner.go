// Package runner executes a plan: it spawns each package's command under a
// concurrency budget, streams its output as events and reports a summary.
//
// Fail-fast is cooperative. Once a package fails or times out, packages that
// have not started yet are recorded as Skipped; running ones finish normally
// and their output is delivered in full.
package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/events"
	"github.com/kbukum/melos/logger"
	"github.com/kbukum/melos/observability"
	"github.com/kbukum/melos/scheduler"
	"github.com/kbukum/melos/task"
)

// Runner runs plans with a fixed configuration. It holds no per-run state
// and may run several plans concurrently.
type Runner struct {
	cfg     Config
	exec    Executor
	log     *logger.Logger
	metrics *observability.Metrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor replaces the shell executor, typically in tests.
func WithExecutor(e Executor) Option {
	return func(r *Runner) { r.exec = e }
}

// WithLogger sets the logger. Defaults to the "runner" component logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithMeter records package and run metrics.
func WithMeter(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New creates a Runner. Unset config fields take their defaults.
func New(cfg Config, opts ...Option) *Runner {
	cfg.ApplyDefaults()
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get(logger.ComponentRunner)
	}
	if r.exec == nil {
		r.exec = ShellExecutor{GracePeriod: cfg.GracePeriod}
	}

	r.exec = WithTracing(r.exec)
	if r.metrics != nil {
		r.exec = WithMetrics(r.exec, r.metrics)
	}
	r.exec = WithLogging(r.exec, r.log)
	return r
}

// Config returns the effective configuration.
func (r *Runner) Config() Config { return r.cfg }

// Run executes every package of plan using tasks, publishing progress to
// bus, and returns once each package reached a terminal outcome.
//
// Package failures are reported in the summary. The error is non-nil only
// when tasks does not cover the plan, in which case nothing runs, or when
// ctx was canceled, in which case the summary is still complete.
func (r *Runner) Run(ctx context.Context, command string, plan *scheduler.Plan, tasks map[string]task.Task, bus events.Publisher) (task.Summary, error) {
	for _, name := range plan.Names() {
		if _, ok := tasks[name]; !ok {
			return task.Summary{}, errors.InvalidInput("tasks", fmt.Sprintf("no task for package %q", name))
		}
	}
	if bus == nil {
		bus = events.Discard
	}

	runID := uuid.NewString()
	ctx = logger.ContextWithRunID(ctx, runID)
	rc := observability.NewRunContext(runID, command, r.metrics)
	ctx, span := rc.StartSpan(ctx, plan.Len())
	log := r.log.WithContext(ctx)

	run := &run{
		Runner: r,
		ctx:    ctx,
		plan:   plan,
		tasks:  tasks,
		bus:    bus,
		sem:    semaphore.NewWeighted(int64(r.cfg.Concurrency)),
		done:   make(chan task.Result, plan.Len()),
		total:  plan.Len(),
	}

	bus.Publish(events.CommandStarted{RunID: runID, Command: command, PackageCount: plan.Len()})
	log.Info("run started", logger.Fields(
		logger.FieldCommand, command,
		logger.FieldCount, plan.Len(),
		"concurrency", r.cfg.Concurrency,
	))

	start := time.Now()
	err := run.loop()
	run.summary.Duration = time.Since(start)

	bus.Publish(events.CommandFinished{RunID: runID, Command: command, Duration: run.summary.Duration})

	status := "ok"
	if !run.summary.Success() {
		status = "failed"
	}
	if err != nil {
		status = "canceled"
	}
	rc.End(ctx, span, status, err)

	log.Info("run finished", logger.MergeWithDuration(logger.Fields(
		"passed", run.summary.Passed,
		"failed", run.summary.Failed,
		"skipped", run.summary.Skipped,
	), run.summary.Duration))

	return run.summary, err
}

// run is the state of one Run call. Only the coordinator goroutine touches
// it, except for sem and failed.
type run struct {
	*Runner

	ctx   context.Context
	plan  *scheduler.Plan
	tasks map[string]task.Task
	bus   events.Publisher

	sem    *semaphore.Weighted
	failed atomic.Bool
	done   chan task.Result

	running   int
	completed int
	total     int
	summary   task.Summary
}

func (r *run) loop() error {
	for !r.plan.Done() {
		if r.plan.Ready() == 0 {
			if r.running == 0 {
				return errors.Internal(fmt.Errorf("runner: %d packages left with nothing ready or running", r.plan.Remaining()))
			}
			r.record(<-r.done)
			continue
		}

		// A failed Acquire leaves the semaphore untouched.
		if err := r.sem.Acquire(r.ctx, 1); err != nil {
			name, _ := r.plan.Next()
			r.skip(name)
			continue
		}
		// The task that freed the permit has already posted its result;
		// fold it in so the ready set is current before dequeuing.
		r.collect()

		name, _ := r.plan.Next()
		if (r.cfg.FailFast && r.failed.Load()) || r.ctx.Err() != nil {
			r.sem.Release(1)
			r.skip(name)
			continue
		}

		r.running++
		go r.execute(r.tasks[name])
	}
	return r.ctx.Err()
}

// collect records every result already posted, without blocking.
func (r *run) collect() {
	for {
		select {
		case res := <-r.done:
			r.record(res)
		default:
			return
		}
	}
}

// execute runs on its own goroutine and is the only publisher of this
// package's Started, Output and Finished events, so their order holds.
func (r *run) execute(t task.Task) {
	r.bus.Publish(events.PackageStarted{Name: t.Package})

	res := r.exec.Execute(r.ctx, t, func(line string, isStderr bool) {
		r.bus.Publish(events.PackageOutput{Name: t.Package, Line: line, IsStderr: isStderr})
	})
	res.Package = t.Package

	r.bus.Publish(events.PackageFinished{Name: t.Package, Outcome: res.Outcome, Duration: res.Duration})

	// Flag and result go out before the permit, so whoever acquires it
	// next sees both.
	if res.Outcome.IsFailure() {
		r.failed.Store(true)
	}
	r.done <- res
	r.sem.Release(1)
}

// record handles a package that ran.
func (r *run) record(res task.Result) {
	r.running--
	r.finish(res)
	for _, name := range r.plan.Complete(res.Package, res.Outcome.Status) {
		r.skipped(name)
	}
}

// skip handles a dequeued package that will not run.
func (r *run) skip(name string) {
	r.skipped(name)
	for _, dependent := range r.plan.Complete(name, task.StatusSkipped) {
		r.skipped(dependent)
	}
}

func (r *run) skipped(name string) {
	r.bus.Publish(events.PackageFinished{Name: name, Outcome: task.Skipped()})
	r.finish(task.Result{Package: name, Outcome: task.Skipped()})
}

func (r *run) finish(res task.Result) {
	r.summary.Add(res)
	r.completed++
	r.bus.Publish(events.Progress{Completed: r.completed, Total: r.total})
}
