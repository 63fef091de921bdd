package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/process"
	"github.com/kbukum/melos/task"
)

// OutputFunc receives one line of a task's output.
type OutputFunc func(line string, isStderr bool)

// Executor runs a single task to a terminal outcome. Failures of the task
// itself are reported in the result, never as a Go error.
type Executor interface {
	Execute(ctx context.Context, t task.Task, out OutputFunc) task.Result
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, t task.Task, out OutputFunc) task.Result

func (f ExecutorFunc) Execute(ctx context.Context, t task.Task, out OutputFunc) task.Result {
	return f(ctx, t, out)
}

// ShellExecutor runs the task's command through the platform shell in the
// task's working directory.
type ShellExecutor struct {
	GracePeriod time.Duration
}

func (e ShellExecutor) Execute(ctx context.Context, t task.Task, out OutputFunc) task.Result {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if t.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, t.Timeout)
	}
	defer cancel()

	result := task.Result{Package: t.Package}

	cmd := process.Shell(t.Command)
	cmd.Dir = t.WorkingDir
	cmd.Env = envList(t.Env)
	cmd.GracePeriod = e.GracePeriod
	cmd.OnStdout = func(line string) {
		result.Stdout = append(result.Stdout, line)
		out(line, false)
	}
	cmd.OnStderr = func(line string) {
		result.Stderr = append(result.Stderr, line)
		out(line, true)
	}

	start := time.Now()
	res, err := process.Run(runCtx, cmd)
	result.Duration = time.Since(start)

	diagnose := func(line string) {
		result.Stderr = append(result.Stderr, line)
		out(line, true)
	}

	switch {
	case err == nil:
		result.Outcome = task.Succeeded()
	case stderrors.Is(err, errors.ErrProcessSpawn) || res == nil:
		diagnose("ERROR: " + spawnCause(err))
		result.Outcome = task.Failed(-1)
	case ctx.Err() == nil && stderrors.Is(runCtx.Err(), context.DeadlineExceeded):
		diagnose(fmt.Sprintf("TIMEOUT: timed out after %s", t.Timeout))
		result.Outcome = task.TimedOut()
	case ctx.Err() != nil:
		diagnose(fmt.Sprintf("ERROR: %v", ctx.Err()))
		result.Outcome = task.Failed(-1)
	default:
		result.Outcome = task.Failed(res.ExitCode)
	}
	return result
}

func spawnCause(err error) string {
	if cause := stderrors.Unwrap(err); cause != nil {
		return cause.Error()
	}
	return err.Error()
}

// envList renders env as KEY=VALUE pairs in key order.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}
	return list
}
