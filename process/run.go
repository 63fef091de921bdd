package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/kbukum/melos/errors"
)

const defaultGracePeriod = 5 * time.Second

// Run executes a subprocess and waits for it to complete.
// If the context is canceled, SIGTERM is sent to the whole process group
// first. Once the process exits or GracePeriod runs out, SIGKILL goes to
// whatever is left of the group.
//
// A process that cannot be started yields an error matching
// errors.ErrProcessSpawn. A context cancellation yields an error wrapping
// ctx.Err(). A non-zero exit yields an error wrapping *exec.ExitError.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, errors.InvalidInput("binary", "process: binary is required")
	}

	gracePeriod := cmd.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = defaultGracePeriod
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)

	var stdout, stderr bytes.Buffer
	outLines := newLineWriter(cmd.OnStdout)
	errLines := newLineWriter(cmd.OnStderr)
	c.Stdout = pick(outLines, &stdout)
	c.Stderr = pick(errLines, &stderr)

	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	// Kill the whole tree, not just the shell.
	setProcessGroup(c)
	c.WaitDelay = gracePeriod

	start := time.Now()
	if err := c.Start(); err != nil {
		return &Result{ExitCode: -1, Duration: time.Since(start)},
			errors.New(errors.ErrCodeProcessSpawn, fmt.Sprintf("process: start %s", cmd.Binary)).WithCause(err)
	}
	err := c.Wait()
	duration := time.Since(start)
	if ctx.Err() != nil {
		// WaitDelay only kills the direct child; stragglers in the group
		// that ignored SIGTERM are still alive.
		killGroup(c)
	}

	if outLines != nil {
		outLines.Flush()
	}
	if errLines != nil {
		errLines.Flush()
	}

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: duration,
	}

	if err != nil {
		// Context cancellation is the expected way to kill a process
		if ctx.Err() != nil {
			return result, fmt.Errorf("process: killed by context: %w", ctx.Err())
		}
		return result, fmt.Errorf("process: exit code %d: %w", result.ExitCode, err)
	}

	return result, nil
}

func pick(lw *lineWriter, buf *bytes.Buffer) io.Writer {
	if lw != nil {
		return lw
	}
	return buf
}

// mergeEnv merges additional env vars with the current environment.
// Later entries win, so extra overrides inherited values.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil // inherit parent env
	}
	env := os.Environ()
	return append(env, extra...)
}
