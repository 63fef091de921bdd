package process_test

import (
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/process"
)

func TestRunEcho(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "echo",
		Args:   []string{"hello", "world"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", result.ExitCode)
	}
	out := strings.TrimSpace(string(result.Stdout))
	if out != "hello world" {
		t.Fatalf("expected 'hello world', got %q", out)
	}
}

func TestRunStdin(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "cat",
		Stdin:  strings.NewReader("from stdin"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Stdout) != "from stdin" {
		t.Fatalf("expected 'from stdin', got %q", result.Stdout)
	}
}

func TestRunExitCode(t *testing.T) {
	result, err := process.Run(context.Background(), process.Shell("exit 42"))
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	var exitErr *exec.ExitError
	if !stderrors.As(err, &exitErr) {
		t.Errorf("expected an *exec.ExitError in the chain, got %v", err)
	}
	if result.ExitCode != 42 {
		t.Fatalf("expected exit code 42, got %d", result.ExitCode)
	}
}

func TestRunContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result, err := process.Run(ctx, process.Command{
		Binary:      "sleep",
		Args:        []string{"10"},
		GracePeriod: 500 * time.Millisecond,
	})
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if result.Duration > 5*time.Second {
		t.Fatalf("process took too long to kill: %v", result.Duration)
	}
}

func TestRunContextCancel_KillsProcessGroup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// The shell forks sleep; killing only the shell would leave sleep
	// holding stdout open until the grace period ran out.
	start := time.Now()
	cmd := process.Shell("sleep 5; echo done")
	cmd.GracePeriod = 3 * time.Second
	cmd.OnStdout = func(string) {}
	_, err := process.Run(ctx, cmd)
	if err == nil {
		t.Fatal("expected error from context cancellation")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("expected the process group to die promptly, took %v", elapsed)
	}
}

func TestRunEmptyBinary(t *testing.T) {
	_, err := process.Run(context.Background(), process.Command{})
	if !stderrors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestRunSpawnFailure(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "true"},
		Dir:    "/definitely/not/a/directory",
	})
	if !stderrors.Is(err, errors.ErrProcessSpawn) {
		t.Fatalf("expected spawn error, got %v", err)
	}
	if result.ExitCode != -1 {
		t.Errorf("expected exit code -1, got %d", result.ExitCode)
	}
}

func TestRunMissingBinary(t *testing.T) {
	_, err := process.Run(context.Background(), process.Command{Binary: "melos-no-such-binary"})
	if !stderrors.Is(err, errors.ErrProcessSpawn) {
		t.Fatalf("expected spawn error, got %v", err)
	}
}

func TestRunEnv(t *testing.T) {
	cmd := process.Shell("echo $MY_TEST_VAR")
	cmd.Env = []string{"MY_TEST_VAR=hello123"}
	result, err := process.Run(context.Background(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out := strings.TrimSpace(string(result.Stdout)); out != "hello123" {
		t.Fatalf("expected 'hello123', got %q", out)
	}
}

// --- Line streaming tests ---

type lineRecorder struct {
	mu     sync.Mutex
	stdout []string
	stderr []string
}

func (r *lineRecorder) command(script string) process.Command {
	cmd := process.Shell(script)
	cmd.OnStdout = func(line string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.stdout = append(r.stdout, line)
	}
	cmd.OnStderr = func(line string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.stderr = append(r.stderr, line)
	}
	return cmd
}

func TestRunStreamsLines(t *testing.T) {
	var rec lineRecorder
	result, err := process.Run(context.Background(), rec.command("echo one; echo two; echo oops >&2; printf tail"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"one", "two", "tail"}
	if strings.Join(rec.stdout, "|") != strings.Join(want, "|") {
		t.Errorf("expected stdout lines %v, got %v", want, rec.stdout)
	}
	if len(rec.stderr) != 1 || rec.stderr[0] != "oops" {
		t.Errorf("expected stderr [oops], got %v", rec.stderr)
	}
	if len(result.Stdout) != 0 {
		t.Errorf("expected stdout not to be buffered when streaming, got %q", result.Stdout)
	}
}

func TestRunStreamsEmptyLines(t *testing.T) {
	var rec lineRecorder
	if _, err := process.Run(context.Background(), rec.command(`printf 'a\n\nb\r\n'`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "", "b"}
	if strings.Join(rec.stdout, "|") != strings.Join(want, "|") {
		t.Errorf("expected %q, got %q", want, rec.stdout)
	}
}

func TestShell(t *testing.T) {
	cmd := process.Shell("exit 0")
	if cmd.Binary != "sh" || len(cmd.Args) != 2 || cmd.Args[0] != "-c" || cmd.Args[1] != "exit 0" {
		t.Errorf("unexpected shell command %+v", cmd)
	}
}
