package process

import (
	"io"
	"runtime"
	"time"
)

// Command configures a subprocess to execute.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	// Args are the command-line arguments.
	Args []string
	// Dir is the working directory. If empty, uses the current directory.
	Dir string
	// Env is additional environment variables (key=value). Merged with os.Environ.
	Env []string
	// Stdin provides input to the process. May be nil.
	Stdin io.Reader
	// GracePeriod is how long to wait after SIGTERM before SIGKILL.
	// Defaults to 5 seconds if zero.
	GracePeriod time.Duration
	// OnStdout, when set, receives every stdout line as soon as it is
	// complete, without the trailing newline, and stdout is not buffered
	// into the Result. OnStdout and OnStderr may run concurrently with each
	// other; each one is called from a single goroutine.
	OnStdout func(line string)
	// OnStderr is the stderr counterpart of OnStdout.
	OnStderr func(line string)
}

// Shell returns a command running script through the platform shell:
// `sh -c` on Unix, `cmd /C` on Windows.
func Shell(script string) Command {
	if runtime.GOOS == "windows" {
		return Command{Binary: "cmd", Args: []string{"/C", script}}
	}
	return Command{Binary: "sh", Args: []string{"-c", script}}
}
