// Package process runs subprocesses with process-group termination and
// optional line-by-line output streaming.
//
//	cmd := process.Shell("dart test")
//	cmd.Dir = pkg.Path
//	cmd.OnStdout = func(line string) { ... }
//	res, err := process.Run(ctx, cmd)
package process
