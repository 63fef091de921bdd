//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the child in its own process group and makes
// context cancellation send SIGTERM to the whole group.
func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
}

// killGroup sends SIGKILL to every remaining member of the child's process
// group.
func killGroup(c *exec.Cmd) {
	if c.Process == nil {
		return
	}
	_ = syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
}
