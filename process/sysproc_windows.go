//go:build windows

package process

import "os/exec"

// setProcessGroup falls back to killing the direct child on Windows.
func setProcessGroup(c *exec.Cmd) {
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return c.Process.Kill()
	}
}

// killGroup is a no-op on Windows; Cancel already killed the child.
func killGroup(*exec.Cmd) {}
