//go:build unix

package lsp

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup starts cmd in its own session so the whole process tree
// it spawns can be signaled together, instead of only the direct child.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
}

// terminateProcessGroup sends SIGTERM to every process in pid's group.
func terminateProcessGroup(pid int) error {
	return unix.Kill(-pid, unix.SIGTERM)
}
