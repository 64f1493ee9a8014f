//go:build !unix

package lsp

import "os/exec"

// setProcessGroup is a no-op on platforms without POSIX process groups.
func setProcessGroup(cmd *exec.Cmd) {}

// terminateProcessGroup falls back to killing just the one process; the
// caller's subsequent cmd.Process.Kill() already covers that, so this is
// only exercised on unix builds.
func terminateProcessGroup(pid int) error { return nil }
