//go:build !windows

// Package process isolates external commands in their own process group so
// the whole tree can be killed at once. The diagram renderer spawns a
// headless browser; killing only the direct child would orphan it.
package process

import (
	"os/exec"
	"syscall"
)

// Isolate places the command in its own process group. Call before Start.
func Isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// KillProcessGroup sends SIGKILL to the process group rooted at pid.
// Best effort: the signal error is ignored because the group may already
// have exited.
func KillProcessGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
