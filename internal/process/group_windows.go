//go:build windows

// Package process isolates external commands in their own process group so
// the whole tree can be killed at once. The diagram renderer spawns a
// headless browser; killing only the direct child would orphan it.
package process

import (
	"os/exec"
	"strconv"
)

// Isolate is a no-op on Windows; taskkill /T already terminates the tree.
func Isolate(cmd *exec.Cmd) {
	_ = cmd
}

// KillProcessGroup terminates pid and its descendants via taskkill.
// Best effort: the command error is ignored because the tree may already
// have exited.
func KillProcessGroup(pid int) {
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}
