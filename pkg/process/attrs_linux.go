//go:build linux

package process

import (
	"os/exec"
	"syscall"
)

// setPlatformAttrs sets parent-death-signal = KILL so an orphaned engine
// dies with the harness, per spec.md §4.1.
func setPlatformAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGKILL,
	}
}
