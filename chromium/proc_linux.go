//go:build linux

package chromium

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// killAfterParent makes the kernel kill the browser when this process dies.
func killAfterParent(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = new(syscall.SysProcAttr)
	}
	cmd.SysProcAttr.Pdeathsig = unix.SIGKILL
}
