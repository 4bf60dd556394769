//go:build windows

package chromium

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// killAfterParent detaches the browser from the console's process group,
// so a Ctrl+C sent to us isn't delivered to it before we tear it down.
func killAfterParent(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = new(syscall.SysProcAttr)
	}
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP
}
