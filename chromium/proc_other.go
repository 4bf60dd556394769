//go:build !linux && !windows

package chromium

import "os/exec"

func killAfterParent(_ *exec.Cmd) {}
