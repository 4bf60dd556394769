//go:build windows

package chromium

import (
	"errors"
	"os/exec"

	"github.com/liuxd6825/cdpdriver/common"
)

// attachPipes fails: extra inherited descriptors at fixed numbers are not
// available to child processes on Windows.
func attachPipes(_ *exec.Cmd) (*common.PipeChannel, func(), error) {
	return nil, nil, errors.New("pipe mode is not supported on windows, use port mode")
}
