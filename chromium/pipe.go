//go:build !windows

package chromium

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/liuxd6825/cdpdriver/common"
)

// attachPipes wires the debugging pipes to fd 3, the browser's command
// input, and fd 4, its reply output. The returned channel owns our ends;
// closeChild must be called once the command started, or failed to.
func attachPipes(cmd *exec.Cmd) (ch *common.PipeChannel, closeChild func(), err error) {
	childIn, parentOut, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("creating command pipe: %w", err)
	}
	parentIn, childOut, err := os.Pipe()
	if err != nil {
		_ = childIn.Close()
		_ = parentOut.Close()
		return nil, nil, fmt.Errorf("creating reply pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{childIn, childOut}

	closeChild = func() {
		_ = childIn.Close()
		_ = childOut.Close()
	}

	return common.NewPipeChannel(parentIn, parentOut), closeChild, nil
}
