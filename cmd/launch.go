package cmd

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/liuxd6825/cdpdriver/errext"
	"github.com/liuxd6825/cdpdriver/errext/exitcodes"
)

type cmdLaunch struct {
	gs *globalState
}

func (c *cmdLaunch) run(cmd *cobra.Command, args []string) error {
	b, err := startBrowser(c.gs, cmd.Flags())
	if err != nil {
		return err
	}
	defer b.Close()

	if len(args) > 0 {
		tab, err := b.NewTab(args[0])
		if err != nil {
			return withExitCode(err)
		}
		c.gs.logger.Debugf("opened tab %s on %s", tab.TargetID(), args[0])
	}

	if p := b.Process(); p != nil {
		c.gs.console.Printf("pid: %d\n", p.Pid())
		if ws := p.WsURL(); ws != "" {
			c.gs.console.Printf("endpoint: %s\n", ws)
		}
		c.gs.console.Printf("user data dir: %s\n", p.UserDataDir())
	} else {
		c.gs.console.Printf("connected: %s\n", c.gs.flags.wsURL)
	}

	sigC := make(chan os.Signal, 2)
	c.gs.signalNotify(sigC, os.Interrupt, syscall.SIGTERM)
	defer c.gs.signalStop(sigC)

	select {
	case sig := <-sigC:
		c.gs.logger.WithField("sig", sig).Debug("Stopping cdpdriver in response to signal...")
		return &errext.InterruptError{Reason: fmt.Sprintf("stopped by %s", sig)}
	case <-b.Connection().Done():
		return errext.WithExitCodeIfNone(
			errors.New("the browser closed the connection"), exitcodes.TransportClosed)
	case <-c.gs.ctx.Done():
		return nil
	}
}

func getCmdLaunch(gs *globalState) *cobra.Command {
	c := &cmdLaunch{gs: gs}

	launchCmd := &cobra.Command{
		Use:   "launch [url]",
		Short: "Start a browser and keep it running",
		Long: `Start a browser and keep it running until interrupted.

The browser is torn down, and its temporary profile removed, when cdpdriver
exits. In port mode the printed endpoint can be used by other clients.`,
		Example: `
  # Start a headful browser listening on a fixed port.
  cdpdriver launch --mode=port --port=9222 --headless=false

  # Open a tab on a page.
  cdpdriver launch https://example.com`[1:],
		Args: rangeArgsWithMsg(0, 1, "optional URL of a tab to open"),
		RunE: c.run,
	}
	launchCmd.Flags().SortFlags = false
	launchCmd.Flags().AddFlagSet(launchFlagSet())

	return launchCmd
}
