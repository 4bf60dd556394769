package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"

	"github.com/liuxd6825/cdpdriver/chromium"
	"github.com/liuxd6825/cdpdriver/common"
	"github.com/liuxd6825/cdpdriver/env"
	"github.com/liuxd6825/cdpdriver/errext"
	"github.com/liuxd6825/cdpdriver/errext/exitcodes"
)

func getNullBool(flags *pflag.FlagSet, key string) null.Bool {
	v, err := flags.GetBool(key)
	if err != nil {
		panic(err)
	}
	return null.NewBool(v, flags.Changed(key))
}

func getNullInt64(flags *pflag.FlagSet, key string) null.Int {
	v, err := flags.GetInt64(key)
	if err != nil {
		panic(err)
	}
	return null.NewInt(v, flags.Changed(key))
}

func getNullFloat64(flags *pflag.FlagSet, key string) null.Float {
	v, err := flags.GetFloat64(key)
	if err != nil {
		panic(err)
	}
	return null.NewFloat(v, flags.Changed(key))
}

func getNullString(flags *pflag.FlagSet, key string) null.String {
	v, err := flags.GetString(key)
	if err != nil {
		panic(err)
	}
	return null.NewString(v, flags.Changed(key))
}

func exactArgsWithMsg(n int, msg string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("accepts %d arg(s), received %d: %s", n, len(args), msg)
		}
		return nil
	}
}

func rangeArgsWithMsg(minArgs, maxArgs int, msg string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < minArgs || len(args) > maxArgs {
			return fmt.Errorf("accepts between %d and %d arg(s), received %d: %s", minArgs, maxArgs, len(args), msg)
		}
		return nil
	}
}

// startBrowser launches a browser, or connects to the one given with
// --ws-url or CDPDRIVER_WS_URL, with the consolidated launch options.
func startBrowser(gs *globalState, flags *pflag.FlagSet) (*common.Browser, error) {
	cliConf, err := getConfig(flags)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	logger, err := gs.libLogger(false)
	if err != nil {
		return nil, err
	}
	opts, err := getConsolidatedLaunchOptions(gs, cliConf, logger)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		if logger, err = gs.libLogger(true); err != nil {
			return nil, err
		}
	}

	if tp := gs.tracerProvider; tp != nil && tp.Enabled() {
		opts.TracerProvider = tp
	}

	bt := chromium.NewBrowserType(logger, gs.lookupEnv)

	var b *common.Browser
	if _, remote := env.IsRemoteBrowser(gs.lookupEnv); remote || gs.flags.wsURL != "" {
		b, err = bt.Connect(gs.ctx, gs.flags.wsURL, opts)
	} else {
		b, err = bt.Launch(gs.ctx, opts)
	}
	if err != nil {
		return nil, withExitCode(err)
	}

	return b, nil
}

func withInvalidConfig(err error) error {
	return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
}

// withExitCode attaches the exit code, and a hint where one helps, that
// matches the kind of err.
func withExitCode(err error) error {
	var lerr *common.LaunchError
	switch {
	case errors.As(err, &lerr):
		switch lerr.Reason {
		case common.LaunchReasonExecutableNotFound:
			err = errext.WithHint(err, fmt.Sprintf(
				"install Chromium or Google Chrome, or point %s at the browser executable", env.ExecutablePath))
		case common.LaunchReasonPortInUse:
			err = errext.WithHint(err, "pick another --port, or leave it unset to use a free one")
		default:
		}
		return errext.WithExitCodeIfNone(err, exitcodes.LaunchFailed)
	case errors.Is(err, common.ErrTransportClosed):
		return errext.WithExitCodeIfNone(err, exitcodes.TransportClosed)
	case errors.Is(err, common.ErrTimedOut):
		return errext.WithExitCodeIfNone(err, exitcodes.OperationTimedOut)
	case errors.Is(err, common.ErrNotFound):
		return errext.WithExitCodeIfNone(err, exitcodes.TargetNotFound)
	case errors.Is(err, common.ErrRemote):
		return errext.WithExitCodeIfNone(err, exitcodes.RemoteCallFailed)
	}
	return errext.WithExitCodeIfNone(err, exitcodes.GenericError)
}
