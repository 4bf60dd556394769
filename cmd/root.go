// Package cmd implements the cdpdriver command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/liuxd6825/cdpdriver/env"
	"github.com/liuxd6825/cdpdriver/errext"
	"github.com/liuxd6825/cdpdriver/errext/exitcodes"
	"github.com/liuxd6825/cdpdriver/log"
	"github.com/liuxd6825/cdpdriver/tracing"
)

const (
	waitLoggerCloseTimeout = time.Second * 5
	tracesShutdownTimeout  = time.Second * 5
)

// This is to keep all fields needed for the main/root cdpdriver command
type rootCommand struct {
	globalState *globalState

	cmd            *cobra.Command
	stopLoggers    context.CancelFunc
	loggerStopped  <-chan struct{}
	loggerIsRemote bool
}

func newRootCommand(gs *globalState) *rootCommand {
	c := &rootCommand{
		globalState: gs,
		stopLoggers: func() {},
	}
	// the base command when called without any subcommands.
	rootCmd := &cobra.Command{
		Use:               "cdpdriver",
		Short:             "drive Chromium over the DevTools protocol",
		Long:              "\n" + gs.console.Banner(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}

	rootCmd.PersistentFlags().AddFlagSet(rootCmdPersistentFlagSet(gs))
	rootCmd.SetArgs(gs.args[1:])
	rootCmd.SetOut(gs.console.Stdout)
	rootCmd.SetErr(gs.console.Stderr)
	rootCmd.SetIn(gs.console.Stdin)

	subCommands := []func(*globalState) *cobra.Command{
		getCmdLaunch, getCmdCall, getCmdScreenshot, getCmdPDF, getCmdVersion,
	}
	for _, sc := range subCommands {
		rootCmd.AddCommand(sc(gs))
	}

	c.cmd = rootCmd
	return c
}

func (c *rootCommand) persistentPreRunE(_ *cobra.Command, _ []string) error {
	var err error

	c.loggerStopped, err = c.setupLoggers()
	if err != nil {
		return err
	}
	select {
	case <-c.loggerStopped:
	default:
		c.loggerIsRemote = true
	}

	c.globalState.logger.Debugf("cdpdriver version: v%s", fullVersion())

	return c.setupTracing()
}

func (c *rootCommand) setupTracing() error {
	gs := c.globalState
	tp, err := tracing.FromConfigLine(gs.ctx, gs.flags.tracesOutput, Version)
	if err != nil {
		return errext.WithExitCodeIfNone(
			fmt.Errorf("invalid traces output %q: %w", gs.flags.tracesOutput, err), exitcodes.InvalidConfig)
	}
	gs.tracerProvider = tp
	if tp.Enabled() {
		gs.logger.Debugf("exporting traces to %s", gs.flags.tracesOutput)
	}
	return nil
}

// shutdownTracing flushes the spans the command produced. It uses a fresh
// context since the command's one may already be done.
func (c *rootCommand) shutdownTracing() {
	tp := c.globalState.tracerProvider
	if tp == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), tracesShutdownTimeout)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		c.globalState.logger.WithError(err).Warn("Couldn't flush the traces")
	}
}

func (c *rootCommand) execute() {
	ctx, cancel := context.WithCancel(c.globalState.ctx)
	defer cancel()
	c.globalState.ctx = ctx

	err := c.cmd.Execute()
	c.shutdownTracing()
	if err == nil {
		c.waitLoggers()
		return
	}

	exitCode := -1
	var ecerr errext.HasExitCode
	if errors.As(err, &ecerr) {
		exitCode = int(ecerr.ExitCode())
	}

	errText, fields := errext.Format(err)
	c.globalState.logger.WithFields(fields).Error(errText)
	if c.loggerIsRemote {
		c.globalState.fallbackLogger.WithFields(fields).Error(errText)
	}
	c.waitLoggers()

	c.globalState.osExit(exitCode)
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	gs := newGlobalState(context.Background())

	newRootCommand(gs).execute()
}

func (c *rootCommand) waitLoggers() {
	c.stopLoggers()
	if !c.loggerIsRemote {
		return
	}
	select {
	case <-c.loggerStopped:
	case <-time.After(waitLoggerCloseTimeout):
		c.globalState.fallbackLogger.Errorf("The logger didn't stop in %s", waitLoggerCloseTimeout)
	}
}

func rootCmdPersistentFlagSet(gs *globalState) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	// gs.flags may already hold values from the environment, so those are
	// the flag defaults, and DefValue is reset to keep --help accurate.
	flags.StringVar(&gs.flags.logOutput, "log-output", gs.flags.logOutput,
		"change the output for cdpdriver logs, possible values are stderr,stdout,none,file[=./path.fileformat]")
	flags.Lookup("log-output").DefValue = gs.defaultFlags.logOutput

	flags.StringVar(&gs.flags.logFormat, "log-format", gs.flags.logFormat, "log output format")
	flags.Lookup("log-format").DefValue = gs.defaultFlags.logFormat

	flags.StringVarP(&gs.flags.configFilePath, "config", "c", gs.flags.configFilePath, "YAML config file")
	// And we also need to explicitly set the default value for the usage message here, so things
	// like `CDPDRIVER_CONFIG="blah" cdpdriver launch -h` don't produce a weird usage message
	flags.Lookup("config").DefValue = gs.defaultFlags.configFilePath
	must(cobra.MarkFlagFilename(flags, "config"))

	flags.BoolVar(&gs.flags.noColor, "no-color", gs.flags.noColor, "disable colored output")
	flags.Lookup("no-color").DefValue = fmt.Sprint(gs.defaultFlags.noColor)

	flags.StringVar(&gs.flags.wsURL, "ws-url", gs.flags.wsURL,
		"connect to the browser listening at this websocket endpoint instead of launching one")

	flags.StringVar(&gs.flags.tracesOutput, "traces-output", gs.flags.tracesOutput,
		"export the spans of the protocol calls, possible values are none,otel[=collector,proto=grpc|http,header.name=value]")
	flags.Lookup("traces-output").DefValue = gs.defaultFlags.tracesOutput

	flags.BoolVarP(&gs.flags.verbose, "verbose", "v", gs.defaultFlags.verbose, "enable verbose logging")

	return flags
}

// RawFormatter it does nothing with the message just prints it
type RawFormatter struct{}

// Format renders a single log entry
func (f RawFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

// The returned channel will be closed when the logger has finished flushing and pushing logs after
// the provided context is closed. It is closed if the logger isn't buffering and sending messages
// Asynchronously
func (c *rootCommand) setupLoggers() (<-chan struct{}, error) {
	gs := c.globalState
	ch := make(chan struct{})
	close(ch)

	if lvl, ok := gs.envVars[env.LogLevel]; ok && lvl != "" {
		level, err := logrus.ParseLevel(lvl)
		if err != nil {
			return nil, errext.WithExitCodeIfNone(
				fmt.Errorf("invalid %s: %w", env.LogLevel, err), exitcodes.InvalidConfig)
		}
		gs.logger.SetLevel(level)
	}
	if gs.flags.verbose {
		gs.logger.SetLevel(logrus.DebugLevel)
	}

	switch line := gs.flags.logOutput; {
	case line == "stderr":
		// the console logger already writes there
	case line == "stdout":
		gs.logger.SetOutput(gs.console)
	case line == "none":
		gs.logger.SetOutput(io.Discard)
	case strings.HasPrefix(line, "file"):
		ch = make(chan struct{})
		ctx, cancel := context.WithCancel(gs.ctx)
		c.stopLoggers = cancel

		hook, err := log.FileHookFromConfigLine(ctx, gs.fs, gs.getwd, gs.fallbackLogger, line, ch)
		if err != nil {
			cancel()
			return nil, err
		}
		gs.logger.AddHook(hook)
		gs.logger.SetOutput(io.Discard)
	default:
		return nil, errext.WithExitCodeIfNone(
			fmt.Errorf("unsupported log output '%s'", line), exitcodes.InvalidConfig)
	}

	switch gs.flags.logFormat {
	case "raw":
		gs.logger.SetFormatter(&RawFormatter{})
		gs.logger.Debug("Logger format: RAW")
	case "json":
		gs.logger.SetFormatter(&logrus.JSONFormatter{})
		gs.logger.Debug("Logger format: JSON")
	default:
		gs.logger.SetFormatter(&logrus.TextFormatter{
			ForceColors: gs.console.IsTTY && !gs.flags.noColor, DisableColors: gs.flags.noColor,
		})
		gs.logger.Debug("Logger format: TEXT")
	}
	return ch, nil
}

// libLogger wraps the process logger for the library packages. Protocol
// traffic is only logged at debug level, or always when debug is forced.
func (gs *globalState) libLogger(debug bool) (*log.Logger, error) {
	var re *regexp.Regexp
	if filter, ok := gs.envVars[env.LogCategoryFilter]; ok && filter != "" {
		var err error
		if re, err = regexp.Compile(filter); err != nil {
			return nil, errext.WithExitCodeIfNone(
				fmt.Errorf("compiling %s: %w", env.LogCategoryFilter, err), exitcodes.InvalidConfig)
		}
	}

	return log.New(gs.logger, debug, re), nil
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
