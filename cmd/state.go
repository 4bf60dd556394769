package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/liuxd6825/cdpdriver/env"
	"github.com/liuxd6825/cdpdriver/tracing"
	"github.com/liuxd6825/cdpdriver/ui/console"
)

const defaultConfigFileName = "config.yaml"

// globalFlags contains global config values that apply for all subcommands.
type globalFlags struct {
	configFilePath string
	logOutput      string
	logFormat      string
	verbose        bool
	noColor        bool
	wsURL          string
	tracesOutput   string
}

// globalState contains the globalFlags and accessors for most of the global
// process-external state like CLI arguments, env vars, standard input, output
// and error, etc. In practice, most of it is normally accessed through the
// os package.
//
// Tests construct it by hand, so that nothing they run touches the real
// process state.
type globalState struct {
	ctx context.Context

	fs      afero.Fs
	getwd   func() (string, error)
	args    []string
	envVars map[string]string

	defaultFlags, flags globalFlags

	console *console.Console

	osExit       func(int)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)

	logger         *logrus.Logger
	fallbackLogger logrus.FieldLogger

	// set up by the root command before any subcommand runs
	tracerProvider *tracing.Provider
}

// newGlobalState ideally is the only function in the cmd package that
// accesses the global state of the process.
func newGlobalState(ctx context.Context) *globalState {
	envVars := buildEnvMap(os.Environ())
	_, noColorsSet := envVars["NO_COLOR"]

	confDir, err := os.UserConfigDir()
	if err != nil {
		confDir = ".config"
	}

	defaultFlags := getDefaultFlags(confDir)
	flags := getFlags(defaultFlags, envVars)

	cons := console.New(
		os.Stdout, os.Stderr, os.Stdin,
		!noColorsSet && !flags.noColor, envVars["TERM"],
		signal.Notify, signal.Stop,
	)

	return &globalState{
		ctx:          ctx,
		fs:           afero.NewOsFs(),
		getwd:        os.Getwd,
		args:         append(make([]string, 0, len(os.Args)), os.Args...),
		envVars:      envVars,
		defaultFlags: defaultFlags,
		flags:        flags,
		console:      cons,
		osExit:       os.Exit,
		signalNotify: signal.Notify,
		signalStop:   signal.Stop,
		logger:       cons.GetLogger(),
		fallbackLogger: &logrus.Logger{ // we may modify the other one
			Out:       os.Stderr,
			Formatter: new(logrus.TextFormatter), // no fancy formatting here
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
	}
}

func getDefaultFlags(homeDir string) globalFlags {
	return globalFlags{
		configFilePath: filepath.Join(homeDir, "cdpdriver", defaultConfigFileName),
		logOutput:      "stderr",
		tracesOutput:   "none",
	}
}

func getFlags(defaultFlags globalFlags, env map[string]string) globalFlags {
	result := defaultFlags

	if val, ok := env["CDPDRIVER_CONFIG"]; ok {
		result.configFilePath = val
	}
	if val, ok := env["CDPDRIVER_LOG_OUTPUT"]; ok {
		result.logOutput = val
	}
	if val, ok := env["CDPDRIVER_LOG_FORMAT"]; ok {
		result.logFormat = val
	}
	if val, ok := env["CDPDRIVER_TRACES_OUTPUT"]; ok {
		result.tracesOutput = val
	}
	if env["CDPDRIVER_NO_COLOR"] != "" {
		result.noColor = true
	}
	// Support https://no-color.org/, even an empty value should disable the
	// color output from cdpdriver.
	if _, ok := env["NO_COLOR"]; ok {
		result.noColor = true
	}
	return result
}

// lookupEnv is the env.LookupFunc handed to the library packages.
func (gs *globalState) lookupEnv(key string) (string, bool) {
	return env.MapLookup(gs.envVars)(key)
}

func buildEnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v := parseEnvKeyValue(kv)
		env[k] = v
	}
	return env
}

func parseEnvKeyValue(kv string) (string, string) {
	if idx := strings.IndexRune(kv, '='); idx != -1 {
		return kv[:idx], kv[idx+1:]
	}
	return kv, ""
}
