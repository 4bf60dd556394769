package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"

	"github.com/liuxd6825/cdpdriver/common"
	"github.com/liuxd6825/cdpdriver/errext"
	"github.com/liuxd6825/cdpdriver/errext/exitcodes"
	"github.com/liuxd6825/cdpdriver/log"
)

func launchFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", 0)
	flags.SortFlags = false
	flags.Bool("headless", true, "run the browser without a window")
	flags.Bool("sandbox", true, "keep the browser's sandbox enabled")
	flags.Bool("debug", false, "log every protocol message")
	flags.String("mode", common.LaunchModePipe.String(), "how to talk to a launched browser: pipe or port")
	flags.Int64("port", 0, "remote debugging port in port mode, 0 picks a free one")
	flags.String("timeout", common.DefaultTimeout.String(), "launch, connect and wait timeout")
	flags.Float64("slow-mo", 0, "multiplier of the delays inserted before input actions")
	flags.String("user-data-dir", "", "profile directory, a temporary one is used when empty")
	flags.StringArray("browser-arg", nil, "extra browser command line flag, e.g. --browser-arg=lang=de")
	return flags
}

// Config is the subset of the launch options that can be set from the
// environment and the command line. The rest comes from the launch
// section of the config file.
type Config struct {
	Headless    null.Bool   `envconfig:"CDPDRIVER_HEADLESS"`
	Sandbox     null.Bool   `envconfig:"CDPDRIVER_SANDBOX"`
	Debug       null.Bool   `envconfig:"CDPDRIVER_DEBUG"`
	Mode        null.String `envconfig:"CDPDRIVER_MODE"`
	Port        null.Int    `envconfig:"CDPDRIVER_PORT"`
	Timeout     null.String `envconfig:"CDPDRIVER_TIMEOUT"`
	SlowMo      null.Float  `envconfig:"CDPDRIVER_SLOW_MO"`
	UserDataDir null.String `envconfig:"CDPDRIVER_USER_DATA_DIR"`
	Args        []string    `envconfig:"CDPDRIVER_ARGS"`
}

// fileConfig is the layout of the YAML config file.
type fileConfig struct {
	// Launch holds launch options keyed like common.LaunchOptions.Parse
	// expects them.
	Launch map[string]any `yaml:"launch"`
}

// Gets configuration from CLI flags.
func getConfig(flags *pflag.FlagSet) (Config, error) {
	args, err := flags.GetStringArray("browser-arg")
	if err != nil {
		return Config{}, err
	}

	return Config{
		Headless:    getNullBool(flags, "headless"),
		Sandbox:     getNullBool(flags, "sandbox"),
		Debug:       getNullBool(flags, "debug"),
		Mode:        getNullString(flags, "mode"),
		Port:        getNullInt64(flags, "port"),
		Timeout:     getNullString(flags, "timeout"),
		SlowMo:      getNullFloat64(flags, "slow-mo"),
		UserDataDir: getNullString(flags, "user-data-dir"),
		Args:        args,
	}, nil
}

// Reads the configuration file from disk. A missing file is not an error.
func readDiskConfig(gs *globalState) (fileConfig, error) {
	var conf fileConfig

	data, err := afero.ReadFile(gs.fs, gs.flags.configFilePath)
	if errors.Is(err, fs.ErrNotExist) {
		return conf, nil
	} else if err != nil {
		return conf, err
	}

	if err := yaml.Unmarshal(data, &conf); err != nil {
		return conf, fmt.Errorf("couldn't parse the configuration from %q: %w", gs.flags.configFilePath, err)
	}
	return conf, nil
}

// Reads configuration variables from the environment.
func readEnvConfig(envMap map[string]string) (Config, error) {
	var conf Config
	err := envconfig.Process("", &conf, func(key string) (string, bool) {
		v, ok := envMap[key]
		return v, ok
	})
	return conf, err
}

// Apply returns c overridden by the values that are set in cfg.
func (c Config) Apply(cfg Config) Config {
	if cfg.Headless.Valid {
		c.Headless = cfg.Headless
	}
	if cfg.Sandbox.Valid {
		c.Sandbox = cfg.Sandbox
	}
	if cfg.Debug.Valid {
		c.Debug = cfg.Debug
	}
	if cfg.Mode.Valid {
		c.Mode = cfg.Mode
	}
	if cfg.Port.Valid {
		c.Port = cfg.Port
	}
	if cfg.Timeout.Valid {
		c.Timeout = cfg.Timeout
	}
	if cfg.SlowMo.Valid {
		c.SlowMo = cfg.SlowMo
	}
	if cfg.UserDataDir.Valid {
		c.UserDataDir = cfg.UserDataDir
	}
	if len(cfg.Args) > 0 {
		c.Args = cfg.Args
	}
	return c
}

func (c Config) applyTo(opts *common.LaunchOptions) error {
	if c.Headless.Valid {
		opts.Headless = c.Headless.Bool
	}
	if c.Sandbox.Valid {
		opts.Sandbox = c.Sandbox.Bool
	}
	if c.Debug.Valid {
		opts.Debug = c.Debug.Bool
	}
	if c.Mode.Valid {
		if err := opts.Mode.UnmarshalText([]byte(c.Mode.String)); err != nil {
			return err
		}
	}
	if c.Port.Valid {
		opts.Port = int(c.Port.Int64)
	}
	if c.Timeout.Valid {
		d, err := time.ParseDuration(c.Timeout.String)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		opts.Timeout = d
	}
	if c.SlowMo.Valid {
		opts.SlowMo = c.SlowMo.Float64
	}
	if c.UserDataDir.Valid {
		opts.UserDataDir = c.UserDataDir.String
	}
	opts.Args = append(opts.Args, c.Args...)

	return opts.Validate()
}

// getConsolidatedLaunchOptions assembles the launch options from, in
// increasing precedence, the defaults, the config file, the environment
// and the CLI flags.
func getConsolidatedLaunchOptions(gs *globalState, cliConf Config, logger *log.Logger) (*common.LaunchOptions, error) {
	fileConf, err := readDiskConfig(gs)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	envConf, err := readEnvConfig(gs.envVars)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	opts := common.NewLaunchOptions()
	if err := opts.Parse(logger, fileConf.Launch); err != nil {
		return nil, errext.WithExitCodeIfNone(
			fmt.Errorf("parsing the launch options of %q: %w", gs.flags.configFilePath, err),
			exitcodes.InvalidConfig)
	}
	if err := envConf.Apply(cliConf).applyTo(opts); err != nil {
		return nil, errext.WithExitCodeIfNone(
			fmt.Errorf("invalid launch options: %w", err), exitcodes.InvalidConfig)
	}

	return opts, nil
}
