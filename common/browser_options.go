package common

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/liuxd6825/cdpdriver/log"
)

// ProxyOptions allows configuring a proxy server.
type ProxyOptions struct {
	Server   string `yaml:"server"`
	Bypass   string `yaml:"bypass"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WindowSize is the size of the browser window in pixels.
type WindowSize struct {
	Width  int64 `yaml:"width"`
	Height int64 `yaml:"height"`
}

// ExecutableResolver finds, or installs, a browser executable when none
// was configured nor found on the system.
type ExecutableResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// LaunchOptions stores browser launch options.
type LaunchOptions struct {
	Args              []string
	Debug             bool
	Devtools          bool
	Env               map[string]string
	ExecutablePath    string
	Extensions        []string
	Headless          bool
	IdleTimeout       time.Duration
	IgnoreDefaultArgs []string
	LogCategoryFilter string
	Mode              LaunchMode
	// Port pins the remote debugging port in port mode. Zero picks a
	// free one.
	Port        int
	Proxy       ProxyOptions
	Sandbox     bool
	SlowMo      float64
	Timeout     time.Duration
	UserDataDir string
	WindowSize  *WindowSize

	Fetcher ExecutableResolver
	// TracerProvider receives the spans of the protocol calls. The global
	// provider is used when nil.
	TracerProvider trace.TracerProvider
}

// NewLaunchOptions returns a new LaunchOptions.
func NewLaunchOptions() *LaunchOptions {
	return &LaunchOptions{
		Env:               make(map[string]string),
		Headless:          true,
		IdleTimeout:       DefaultIdleTimeout,
		LogCategoryFilter: ".*",
		Mode:              LaunchModePipe,
		Sandbox:           true,
		Timeout:           DefaultTimeout,
	}
}

// Parse parses launch options from a decoded configuration document,
// such as the launch section of a YAML file.
func (l *LaunchOptions) Parse(logger *log.Logger, opts map[string]any) error { //nolint:cyclop,funlen
	// when opts is nil, we just return the default options without error.
	if opts == nil {
		return nil
	}
	defaults := map[string]any{
		"env":               l.Env,
		"headless":          l.Headless,
		"idleTimeout":       l.IdleTimeout,
		"logCategoryFilter": l.LogCategoryFilter,
		"sandbox":           l.Sandbox,
		"timeout":           l.Timeout,
	}
	for k, v := range opts {
		if v == nil {
			if dv, ok := defaults[k]; ok {
				logger.Warnf("LaunchOptions", "%s was null and set to its default: %v", k, dv)
			}
			continue
		}
		var err error
		switch k {
		case "args":
			l.Args, err = parseStrSliceOpt(k, v)
		case "debug":
			l.Debug, err = parseBoolOpt(k, v)
		case "devtools":
			l.Devtools, err = parseBoolOpt(k, v)
		case "env":
			l.Env, err = parseStrMapOpt(k, v)
		case "executablePath":
			l.ExecutablePath, err = parseStrOpt(k, v)
		case "extensions":
			l.Extensions, err = parseStrSliceOpt(k, v)
		case "headless":
			l.Headless, err = parseBoolOpt(k, v)
		case "idleTimeout":
			l.IdleTimeout, err = parseTimeOpt(k, v)
		case "ignoreDefaultArgs":
			l.IgnoreDefaultArgs, err = parseStrSliceOpt(k, v)
		case "logCategoryFilter":
			l.LogCategoryFilter, err = parseStrOpt(k, v)
		case "mode":
			var s string
			if s, err = parseStrOpt(k, v); err == nil {
				err = l.Mode.UnmarshalText([]byte(s))
			}
		case "port":
			l.Port, err = parseIntOpt(k, v)
		case "proxy":
			l.Proxy, err = parseProxyOpt(k, v)
		case "sandbox":
			l.Sandbox, err = parseBoolOpt(k, v)
		case "slowMo":
			l.SlowMo, err = parseFloatOpt(k, v)
		case "timeout":
			l.Timeout, err = parseTimeOpt(k, v)
		case "userDataDir":
			l.UserDataDir, err = parseStrOpt(k, v)
		case "windowSize":
			l.WindowSize, err = parseWindowSizeOpt(k, v)
		default:
			logger.Warnf("LaunchOptions", "unknown launch option %q", k)
		}
		if err != nil {
			return err
		}
	}

	return l.Validate()
}

// Validate reports options that can't work together.
func (l *LaunchOptions) Validate() error {
	if l.Port < 0 || l.Port > 65535 {
		return fmt.Errorf("port %d is out of range", l.Port)
	}
	if l.Port != 0 && l.Mode != LaunchModePort {
		return fmt.Errorf("port can only be set in %s mode", LaunchModePort)
	}
	if l.WindowSize != nil && (l.WindowSize.Width <= 0 || l.WindowSize.Height <= 0) {
		return fmt.Errorf("window size %dx%d is invalid", l.WindowSize.Width, l.WindowSize.Height)
	}
	if l.SlowMo < 0 {
		return fmt.Errorf("slowMo should not be negative")
	}
	if l.Timeout <= 0 {
		return fmt.Errorf("timeout should be positive, got %s", l.Timeout)
	}
	return nil
}

func parseBoolOpt(key string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s should be a boolean", key)
	}
	return b, nil
}

func parseStrOpt(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s should be a string", key)
	}
	return s, nil
}

func parseIntOpt(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("%s should be an integer", key)
}

func parseFloatOpt(key string, v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("%s should be a number", key)
}

// parseTimeOpt accepts a duration string such as "30s", or a number of
// milliseconds.
func parseTimeOpt(key string, v any) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case string:
		d, err := time.ParseDuration(t)
		if err == nil {
			return d, nil
		}
	case int:
		return time.Duration(t) * time.Millisecond, nil
	case int64:
		return time.Duration(t) * time.Millisecond, nil
	case float64:
		return time.Duration(t * float64(time.Millisecond)), nil
	}
	return 0, fmt.Errorf("%s should be a time duration value", key)
}

func parseStrSliceOpt(key string, v any) ([]string, error) {
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []any:
		ss := make([]string, 0, len(vv))
		for _, e := range vv {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%s should be an array of strings", key)
			}
			ss = append(ss, s)
		}
		return ss, nil
	}
	return nil, fmt.Errorf("%s should be an array of strings", key)
}

func parseStrMapOpt(key string, v any) (map[string]string, error) {
	switch vv := v.(type) {
	case map[string]string:
		return vv, nil
	case map[string]any:
		m := make(map[string]string, len(vv))
		for k, e := range vv {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%s should be a map of strings", key)
			}
			m[k] = s
		}
		return m, nil
	}
	return nil, fmt.Errorf("%s should be a map", key)
}

func parseProxyOpt(key string, v any) (ProxyOptions, error) {
	switch vv := v.(type) {
	case ProxyOptions:
		return vv, nil
	case map[string]any:
		var p ProxyOptions
		for k, e := range vv {
			s, ok := e.(string)
			if !ok {
				return ProxyOptions{}, fmt.Errorf("%s.%s should be a string", key, k)
			}
			switch k {
			case "server":
				p.Server = s
			case "bypass":
				p.Bypass = s
			case "username":
				p.Username = s
			case "password":
				p.Password = s
			}
		}
		return p, nil
	}
	return ProxyOptions{}, fmt.Errorf("%s should be an object", key)
}

func parseWindowSizeOpt(key string, v any) (*WindowSize, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s should be an object", key)
	}
	w, err := parseIntOpt(key+".width", m["width"])
	if err != nil {
		return nil, err
	}
	h, err := parseIntOpt(key+".height", m["height"])
	if err != nil {
		return nil, err
	}
	return &WindowSize{Width: int64(w), Height: int64(h)}, nil
}
