package common

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserLaunchOptionsParse(t *testing.T) {
	t.Parallel()

	defaultOptions := &LaunchOptions{
		Env:               make(map[string]string),
		Headless:          true,
		IdleTimeout:       DefaultIdleTimeout,
		LogCategoryFilter: ".*",
		Mode:              LaunchModePipe,
		Sandbox:           true,
		Timeout:           DefaultTimeout,
	}

	for name, tt := range map[string]struct {
		opts   map[string]any
		assert func(testing.TB, *LaunchOptions)
		err    string
	}{
		"defaults": {
			opts: map[string]any{},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, defaultOptions, lo)
			},
		},
		"defaults_nil": {
			opts: nil,
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, defaultOptions, lo)
			},
		},
		"nulls": {
			opts: map[string]any{
				"env":      nil,
				"headless": nil,
				"timeout":  nil,
			},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, defaultOptions, lo)
			},
		},
		"args": {
			opts: map[string]any{"args": []any{"browser-arg1='value1", "browser-arg2=value2", "browser-flag"}},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, []string{"browser-arg1='value1", "browser-arg2=value2", "browser-flag"}, lo.Args)
			},
		},
		"args_err": {
			opts: map[string]any{"args": 1},
			err:  "args should be an array of strings",
		},
		"args_elem_err": {
			opts: map[string]any{"args": []any{"a", 1}},
			err:  "args should be an array of strings",
		},
		"debug": {
			opts: map[string]any{"debug": true},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.True(tb, lo.Debug)
			},
		},
		"debug_err": {
			opts: map[string]any{"debug": "true"},
			err:  "debug should be a boolean",
		},
		"devtools": {
			opts: map[string]any{"devtools": true},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.True(tb, lo.Devtools)
			},
		},
		"env": {
			opts: map[string]any{"env": map[string]any{"TZ": "UTC"}},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, map[string]string{"TZ": "UTC"}, lo.Env)
			},
		},
		"env_err": {
			opts: map[string]any{"env": 1},
			err:  "env should be a map",
		},
		"env_value_err": {
			opts: map[string]any{"env": map[string]any{"TZ": 1}},
			err:  "env should be a map of strings",
		},
		"executablePath": {
			opts: map[string]any{"executablePath": "cmd/somewhere"},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, "cmd/somewhere", lo.ExecutablePath)
			},
		},
		"executablePath_err": {
			opts: map[string]any{"executablePath": 1},
			err:  "executablePath should be a string",
		},
		"extensions": {
			opts: map[string]any{"extensions": []string{"/ext/a", "/ext/b"}},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, []string{"/ext/a", "/ext/b"}, lo.Extensions)
			},
		},
		"headless": {
			opts: map[string]any{"headless": false},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.False(tb, lo.Headless)
			},
		},
		"idleTimeout_ms": {
			opts: map[string]any{"idleTimeout": 1500},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, 1500*time.Millisecond, lo.IdleTimeout)
			},
		},
		"ignoreDefaultArgs": {
			opts: map[string]any{"ignoreDefaultArgs": []any{"--hide-scrollbars"}},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, []string{"--hide-scrollbars"}, lo.IgnoreDefaultArgs)
			},
		},
		"logCategoryFilter": {
			opts: map[string]any{"logCategoryFilter": "**"},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, "**", lo.LogCategoryFilter)
			},
		},
		"mode": {
			opts: map[string]any{"mode": "port"},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, LaunchModePort, lo.Mode)
			},
		},
		"mode_err": {
			opts: map[string]any{"mode": "carrier-pigeon"},
			err:  `invalid launch mode: "carrier-pigeon"`,
		},
		"port": {
			opts: map[string]any{"mode": "port", "port": 9222.0},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, 9222, lo.Port)
			},
		},
		"port_pipe_mode_err": {
			opts: map[string]any{"port": 9222},
			err:  "port can only be set in port mode",
		},
		"port_range_err": {
			opts: map[string]any{"mode": "port", "port": 70000},
			err:  "port 70000 is out of range",
		},
		"port_fraction_err": {
			opts: map[string]any{"mode": "port", "port": 9222.5},
			err:  "port should be an integer",
		},
		"proxy": {
			opts: map[string]any{"proxy": map[string]any{
				"server":   "serverVal",
				"bypass":   "bypassVal",
				"username": "usernameVal",
				"password": "passwordVal",
			}},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, ProxyOptions{
					Server:   "serverVal",
					Bypass:   "bypassVal",
					Username: "usernameVal",
					Password: "passwordVal",
				}, lo.Proxy)
			},
		},
		"proxy_err": {
			opts: map[string]any{"proxy": 1},
			err:  "proxy should be an object",
		},
		"proxy_field_err": {
			opts: map[string]any{"proxy": map[string]any{"server": 1}},
			err:  "proxy.server should be a string",
		},
		"sandbox": {
			opts: map[string]any{"sandbox": false},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.False(tb, lo.Sandbox)
			},
		},
		"slowMo": {
			opts: map[string]any{"slowMo": 2.5},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.InDelta(tb, 2.5, lo.SlowMo, 0)
			},
		},
		"slowMo_negative_err": {
			opts: map[string]any{"slowMo": -1},
			err:  "slowMo should not be negative",
		},
		"slowMo_err": {
			opts: map[string]any{"slowMo": "fast"},
			err:  "slowMo should be a number",
		},
		"timeout": {
			opts: map[string]any{"timeout": "10s"},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, 10*time.Second, lo.Timeout)
			},
		},
		"timeout_zero_err": {
			opts: map[string]any{"timeout": "0s"},
			err:  "timeout should be positive, got 0s",
		},
		"timeout_negative_err": {
			opts: map[string]any{"timeout": "-5s"},
			err:  "timeout should be positive, got -5s",
		},
		"timeout_err": {
			opts: map[string]any{"timeout": "ABC"},
			err:  "timeout should be a time duration value",
		},
		"userDataDir": {
			opts: map[string]any{"userDataDir": "/tmp/profile"},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, "/tmp/profile", lo.UserDataDir)
			},
		},
		"windowSize": {
			opts: map[string]any{"windowSize": map[string]any{"width": 1280, "height": 720}},
			assert: func(tb testing.TB, lo *LaunchOptions) {
				tb.Helper()
				assert.Equal(tb, &WindowSize{Width: 1280, Height: 720}, lo.WindowSize)
			},
		},
		"windowSize_err": {
			opts: map[string]any{"windowSize": map[string]any{"width": 1280}},
			err:  "windowSize.height should be an integer",
		},
		"windowSize_zero_err": {
			opts: map[string]any{"windowSize": map[string]any{"width": 0, "height": 720}},
			err:  "window size 0x720 is invalid",
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			logger, _ := newTestLogger(t)
			lo := NewLaunchOptions()
			err := lo.Parse(logger, tt.opts)
			if tt.err != "" {
				assert.ErrorContains(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			tt.assert(t, lo)
		})
	}
}

func TestBrowserLaunchOptionsParseWarnings(t *testing.T) {
	t.Parallel()

	logger, hook := newTestLogger(t)
	lo := NewLaunchOptions()
	require.NoError(t, lo.Parse(logger, map[string]any{
		"headless":  nil,
		"noSuchOpt": true,
	}))

	var msgs []string
	for _, e := range hook.Drain() {
		if e.Level == logrus.WarnLevel {
			msgs = append(msgs, e.Message)
		}
	}
	assert.Contains(t, msgs, "headless was null and set to its default: true")
	assert.Contains(t, msgs, `unknown launch option "noSuchOpt"`)
}
