package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/liuxd6825/cdpdriver/errext/exitcodes"
	"github.com/liuxd6825/cdpdriver/testutils"
	"github.com/liuxd6825/cdpdriver/ui/console"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// the websocket test servers close their connections after the
		// tests that started them returned
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type bufferStringer interface {
	io.ReadWriter
	fmt.Stringer
	Bytes() []byte
}

type globalTestState struct {
	*globalState
	cancel func()

	stdOut, stdErr bufferStringer
	loggerHook     *testutils.SimpleLogrusHook

	cwd string

	expectedExitCode int
}

// A thread-safe buffer implementation.
type safeBuffer struct {
	b bytes.Buffer
	m sync.RWMutex
}

func (b *safeBuffer) Read(p []byte) (n int, err error) {
	b.m.Lock()
	defer b.m.Unlock()
	return b.b.Read(p)
}

func (b *safeBuffer) Write(p []byte) (n int, err error) {
	b.m.Lock()
	defer b.m.Unlock()
	return b.b.Write(p)
}

func (b *safeBuffer) String() string {
	b.m.RLock()
	defer b.m.RUnlock()
	return b.b.String()
}

func (b *safeBuffer) Bytes() []byte {
	b.m.RLock()
	defer b.m.RUnlock()
	return b.b.Bytes()
}

type testOSFileW struct {
	io.Writer
}

func (f *testOSFileW) Fd() uintptr {
	return 0
}

type testOSFileR struct {
	io.Reader
}

func (f *testOSFileR) Fd() uintptr {
	return 0
}

func newGlobalTestState(t *testing.T) *globalTestState {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	fs := &afero.MemMapFs{}
	cwd := "/test/"
	if runtime.GOOS == "windows" {
		cwd = "c:\\test\\"
	}
	require.NoError(t, fs.MkdirAll(cwd, 0o755))

	ts := &globalTestState{
		cwd:    cwd,
		cancel: cancel,
		stdOut: &safeBuffer{},
		stdErr: &safeBuffer{},
	}

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.Out = ts.stdErr
	hook := &testutils.SimpleLogrusHook{HookedLevels: logrus.AllLevels}
	logger.AddHook(hook)
	ts.loggerHook = hook

	var exitMu sync.Mutex
	osExitCalled := false
	defaultOsExitHandle := func(exitCode int) {
		exitMu.Lock()
		defer exitMu.Unlock()
		cancel()
		osExitCalled = true
		assert.Equal(t, ts.expectedExitCode, exitCode)
	}

	t.Cleanup(func() {
		if ts.expectedExitCode > 0 {
			exitMu.Lock()
			defer exitMu.Unlock()
			// Ensure that, if we expected to receive an error, our `os.Exit()` mock
			// function was actually called.
			assert.Truef(t, osExitCalled, "expected exit code %d, but the os.Exit() mock was not called", ts.expectedExitCode)
		}
	})

	defaultFlags := getDefaultFlags(".config")

	cons := console.New(
		&testOSFileW{ts.stdOut}, &testOSFileW{ts.stdErr},
		&testOSFileR{&safeBuffer{}}, false, "dumb", signal.Notify, signal.Stop)
	cons.SetLogger(logger)

	ts.globalState = &globalState{
		ctx:            ctx,
		fs:             fs,
		console:        cons,
		getwd:          func() (string, error) { return ts.cwd, nil },
		args:           []string{},
		envVars:        map[string]string{},
		defaultFlags:   defaultFlags,
		flags:          defaultFlags,
		osExit:         defaultOsExitHandle,
		signalNotify:   signal.Notify,
		signalStop:     signal.Stop,
		logger:         logger,
		fallbackLogger: logger,
	}
	return ts
}

func TestRootCommandHelp(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t)
	ts.args = []string{"cdpdriver", "--help"}
	newRootCommand(ts.globalState).execute()

	out := ts.stdOut.String()
	for _, sub := range []string{"launch", "call", "screenshot", "pdf", "version"} {
		assert.Contains(t, out, sub)
	}
	assert.Contains(t, out, "--ws-url")
}

func TestRootCommandLogOutput(t *testing.T) {
	t.Parallel()

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()

		ts := newGlobalTestState(t)
		ts.args = []string{"cdpdriver", "--log-output", "syslog", "version"}
		ts.expectedExitCode = int(exitcodes.InvalidConfig)
		newRootCommand(ts.globalState).execute()

		assert.True(t, ts.loggerHook.Contains(logrus.ErrorLevel, "unsupported log output 'syslog'"))
		assert.Empty(t, ts.stdOut.String())
	})
	t.Run("file", func(t *testing.T) {
		t.Parallel()

		ts := newGlobalTestState(t)
		ts.args = []string{"cdpdriver", "-v", "--log-output", "file=./cdpdriver.log", "version"}
		newRootCommand(ts.globalState).execute()

		data, err := afero.ReadFile(ts.fs, ts.cwd+"cdpdriver.log")
		require.NoError(t, err)
		assert.Contains(t, string(data), "cdpdriver version: v"+Version)
		assert.Contains(t, ts.stdOut.String(), "cdpdriver v"+Version)
	})
	t.Run("json", func(t *testing.T) {
		t.Parallel()

		ts := newGlobalTestState(t)
		ts.args = []string{"cdpdriver", "-v", "--log-format", "json", "version"}
		newRootCommand(ts.globalState).execute()

		assert.Contains(t, ts.stdErr.String(), `"msg":"cdpdriver version: v`+Version)
	})
}

func TestRootCommandLogLevelFromEnv(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		ts := newGlobalTestState(t)
		ts.envVars["CDPDRIVER_LOG"] = "debug"
		ts.args = []string{"cdpdriver", "version"}
		newRootCommand(ts.globalState).execute()

		assert.True(t, ts.loggerHook.Contains(logrus.DebugLevel, "cdpdriver version"))
	})
	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		ts := newGlobalTestState(t)
		ts.envVars["CDPDRIVER_LOG"] = "loud"
		ts.args = []string{"cdpdriver", "version"}
		ts.expectedExitCode = int(exitcodes.InvalidConfig)
		newRootCommand(ts.globalState).execute()

		assert.True(t, ts.loggerHook.Contains(logrus.ErrorLevel, "invalid CDPDRIVER_LOG"))
	})
}

func TestGetFlags(t *testing.T) {
	t.Parallel()

	defaults := getDefaultFlags("/home/u/.config")
	assert.Equal(t, "/home/u/.config/cdpdriver/config.yaml", filepath.ToSlash(defaults.configFilePath))
	assert.Equal(t, "stderr", defaults.logOutput)

	flags := getFlags(defaults, map[string]string{
		"CDPDRIVER_CONFIG":        "/etc/cdpdriver.yaml",
		"CDPDRIVER_LOG_OUTPUT":    "none",
		"CDPDRIVER_LOG_FORMAT":    "json",
		"CDPDRIVER_TRACES_OUTPUT": "otel",
		"NO_COLOR":                "",
	})
	assert.Equal(t, "/etc/cdpdriver.yaml", flags.configFilePath)
	assert.Equal(t, "none", flags.logOutput)
	assert.Equal(t, "json", flags.logFormat)
	assert.Equal(t, "otel", flags.tracesOutput)
	assert.Equal(t, "none", defaults.tracesOutput)
	assert.True(t, flags.noColor)
}

func TestBuildEnvMap(t *testing.T) {
	t.Parallel()

	got := buildEnvMap([]string{"A=1", "B=x=y", "C"})
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "C": ""}, got)
}
