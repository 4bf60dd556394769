package chromium

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/cdpdriver/log"
)

type resolverFunc func() (string, error)

func (f resolverFunc) Resolve(_ context.Context) (string, error) { return f() }

func nullLogger() *log.Logger {
	return log.NewNullLogger()
}

// fakeBrowser writes an executable shell script standing in for the
// browser. Every invocation appends a line to the returned calls file.
func fakeBrowser(t *testing.T, body string) (path, calls string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	dir := t.TempDir()
	path = filepath.Join(dir, "fake-chrome")
	calls = path + ".calls"
	script := "#!/bin/sh\n" +
		`echo "$@" >> "` + calls + "\"\n" +
		`for a in "$@"; do case "$a" in --remote-debugging-port=*) port="${a#*=}";; esac; done` + "\n" +
		body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700)) //nolint:gosec

	return path, calls
}

func countCalls(t *testing.T, calls string) int {
	t.Helper()

	b, err := os.ReadFile(calls) //nolint:gosec
	require.NoError(t, err)
	return strings.Count(string(b), "\n")
}
