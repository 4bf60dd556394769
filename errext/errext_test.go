package errext

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/cdpdriver/errext/exitcodes"
)

func TestWithExitCodeIfNone(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WithExitCodeIfNone(nil, exitcodes.LaunchFailed))

	base := errors.New("spawn failed")
	err := WithExitCodeIfNone(base, exitcodes.LaunchFailed)
	err = WithExitCodeIfNone(fmt.Errorf("launching: %w", err), exitcodes.GenericError)

	var ecerr HasExitCode
	require.ErrorAs(t, err, &ecerr)
	assert.Equal(t, exitcodes.LaunchFailed, ecerr.ExitCode())
	assert.ErrorIs(t, err, base)
}

func TestWithHint(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WithHint(nil, "ignored"))

	err := WithHint(errors.New("executable not found"), "install chromium")
	err = WithHint(err, "or set CDPDRIVER_EXECUTABLE_PATH")

	var herr HasHint
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "or set CDPDRIVER_EXECUTABLE_PATH (install chromium)", herr.Hint())
}

func TestFormat(t *testing.T) {
	t.Parallel()

	msg, fields := Format(nil)
	assert.Empty(t, msg)
	assert.Nil(t, fields)

	err := WithExitCodeIfNone(WithHint(errors.New("boom"), "try again"), exitcodes.TransportClosed)
	msg, fields = Format(err)
	assert.Equal(t, "boom", msg)
	assert.Equal(t, map[string]interface{}{
		"hint":      "try again",
		"exit_code": int(exitcodes.TransportClosed),
	}, fields)

	var ie *InterruptError = &InterruptError{Reason: "interrupted"}
	assert.Equal(t, exitcodes.ExternalAbort, ie.ExitCode())
}
