package chromium

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/cdpdriver/common"
)

func TestParseDevToolsURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		output string
		want   string
		reason common.LaunchReason
	}{
		{
			name: "found",
			output: "[WARNING:x.cc] something\n" +
				"DevTools listening on ws://127.0.0.1:8123/devtools/browser/a-b-c\n" +
				"[INFO:y.cc] more\n",
			want: "ws://127.0.0.1:8123/devtools/browser/a-b-c",
		},
		{
			name:   "port_in_use",
			output: "[0101:ERROR:socket_posix.cc(93)] bind() failed: Address already in use (98)\n",
			reason: common.LaunchReasonPortInUse,
		},
		{
			name:   "exited",
			output: "[0101:ERROR:ozone_platform_x11.cc] Missing X server\n",
			reason: common.LaunchReasonProcessExited,
		},
		{
			name:   "not_a_browser_endpoint",
			output: "DevTools listening on ws://127.0.0.1:8123/\n",
			reason: common.LaunchReasonProcessExited,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := io.NopCloser(strings.NewReader(tc.output))
			got, err := parseDevToolsURL(t.Context(), r, time.Second, nullLogger())
			if tc.want != "" {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
				return
			}
			require.Error(t, err)
			assert.True(t, common.IsLaunchReason(err, tc.reason), err)
		})
	}
}

func TestParseDevToolsURLTimeout(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	defer w.Close() //nolint:errcheck

	start := time.Now()
	_, err := parseDevToolsURL(t.Context(), r, 100*time.Millisecond, nullLogger())
	require.Error(t, err)
	assert.True(t, common.IsLaunchReason(err, common.LaunchReasonDiscoveryTimeout), err)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
