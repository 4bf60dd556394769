package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line    string
		want    params
		wantErr error
		errMsg  string
	}{
		{
			line: "otel",
			want: defaultParams(),
		},
		{
			line: "otel=collector:4317",
			want: params{proto: "grpc", endpoint: "collector:4317", insecure: true, headers: map[string]string{}},
		},
		{
			line: "otel=https://collector.example.com/v1/traces,header.Authorization=token abc",
			want: params{
				proto:    "http",
				endpoint: "collector.example.com",
				urlPath:  "/v1/traces",
				headers:  map[string]string{"Authorization": "token abc"},
			},
		},
		{
			line: "otel=127.0.0.1:4318,proto=http",
			want: params{proto: "http", endpoint: "127.0.0.1:4318", insecure: true, headers: map[string]string{}},
		},
		{
			line:    "jaeger=127.0.0.1:6831",
			wantErr: ErrInvalidTracesOutput,
		},
		{
			line:    "otel,proto=udp",
			wantErr: ErrInvalidProto,
		},
		{
			line:    "otel=ftp://collector/traces",
			wantErr: ErrInvalidURLScheme,
		},
		{
			line:    "otel=http://collector:4318/v1/traces,proto=grpc",
			wantErr: ErrInvalidGRPCWithURLPath,
		},
		{
			line:   "otel,sample=0.5",
			errMsg: "unknown otel config key sample",
		},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()

			got, err := parseConfigLine(tt.line)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.EqualError(t, err, tt.errMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFromConfigLine(t *testing.T) {
	t.Parallel()

	t.Run("none", func(t *testing.T) {
		t.Parallel()

		for _, line := range []string{"", "none"} {
			p, err := FromConfigLine(t.Context(), line, "0.0.0")
			require.NoError(t, err)
			assert.False(t, p.Enabled())
			assert.NoError(t, p.Shutdown(t.Context()))
		}
	})
	t.Run("otel", func(t *testing.T) {
		t.Parallel()

		for _, line := range []string{"otel=127.0.0.1:1", "otel=http://127.0.0.1:1/v1/traces"} {
			p, err := FromConfigLine(t.Context(), line, "0.0.0")
			require.NoError(t, err, line)
			assert.True(t, p.Enabled())

			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			assert.NoError(t, p.Shutdown(ctx), "nothing to flush")
			cancel()
		}
	})
	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		_, err := FromConfigLine(t.Context(), "otel,proto=udp", "0.0.0")
		assert.ErrorIs(t, err, ErrInvalidProto)
	})
}
