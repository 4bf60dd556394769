package common

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/liuxd6825/cdpdriver/log"
	"github.com/liuxd6825/cdpdriver/tests/ws"
)

func connectTestBrowser(t *testing.T) (*Browser, *ws.Recorder) {
	t.Helper()

	rec := &ws.Recorder{}
	srv := ws.NewServer(t, ws.WithCDPHandler("/cdp", ws.CDPDefaultHandler, rec))

	b, err := ConnectBrowser(t.Context(), srv.URL("/cdp"), NewLaunchOptions(), log.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(b.Close)

	return b, rec
}

func TestBrowserNewTab(t *testing.T) {
	t.Parallel()

	b, rec := connectTestBrowser(t)

	tab, err := b.NewTab("")
	require.NoError(t, err)
	assert.Equal(t, ws.DefaultSessionID, string(tab.ID()))
	assert.Equal(t, ws.DefaultTargetID, string(tab.TargetID()))

	again, err := b.attach(tab.TargetID())
	require.NoError(t, err)
	assert.Same(t, tab, again, "a target is attached once")
	assert.Len(t, b.Tabs(), 1)

	require.NoError(t, tab.Navigate("about:blank"))

	methods := rec.Methods()
	assert.Contains(t, methods, cdproto.MethodType(cdproto.CommandTargetCreateTarget))
	assert.Contains(t, methods, cdproto.MethodType(cdproto.CommandTargetAttachToTarget))
	assert.Contains(t, methods, cdproto.MethodType(cdproto.CommandPageNavigate))
}

func TestBrowserWaitForInitialTab(t *testing.T) {
	t.Parallel()

	b, _ := connectTestBrowser(t)

	tab, err := b.WaitForInitialTab()
	require.NoError(t, err)
	assert.Equal(t, ws.DefaultTargetID, string(tab.TargetID()))

	tab.Detach()
	require.Eventually(t, func() bool { return len(b.Tabs()) == 0 }, time.Second, 5*time.Millisecond,
		"a detached tab is forgotten")
}

func TestBrowserVersion(t *testing.T) {
	t.Parallel()

	b, _ := connectTestBrowser(t)

	v, err := b.Version()
	require.NoError(t, err)
	assert.Equal(t, "1.3", v.ProtocolVersion)
	assert.Equal(t, "HeadlessChrome/120.0.6099.28", v.Product)
	assert.Equal(t, "12.0.267.8", v.JSVersion)
}

func TestBrowserTracerProvider(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	opts := NewLaunchOptions()
	opts.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	srv := ws.NewServer(t, ws.WithCDPHandler("/cdp", ws.CDPDefaultHandler, nil))
	b, err := ConnectBrowser(t.Context(), srv.URL("/cdp"), opts, log.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(b.Close)

	_, err = b.Version()
	require.NoError(t, err)

	spans := sr.Ended()
	require.NotEmpty(t, spans)
	assert.Equal(t, "Browser.getVersion", spans[len(spans)-1].Name())
}

func TestBrowserClose(t *testing.T) {
	t.Parallel()

	t.Run("connected", func(t *testing.T) {
		t.Parallel()

		b, rec := connectTestBrowser(t)
		_, err := b.NewTab("about:blank")
		require.NoError(t, err)
		require.True(t, b.IsConnected())

		b.Close()
		b.Close()

		assert.False(t, b.IsConnected())
		assert.Empty(t, b.Tabs())
		assert.NotContains(t, rec.Methods(), cdproto.MethodType(cdproto.CommandBrowserClose),
			"a browser this process doesn't own is left running")
	})
	t.Run("launched", func(t *testing.T) {
		t.Parallel()

		rec := &ws.Recorder{}
		srv := ws.NewServer(t, ws.WithCDPHandler("/cdp", ws.CDPDefaultHandler, rec))
		proc := NewBrowserProcess(startProcess(t, "sleep", "30"), nil, srv.URL("/cdp"), nil, log.NewNullLogger())

		b, err := NewBrowser(t.Context(), proc, NewLaunchOptions(), log.NewNullLogger())
		require.NoError(t, err)
		assert.Same(t, proc, b.Process())

		b.Close()

		assert.Contains(t, rec.Methods(), cdproto.MethodType(cdproto.CommandBrowserClose))
		select {
		case <-proc.Exited():
		default:
			t.Fatal("browser process still running")
		}
	})
}
