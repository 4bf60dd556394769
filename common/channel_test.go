package common

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/cdpdriver/tests/ws"
)

type discardCloser struct{ io.Writer }

func (discardCloser) Close() error { return nil }

// loopbackPipe returns a PipeChannel reading back what it writes.
func loopbackPipe(t *testing.T) *PipeChannel {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	ch := NewPipeChannel(r, w)
	t.Cleanup(func() { _ = ch.Close() })

	return ch
}

func TestPipeChannelRoundTrip(t *testing.T) {
	t.Parallel()

	ch := loopbackPipe(t)

	frames := [][]byte{
		[]byte(`{"id":1,"method":"Browser.getVersion"}`),
		[]byte(`{"id":2,"params":{"text":"héllo wörld ✓ 日本"}}`),
		[]byte(`{}`),
		[]byte("{\"ctl\":\"\x01\x1b[0m\t\x7f\r\n\x1f\"}"),
		[]byte("\x01\x02\x03 \x1b\x7f"),
		bytes.Repeat([]byte("x"), 200_000),
	}
	go func() {
		for _, f := range frames {
			assert.NoError(t, ch.WriteFrame(f))
		}
	}()
	for _, want := range frames {
		got, err := ch.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPipeChannelConcurrentWrites(t *testing.T) {
	t.Parallel()

	ch := loopbackPipe(t)

	const writers, perWriter = 8, 50
	go func() {
		var wg sync.WaitGroup
		for w := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range perWriter {
					assert.NoError(t, ch.WriteFrame([]byte(fmt.Sprintf(`{"w":%d,"i":%d,"pad":"%s"}`,
						w, i, bytes.Repeat([]byte("p"), 1000)))))
				}
			}()
		}
		wg.Wait()
	}()

	seen := make(map[string]struct{})
	for range writers * perWriter {
		got, err := ch.ReadFrame()
		require.NoError(t, err)
		assert.Regexp(t, `^\{"w":\d,"i":\d+,"pad":"p+"\}$`, string(got))
		seen[string(got)] = struct{}{}
	}
	assert.Len(t, seen, writers*perWriter)
}

func TestPipeChannelReadErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{name: "eof", input: nil, wantErr: io.EOF},
		{name: "partial_frame", input: []byte(`{"id":1`), wantErr: io.EOF},
		{name: "invalid_utf8", input: []byte{'"', 0xff, 0xfe, '"', 0}, wantErr: ErrMalformedFrame},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, w, err := os.Pipe()
			require.NoError(t, err)
			ch := NewPipeChannel(r, discardCloser{io.Discard})
			t.Cleanup(func() { _ = r.Close() })

			_, err = w.Write(tc.input)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			_, err = ch.ReadFrame()
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPipeChannelRejectsEmbeddedNUL(t *testing.T) {
	t.Parallel()

	ch := loopbackPipe(t)
	err := ch.WriteFrame([]byte("a\x00b"))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestPipeChannelClose(t *testing.T) {
	t.Parallel()

	ch := loopbackPipe(t)
	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close(), "closing twice is a no-op")

	_, err := ch.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
	assert.Error(t, ch.WriteFrame([]byte(`{}`)))
}

func TestWebSocketChannel(t *testing.T) {
	t.Parallel()

	srv := ws.NewServer(t, ws.WithEchoHandler("/echo"))

	ch, err := DialWebSocket(t.Context(), srv.URL("/echo"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	frame := []byte(`{"id":7,"method":"Page.navigate","params":{"url":"https://example.com/ü"}}`)
	require.NoError(t, ch.WriteFrame(frame))

	got, err := ch.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	// the echo server closes normally after one message
	_, err = ch.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}
