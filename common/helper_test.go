package common

import (
	"io"
	"sync"
	"testing"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/target"
	"github.com/mailru/easyjson"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/cdpdriver/log"
	"github.com/liuxd6825/cdpdriver/testutils"
)

// fakeBrowser is an in memory Channel playing the browser. Every frame
// written to it is decoded and handed to handle, whose replies are queued
// for reading. Tests push events with emit.
type fakeBrowser struct {
	t testing.TB

	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	handle   func(msg *cdproto.Message) []*cdproto.Message
	received []*cdproto.Message
}

var _ Channel = &fakeBrowser{}

// newFakeBrowser returns a fakeBrowser answering every call with an empty
// result, unless handle is given.
func newFakeBrowser(t testing.TB, handle func(msg *cdproto.Message) []*cdproto.Message) *fakeBrowser {
	t.Helper()

	if handle == nil {
		handle = func(msg *cdproto.Message) []*cdproto.Message {
			return []*cdproto.Message{replyTo(msg, `{}`)}
		}
	}
	return &fakeBrowser{
		t:      t,
		frames: make(chan []byte, 1024),
		closed: make(chan struct{}),
		handle: handle,
	}
}

func (f *fakeBrowser) ReadFrame() ([]byte, error) {
	select {
	case b := <-f.frames:
		return b, nil
	case <-f.closed:
		return nil, io.EOF
	}
}

func (f *fakeBrowser) WriteFrame(frame []byte) error {
	select {
	case <-f.closed:
		return io.ErrClosedPipe
	default:
	}

	var msg cdproto.Message
	if err := easyjson.Unmarshal(frame, &msg); err != nil {
		return err
	}

	f.mu.Lock()
	f.received = append(f.received, &msg)
	handle := f.handle
	f.mu.Unlock()

	for _, r := range handle(&msg) {
		f.emit(r)
	}
	return nil
}

func (f *fakeBrowser) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

// emit queues msg for the connection to read.
func (f *fakeBrowser) emit(msg *cdproto.Message) {
	if msg == nil {
		return
	}
	b, err := easyjson.Marshal(msg)
	require.NoError(f.t, err)

	select {
	case f.frames <- b:
	case <-f.closed:
	}
}

// calls returns the received messages with the given method.
func (f *fakeBrowser) calls(method string) []*cdproto.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ms []*cdproto.Message
	for _, m := range f.received {
		if string(m.Method) == method {
			ms = append(ms, m)
		}
	}
	return ms
}

func replyTo(msg *cdproto.Message, result string) *cdproto.Message {
	return &cdproto.Message{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		Result:    easyjson.RawMessage(result),
	}
}

func errorReply(msg *cdproto.Message, code int64, message string) *cdproto.Message {
	return &cdproto.Message{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		Error:     &cdproto.Error{Code: code, Message: message},
	}
}

func eventMsg(sid target.SessionID, method, params string) *cdproto.Message {
	return &cdproto.Message{
		SessionID: sid,
		Method:    cdproto.MethodType(method),
		Params:    easyjson.RawMessage(params),
	}
}

func newTestLogger(t testing.TB) (*log.Logger, *testutils.SimpleLogrusHook) {
	t.Helper()

	hook := &testutils.SimpleLogrusHook{HookedLevels: logrus.AllLevels}
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	lg.SetLevel(logrus.DebugLevel)
	lg.AddHook(hook)

	return log.New(lg, false, nil), hook
}
