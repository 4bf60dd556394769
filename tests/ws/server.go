/*
 *
 * xk6-browser - a browser automation extension for k6
 * Copyright (C) 2021 Load Impact
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package ws

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

// Server can be used as a test alternative to a real CDP compatible browser.
type Server struct {
	t          testing.TB
	Mux        *http.ServeMux
	ServerHTTP *httptest.Server
	Context    context.Context
}

// NewServer returns a fully configured and running WS test server.
func NewServer(t testing.TB, opts ...func(*Server)) *Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	s := &Server{
		t:          t,
		Mux:        mux,
		ServerHTTP: server,
		Context:    ctx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the websocket URL of path on the server.
func (s *Server) URL(path string) string {
	return "ws" + strings.TrimPrefix(s.ServerHTTP.URL, "http") + path
}

// Recorder collects the methods of the commands a handler received.
type Recorder struct {
	mu      sync.Mutex
	methods []cdproto.MethodType
}

func (r *Recorder) record(m cdproto.MethodType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods = append(r.methods, m)
}

// Methods returns a copy of the recorded methods, in arrival order.
func (r *Recorder) Methods() []cdproto.MethodType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cdproto.MethodType(nil), r.methods...)
}

// WithClosureAbnormalHandler attaches an abnormal closure behavior to Server.
func WithClosureAbnormalHandler(path string) func(*Server) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, req, w.Header())
		if err != nil {
			return
		}
		// This forces a connection closure without a proper WS close message exchange
		_ = conn.Close()
	}
	return func(s *Server) {
		s.Mux.Handle(path, http.HandlerFunc(handler))
	}
}

// WithEchoHandler attaches an echo handler to Server.
func WithEchoHandler(path string) func(*Server) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, req, w.Header())
		if err != nil {
			return
		}
		messageType, r, e := conn.NextReader()
		if e != nil {
			return
		}
		var wc io.WriteCloser
		wc, err = conn.NextWriter(messageType)
		if err != nil {
			return
		}
		if _, err = io.Copy(wc, r); err != nil {
			return
		}
		if err = wc.Close(); err != nil {
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(10*time.Second),
		)
	}
	return func(s *Server) {
		s.Mux.Handle(path, http.HandlerFunc(handler))
	}
}

// CDPHandlerFunc answers one received message by writing to writeCh.
type CDPHandlerFunc func(conn *websocket.Conn, msg *cdproto.Message, writeCh chan cdproto.Message, done chan struct{})

// WithCDPHandler attaches a custom CDP handler function to Server.
// cmdsReceived may be nil.
func WithCDPHandler(path string, fn CDPHandlerFunc, cmdsReceived *Recorder) func(*Server) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, req, w.Header())
		if err != nil {
			return
		}

		done := make(chan struct{})
		writeCh := make(chan cdproto.Message)

		go func() {
			read := func(conn *websocket.Conn) (*cdproto.Message, error) {
				_, buf, err := conn.ReadMessage()
				if err != nil {
					return nil, err
				}

				var msg cdproto.Message
				decoder := jlexer.Lexer{Data: buf}
				msg.UnmarshalEasyJSON(&decoder)
				if err := decoder.Error(); err != nil {
					return nil, err
				}

				return &msg, nil
			}

			for {
				select {
				case <-done:
					return
				default:
				}

				msg, err := read(conn)
				if err != nil {
					close(done)
					return
				}

				if msg.Method != "" && cmdsReceived != nil {
					cmdsReceived.record(msg.Method)
				}

				fn(conn, msg, writeCh, done)
			}
		}()

		go func() {
			write := func(conn *websocket.Conn, msg *cdproto.Message) {
				encoder := jwriter.Writer{}
				msg.MarshalEasyJSON(&encoder)
				if err := encoder.Error; err != nil {
					return
				}

				writer, err := conn.NextWriter(websocket.TextMessage)
				if err != nil {
					return
				}
				if _, err := encoder.DumpTo(writer); err != nil {
					return
				}
				if err := writer.Close(); err != nil {
					return
				}
			}

			for {
				select {
				case msg := <-writeCh:
					write(conn, &msg)
				case <-done:
					return
				}
			}
		}()

		<-done // Wait for done channel to be closed before closing connection
		_ = conn.Close()
	}
	return func(s *Server) {
		s.Mux.Handle(path, http.HandlerFunc(handler))
	}
}

// Identifiers used by CDPDefaultHandler.
const (
	DefaultSessionID = "session_id_0123456789"
	DefaultTargetID  = "target_id_0123456789"
	DefaultFrameID   = DefaultTargetID
	DefaultLoaderID  = "loader_id_0123456789"
)

// CDPDefaultHandler is a default handler for the CDP WS server. It plays
// a browser with one page target that accepts every command.
func CDPDefaultHandler(_ *websocket.Conn, msg *cdproto.Message, writeCh chan cdproto.Message, done chan struct{}) {
	const (
		targetAttachedToTargetEvent = `
		{
			"sessionId": "` + DefaultSessionID + `",
			"targetInfo": {
				"targetId": "` + DefaultTargetID + `",
				"type": "page",
				"title": "",
				"url": "about:blank",
				"attached": true,
				"browserContextId": "browser_context_id_0123456789"
			},
			"waitingForDebugger": false
		}`

		targetAttachedToTargetResult = `{"sessionId":"` + DefaultSessionID + `"}`
		targetCreateTargetResult     = `{"targetId":"` + DefaultTargetID + `"}`
		targetGetTargetsResult       = `
		{
			"targetInfos": [{
				"targetId": "` + DefaultTargetID + `",
				"type": "page",
				"title": "",
				"url": "about:blank",
				"attached": false,
				"canAccessOpener": false
			}]
		}`
		browserGetVersionResult = `
		{
			"protocolVersion": "1.3",
			"product": "HeadlessChrome/120.0.6099.28",
			"revision": "@3a3ea6b1b4b0f0c5e7d5c5e0a2f2b3c4d5e6f7a8",
			"userAgent": "Mozilla/5.0 HeadlessChrome/120.0.6099.28",
			"jsVersion": "12.0.267.8"
		}`
		pageNavigateResult = `{"frameId":"` + DefaultFrameID + `","loaderId":"` + DefaultLoaderID + `"}`
	)

	reply := func(result string) {
		select {
		case writeCh <- cdproto.Message{
			ID:        msg.ID,
			SessionID: msg.SessionID,
			Result:    easyjson.RawMessage(result),
		}:
		case <-done:
		}
	}

	if msg.SessionID != "" && msg.Method != "" {
		switch msg.Method {
		case cdproto.MethodType(cdproto.CommandPageNavigate):
			reply(pageNavigateResult)
		default:
			reply("{}")
		}
	} else if msg.Method != "" {
		switch msg.Method {
		case cdproto.MethodType(cdproto.CommandTargetAttachToTarget):
			select {
			case writeCh <- cdproto.Message{
				Method: cdproto.EventTargetAttachedToTarget,
				Params: easyjson.RawMessage(targetAttachedToTargetEvent),
			}:
			case <-done:
				return
			}
			reply(targetAttachedToTargetResult)
		case cdproto.MethodType(cdproto.CommandTargetCreateTarget):
			reply(targetCreateTargetResult)
		case cdproto.MethodType(cdproto.CommandTargetGetTargets):
			reply(targetGetTargetsResult)
		case cdproto.MethodType(cdproto.CommandBrowserGetVersion):
			reply(browserGetVersionResult)
		default:
			reply("{}")
		}
	}
}
