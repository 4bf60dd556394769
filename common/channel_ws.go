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

package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteBufferSize = 1 << 20

// WebSocketChannel carries one protocol message per websocket text frame.
type WebSocketChannel struct {
	conn *websocket.Conn

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// DialWebSocket connects to the browser's debugging endpoint.
func DialWebSocket(ctx context.Context, wsURL string) (*WebSocketChannel, error) {
	wsd := websocket.Dialer{
		HandshakeTimeout: 60 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
		WriteBufferSize:  wsWriteBufferSize,
	}

	conn, resp, err := wsd.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialing %q: %w", wsURL, err)
	}

	return NewWebSocketChannel(conn), nil
}

// NewWebSocketChannel wraps an established websocket connection.
func NewWebSocketChannel(conn *websocket.Conn) *WebSocketChannel {
	return &WebSocketChannel{conn: conn}
}

// ReadFrame returns the next message. A close handshake or a closed
// connection is reported as io.EOF.
func (c *WebSocketChannel) ReadFrame() ([]byte, error) {
	_, buf, err := c.conn.ReadMessage()
	if err == nil {
		return buf, nil
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return nil, io.EOF
	}

	return nil, fmt.Errorf("reading websocket frame: %w", err)
}

// WriteFrame sends frame as one text message.
func (c *WebSocketChannel) WriteFrame(frame []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return fmt.Errorf("writing websocket frame: %w", err)
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing websocket frame: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("flushing websocket frame: %w", err)
	}

	return nil
}

// Close sends a close control frame and closes the connection.
// It is safe to call more than once.
func (c *WebSocketChannel) Close() error {
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second),
		)
		c.wmu.Unlock()
		c.closeErr = c.conn.Close()
	})

	return c.closeErr
}
