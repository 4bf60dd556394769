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
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/liuxd6825/cdpdriver/log"
)

const tracerName = "github.com/liuxd6825/cdpdriver"

var _ cdp.Executor = &Connection{}

/*
Connection owns the Channel to the browser and is the root "browser
session".

A single receive goroutine reads frames from the channel. Replies are
matched by message id against the pending call table and wake the caller
blocked in CallMethod. Events are pushed, in arrival order, to every
EventStream subscribed to the frame's session id; events without a session
id belong to the browser and go to streams subscribed to the empty id.

When the channel ends, for whatever reason, every pending call fails with
ErrTransportClosed and every event stream is closed.
*/
type Connection struct {
	ch     Channel
	logger *log.Logger
	tracer trace.Tracer

	msgID int64

	pendingMu sync.Mutex
	pending   map[int64]chan *cdproto.Message
	closed    bool

	streamsMu sync.Mutex
	streams   map[target.SessionID][]*EventStream

	idleTimeout time.Duration
	lastRecv    atomic.Int64

	done         chan struct{}
	shutdownOnce sync.Once
}

// ConnectionOption configures a Connection.
type ConnectionOption func(*Connection)

// WithIdleTimeout closes the connection when no frame arrived for d.
// Zero disables the watchdog.
func WithIdleTimeout(d time.Duration) ConnectionOption {
	return func(c *Connection) {
		c.idleTimeout = d
	}
}

// WithTracerProvider sets the provider of the per call spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) ConnectionOption {
	return func(c *Connection) {
		c.tracer = tp.Tracer(tracerName)
	}
}

// NewConnection starts the receive loop over ch.
func NewConnection(ch Channel, logger *log.Logger, opts ...ConnectionOption) *Connection {
	c := &Connection{
		ch:      ch,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		pending: make(map[int64]chan *cdproto.Message),
		streams: make(map[target.SessionID][]*EventStream),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastRecv.Store(time.Now().UnixNano())

	go c.recvLoop()
	if c.idleTimeout > 0 {
		go c.watchIdle()
	}

	return c
}

// Done is closed once the connection shut down.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// IsClosed reports whether the connection shut down.
func (c *Connection) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close closes the channel and fails every pending call.
// It is safe to call more than once.
func (c *Connection) Close() {
	if err := c.ch.Close(); err != nil {
		c.logger.Debugf("Connection:Close", "closing channel: %v", err)
	}
	c.shutdown()
}

func (c *Connection) shutdown() {
	c.shutdownOnce.Do(func() {
		c.pendingMu.Lock()
		c.closed = true
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()

		c.streamsMu.Lock()
		for sid, ss := range c.streams {
			for _, s := range ss {
				s.close()
			}
			delete(c.streams, sid)
		}
		c.streamsMu.Unlock()

		close(c.done)
		c.logger.Debugf("Connection:shutdown", "connection closed")
	})
}

func (c *Connection) recvLoop() {
	defer c.shutdown()

	for {
		buf, err := c.ch.ReadFrame()
		if errors.Is(err, io.EOF) {
			c.logger.Debugf("Connection:recvLoop", "remote end closed the channel")
			return
		}
		if err != nil {
			if !c.IsClosed() {
				c.logger.Errorf("Connection:recvLoop", "reading frame: %v", err)
			}
			_ = c.ch.Close()
			return
		}
		c.lastRecv.Store(time.Now().UnixNano())
		c.logger.Tracef("cdp:recv", "<- %s", buf)

		var msg cdproto.Message
		decoder := jlexer.Lexer{Data: buf}
		msg.UnmarshalEasyJSON(&decoder)
		if err := decoder.Error(); err != nil {
			c.logger.Debugf("Connection:recvLoop", "dropping undecodable frame: %v", err)
			continue
		}

		switch {
		case msg.Method != "":
			c.routeEvent(&msg)
		case msg.ID != 0:
			c.resolve(&msg)
		default:
			c.logger.Debugf("Connection:recvLoop", "dropping frame without id or method: %s", buf)
		}
	}
}

func (c *Connection) watchIdle() {
	interval := c.idleTimeout / 4
	if interval > time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-t.C:
			last := time.Unix(0, c.lastRecv.Load())
			if now.Sub(last) < c.idleTimeout {
				continue
			}
			c.logger.Warnf("Connection:watchIdle", "no frame received for %s, closing", c.idleTimeout)
			c.Close()
			return
		}
	}
}

// resolve completes the pending call with msg's id. The entry is removed
// under the lock so a call is completed at most once.
func (c *Connection) resolve(msg *cdproto.Message) {
	c.pendingMu.Lock()
	ch, ok := c.pending[msg.ID]
	delete(c.pending, msg.ID)
	c.pendingMu.Unlock()

	if !ok {
		c.logger.Debugf("Connection:resolve", "no pending call for reply id:%d", msg.ID)
		return
	}
	ch <- msg
}

func (c *Connection) routeEvent(msg *cdproto.Message) {
	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()

	ss := c.streams[msg.SessionID]
	if len(ss) == 0 {
		c.logger.Tracef("Connection:routeEvent", "no listener, dropping sid:%v method:%s", msg.SessionID, msg.Method)
	}
	for _, s := range ss {
		s.push(msg)
	}

	if msg.Method != cdproto.EventTargetDetachedFromTarget {
		return
	}
	var ev target.EventDetachedFromTarget
	if err := easyjson.Unmarshal(msg.Params, &ev); err != nil {
		c.logger.Debugf("Connection:routeEvent", "decoding detach event: %v", err)
		return
	}
	for _, s := range c.streams[ev.SessionID] {
		s.close()
	}
	delete(c.streams, ev.SessionID)
}

// ListenToTargetEvents returns a stream receiving, in arrival order, the
// events tagged with sessionID. The empty id subscribes to browser level
// events. The stream ends when the session detaches or the connection
// shuts down.
func (c *Connection) ListenToTargetEvents(sessionID target.SessionID) *EventStream {
	s := newEventStream(c, sessionID)

	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()

	if c.IsClosed() {
		s.close()
		return s
	}
	c.streams[sessionID] = append(c.streams[sessionID], s)

	return s
}

func (c *Connection) unsubscribe(s *EventStream) {
	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()

	ss := c.streams[s.sessionID]
	for i := range ss {
		if ss[i] == s {
			c.streams[s.sessionID] = append(ss[:i:i], ss[i+1:]...)
			break
		}
	}
	if len(c.streams[s.sessionID]) == 0 {
		delete(c.streams, s.sessionID)
	}
}

// CallMethod sends method with the already encoded params and blocks until
// the browser replied, the connection shut down or ctx is done. An empty
// sessionID addresses the browser itself.
func (c *Connection) CallMethod(
	ctx context.Context, sessionID target.SessionID, method string, params easyjson.RawMessage,
) (_ easyjson.RawMessage, err error) {
	id := atomic.AddInt64(&c.msgID, 1)

	ctx, span := c.tracer.Start(ctx, method, trace.WithAttributes(
		attribute.Int64("cdp.message_id", id),
		attribute.String("cdp.session_id", string(sessionID)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	reply := make(chan *cdproto.Message, 1)
	c.pendingMu.Lock()
	if c.closed {
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("calling %s: %w", method, ErrTransportClosed)
	}
	c.pending[id] = reply
	c.pendingMu.Unlock()

	msg := &cdproto.Message{
		ID:        id,
		SessionID: sessionID,
		Method:    cdproto.MethodType(method),
		Params:    params,
	}
	if err := c.send(msg); err != nil {
		c.forget(id)
		return nil, err
	}

	select {
	case r, ok := <-reply:
		if !ok {
			return nil, fmt.Errorf("calling %s: %w", method, ErrTransportClosed)
		}
		if r.Error != nil {
			return nil, &RemoteError{Method: method, Code: r.Error.Code, Message: r.Error.Message}
		}
		return r.Result, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, fmt.Errorf("calling %s: %w", method, ctx.Err())
	}
}

func (c *Connection) forget(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *Connection) send(msg *cdproto.Message) error {
	encoder := jwriter.Writer{}
	msg.MarshalEasyJSON(&encoder)
	if err := encoder.Error; err != nil {
		return fmt.Errorf("encoding %s: %w", msg.Method, err)
	}
	buf, err := encoder.BuildBytes()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", msg.Method, err)
	}

	c.logger.Tracef("cdp:send", "-> %s", buf)
	if err := c.ch.WriteFrame(buf); err != nil {
		if c.IsClosed() {
			return fmt.Errorf("calling %s: %w", msg.Method, ErrTransportClosed)
		}
		if errors.Is(err, ErrMalformedFrame) {
			return fmt.Errorf("calling %s: %w", msg.Method, err)
		}
		c.logger.Debugf("Connection:send", "write failed, closing: %v", err)
		c.Close()
		return fmt.Errorf("calling %s: %w: %v", msg.Method, ErrTransportClosed, err)
	}

	return nil
}

// Execute implements cdp.Executor for browser level calls.
func (c *Connection) Execute(
	ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler,
) error {
	return c.execute(ctx, "", method, params, res)
}

// ExecuteOnSession is Execute addressed to a target session.
func (c *Connection) ExecuteOnSession(
	ctx context.Context, sessionID target.SessionID,
	method string, params easyjson.Marshaler, res easyjson.Unmarshaler,
) error {
	return c.execute(ctx, sessionID, method, params, res)
}

func (c *Connection) execute(
	ctx context.Context, sessionID target.SessionID,
	method string, params easyjson.Marshaler, res easyjson.Unmarshaler,
) error {
	var buf []byte
	if params != nil {
		var err error
		if buf, err = easyjson.Marshal(params); err != nil {
			return fmt.Errorf("encoding %s params: %w", method, err)
		}
	}

	result, err := c.CallMethod(ctx, sessionID, method, buf)
	if err != nil {
		return err
	}
	if res == nil || len(result) == 0 {
		return nil
	}
	if err := easyjson.Unmarshal(result, res); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}

	return nil
}

// AttachToTarget attaches a flat session to targetID.
func (c *Connection) AttachToTarget(ctx context.Context, targetID target.ID) (target.SessionID, error) {
	action := target.AttachToTarget(targetID).WithFlatten(true)
	sid, err := action.Do(cdp.WithExecutor(ctx, c))
	if err != nil {
		return "", fmt.Errorf("attaching to target %v: %w", targetID, err)
	}
	c.logger.Debugf("Connection:AttachToTarget", "tid:%v sid:%v", targetID, sid)

	return sid, nil
}
