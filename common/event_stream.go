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
	"io"
	"sync"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/target"
)

// EventStream is an unbounded FIFO of the events of one session.
// The receive loop never blocks on it, however slow the consumer is.
type EventStream struct {
	conn      *Connection
	sessionID target.SessionID

	mu     sync.Mutex
	queue  []*cdproto.Message
	closed bool
	notify chan struct{}
}

func newEventStream(conn *Connection, sessionID target.SessionID) *EventStream {
	return &EventStream{
		conn:      conn,
		sessionID: sessionID,
		notify:    make(chan struct{}, 1),
	}
}

// SessionID returns the session the stream is subscribed to.
func (s *EventStream) SessionID() target.SessionID {
	return s.sessionID
}

func (s *EventStream) push(msg *cdproto.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	s.wake()
}

func (s *EventStream) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.wake()
}

func (s *EventStream) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until the next event is available. Events queued before the
// stream ended are still delivered; after that Next returns io.EOF.
func (s *EventStream) Next(ctx context.Context) (*cdproto.Message, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return msg, nil
		}
		if s.closed {
			s.mu.Unlock()
			return nil, io.EOF
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return nil, ctx.Err() //nolint:wrapcheck
		}
	}
}

// Len returns the number of queued events.
func (s *EventStream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close unsubscribes the stream. Queued events are discarded.
func (s *EventStream) Close() {
	s.conn.unsubscribe(s)

	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()

	s.wake()
}
