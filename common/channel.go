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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"unicode/utf8"
)

// Channel is a duplex stream of protocol frames between this process and
// the browser. ReadFrame returns io.EOF once the remote end closed.
// WriteFrame is safe for concurrent use; ReadFrame is called by one
// goroutine only.
type Channel interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

var (
	_ Channel = &PipeChannel{}
	_ Channel = &WebSocketChannel{}
)

// frameDelimiter terminates every message on a pipe channel.
const frameDelimiter = 0

// PipeChannel carries NUL terminated JSON messages over a pair of
// unidirectional pipes.
type PipeChannel struct {
	r  io.ReadCloser
	br *bufio.Reader

	wmu sync.Mutex
	w   io.WriteCloser

	closeOnce sync.Once
	closeErr  error
}

// NewPipeChannel returns a channel reading replies from r and writing
// commands to w.
func NewPipeChannel(r io.ReadCloser, w io.WriteCloser) *PipeChannel {
	return &PipeChannel{
		r:  r,
		br: bufio.NewReaderSize(r, 1<<16),
		w:  w,
	}
}

// ReadFrame blocks until a full frame was read and returns it without its
// delimiter. A remote close, including one in the middle of a frame, is
// reported as io.EOF.
func (c *PipeChannel) ReadFrame() ([]byte, error) {
	frame, err := c.br.ReadBytes(frameDelimiter)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading pipe frame: %w", err)
	}
	frame = frame[:len(frame)-1]
	if !utf8.Valid(frame) {
		return nil, ErrMalformedFrame
	}

	return frame, nil
}

// WriteFrame writes frame followed by the delimiter as a single write.
func (c *PipeChannel) WriteFrame(frame []byte) error {
	if bytes.IndexByte(frame, frameDelimiter) >= 0 {
		return fmt.Errorf("writing pipe frame: %w: embedded NUL byte", ErrMalformedFrame)
	}
	buf := make([]byte, len(frame)+1)
	copy(buf, frame)
	buf[len(frame)] = frameDelimiter

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if _, err := c.w.Write(buf); err != nil {
		return fmt.Errorf("writing pipe frame: %w", err)
	}

	return nil
}

// Close closes both directions. It is safe to call more than once.
func (c *PipeChannel) Close() error {
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		werr := c.w.Close()
		c.wmu.Unlock()
		rerr := c.r.Close()
		c.closeErr = errors.Join(werr, rerr)
	})

	return c.closeErr
}
