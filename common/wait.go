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
	"time"
)

const (
	DefaultWaitTimeout  = 10 * time.Second
	DefaultWaitInterval = 100 * time.Millisecond
)

// Wait bounds a polling loop.
type Wait struct {
	// Op names the awaited condition in timeout errors.
	Op       string
	Timeout  time.Duration
	Interval time.Duration
}

// NewWait returns a Wait for op with the given timeout and the default
// interval.
func NewWait(op string, timeout time.Duration) Wait {
	return Wait{Op: op, Timeout: timeout, Interval: DefaultWaitInterval}
}

func (w Wait) withDefaults() Wait {
	if w.Timeout <= 0 {
		w.Timeout = DefaultWaitTimeout
	}
	if w.Interval <= 0 {
		w.Interval = DefaultWaitInterval
	}
	if w.Op == "" {
		w.Op = "waiting"
	}
	return w
}

var errNotYet = errors.New("not yet")

// WaitUntil calls pred every interval until it reports ok, and returns its
// value. It fails with a *TimeoutError once the timeout elapsed, or with
// the context's error.
func WaitUntil[T any](ctx context.Context, w Wait, pred func() (T, bool)) (T, error) {
	return WaitStrict(ctx, w, func() (T, error) {
		v, ok := pred()
		if !ok {
			return v, errNotYet
		}
		return v, nil
	}, func(err error) bool { return errors.Is(err, errNotYet) })
}

// WaitUntilErr calls pred every interval until it returns ok. Any error
// from pred ends the wait immediately.
func WaitUntilErr[T any](ctx context.Context, w Wait, pred func() (T, bool, error)) (T, error) {
	return WaitStrict(ctx, w, func() (T, error) {
		v, ok, err := pred()
		if err != nil {
			return v, err
		}
		if !ok {
			return v, errNotYet
		}
		return v, nil
	}, func(err error) bool { return errors.Is(err, errNotYet) })
}

// WaitStrict calls pred every interval until it returns without error.
// Errors for which isAbsent reports true mean "not there yet" and are
// retried; any other error is returned as is, immediately.
func WaitStrict[T any](
	ctx context.Context, w Wait, pred func() (T, error), isAbsent func(error) bool,
) (T, error) {
	w = w.withDefaults()

	deadline := time.NewTimer(w.Timeout)
	defer deadline.Stop()

	var zero T
	for {
		v, err := pred()
		if err == nil {
			return v, nil
		}
		if !isAbsent(err) {
			return zero, err
		}

		poll := time.NewTimer(w.Interval)
		select {
		case <-poll.C:
		case <-deadline.C:
			poll.Stop()
			return zero, &TimeoutError{Op: w.Op, Timeout: w.Timeout}
		case <-ctx.Done():
			poll.Stop()
			return zero, ctx.Err() //nolint:wrapcheck
		}
	}
}
