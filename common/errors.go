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
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTransportClosed is returned to every call that was in flight, or is
	// issued, after the connection to the browser dropped.
	ErrTransportClosed = errors.New("transport closed")

	// ErrTimedOut is the sentinel matched by every *TimeoutError.
	ErrTimedOut = errors.New("timed out")

	// ErrNotFound is the sentinel matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrRemote is the sentinel matched by every *RemoteError.
	ErrRemote = errors.New("remote error")

	// ErrProcessReaped is returned when signaling a process that was
	// already waited for.
	ErrProcessReaped = errors.New("process already reaped")

	// ErrMalformedFrame is returned by a channel that read bytes which are
	// not valid UTF-8.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrTargetCrashed is returned by calls on a tab whose renderer crashed.
	ErrTargetCrashed = errors.New("target has crashed")
)

// RemoteError is an error object returned by the browser for a call.
type RemoteError struct {
	Method  string
	Code    int64
	Message string
}

func (e *RemoteError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("%s (%d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Method, e.Message, e.Code)
}

// Is reports whether target is ErrRemote.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote //nolint:errorlint,goerr113
}

// TimeoutError is returned when a waited for condition was never satisfied.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimedOut
}

// NotFoundError is returned when a queried element or node is absent.
// It is kept apart from RemoteError so that polling callers can retry on it.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found", e.What)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// IsNotFound reports whether err says that a node is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// LaunchReason classifies a LaunchError.
type LaunchReason int

const (
	LaunchReasonUnknown LaunchReason = iota
	LaunchReasonExecutableNotFound
	LaunchReasonSpawnFailed
	LaunchReasonNoAvailablePort
	LaunchReasonPortInUse
	LaunchReasonDiscoveryTimeout
	LaunchReasonProcessExited
)

func (r LaunchReason) String() string {
	switch r {
	case LaunchReasonExecutableNotFound:
		return "executable not found"
	case LaunchReasonSpawnFailed:
		return "spawn failed"
	case LaunchReasonNoAvailablePort:
		return "no available port"
	case LaunchReasonPortInUse:
		return "port already in use"
	case LaunchReasonDiscoveryTimeout:
		return "timed out waiting for the debugging endpoint"
	case LaunchReasonProcessExited:
		return "browser exited before the debugging endpoint was ready"
	}
	return "launch failed"
}

// LaunchError is returned when the browser could not be started.
type LaunchError struct {
	Reason LaunchReason
	Err    error
}

func (e *LaunchError) Error() string {
	if e.Err == nil {
		return "launching browser: " + e.Reason.String()
	}
	return fmt.Sprintf("launching browser: %s: %v", e.Reason, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// IsLaunchReason reports whether err is a LaunchError with the given reason.
func IsLaunchReason(err error, reason LaunchReason) bool {
	var lerr *LaunchError
	return errors.As(err, &lerr) && lerr.Reason == reason
}

// NavigationError is returned when the browser refused to navigate, for
// instance because the host could not be resolved.
type NavigationError struct {
	URL       string
	ErrorText string
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigating to %q: %s", e.URL, e.ErrorText)
}

// notFoundFromRemote turns the remote error the browser returns for a node
// that vanished, or was never there, into a NotFoundError.
func notFoundFromRemote(err error, what string) error {
	var rerr *RemoteError
	if errors.As(err, &rerr) && rerr.Message == "Could not find node with given id" {
		return &NotFoundError{What: what}
	}
	return err
}
