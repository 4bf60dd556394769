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

	"github.com/chromedp/cdproto/input"
)

// MouseClickOptions configures Mouse.Click. Delay is the pause between
// press and release in milliseconds.
type MouseClickOptions struct {
	Button     string `json:"button"`
	ClickCount int64  `json:"clickCount"`
	Delay      int64  `json:"delay"`
}

// MouseDownUpOptions configures Mouse.Down and Mouse.Up.
type MouseDownUpOptions struct {
	Button     string `json:"button"`
	ClickCount int64  `json:"clickCount"`
}

// MouseMoveOptions configures Mouse.Move. Steps is the number of
// intermediate mouse move events, values below 1 mean a single event.
type MouseMoveOptions struct {
	Steps int64 `json:"steps"`
}

func NewMouseClickOptions() *MouseClickOptions {
	return &MouseClickOptions{Button: "left", ClickCount: 1}
}

func NewMouseDownUpOptions() *MouseDownUpOptions {
	return &MouseDownUpOptions{Button: "left", ClickCount: 1}
}

func NewMouseMoveOptions() *MouseMoveOptions {
	return &MouseMoveOptions{Steps: 1}
}

// Validate reports unknown buttons and negative counts or delays.
func (o *MouseClickOptions) Validate() error {
	if o.Delay < 0 {
		return fmt.Errorf("negative click delay %d", o.Delay)
	}
	return o.downUp().Validate()
}

func (o *MouseClickOptions) downUp() *MouseDownUpOptions {
	return &MouseDownUpOptions{Button: o.Button, ClickCount: o.ClickCount}
}

// Validate reports unknown buttons and negative click counts.
func (o *MouseDownUpOptions) Validate() error {
	if _, err := parseMouseButton(o.Button); err != nil {
		return err
	}
	if o.ClickCount < 0 {
		return fmt.Errorf("negative click count %d", o.ClickCount)
	}
	return nil
}

func (o *MouseMoveOptions) steps() int64 {
	if o == nil || o.Steps < 1 {
		return 1
	}
	return o.Steps
}

var errUnknownMouseButton = errors.New("unknown mouse button")

func parseMouseButton(name string) (input.MouseButton, error) {
	switch name {
	case "", "left":
		return input.Left, nil
	case "middle":
		return input.Middle, nil
	case "right":
		return input.Right, nil
	case "back":
		return input.Back, nil
	case "forward":
		return input.Forward, nil
	}
	return input.None, fmt.Errorf("%w %q", errUnknownMouseButton, name)
}
