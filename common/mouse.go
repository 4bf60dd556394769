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
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
)

// Mouse represents a mouse input device.
// Each tab has a publicly accessible Mouse. Events carry the modifiers
// currently held on the tab's Keyboard.
type Mouse struct {
	ctx      context.Context
	session  inputSession
	keyboard *Keyboard

	mu     sync.Mutex
	x      float64
	y      float64
	button input.MouseButton
}

// NewMouse creates a new mouse.
func NewMouse(ctx context.Context, s inputSession, k *Keyboard) *Mouse {
	return &Mouse{
		ctx:      ctx,
		session:  s,
		keyboard: k,
		button:   input.None,
	}
}

// Position returns the last position the mouse was moved to.
func (m *Mouse) Position() (x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.x, m.y
}

// Move moves the mouse to x,y dispatching one event per step along the line.
func (m *Mouse) Move(x, y float64, opts *MouseMoveOptions) error {
	if opts == nil {
		opts = NewMouseMoveOptions()
	}
	if err := m.move(x, y, opts); err != nil {
		return fmt.Errorf("moving mouse to %v,%v: %w", x, y, err)
	}
	return nil
}

// Down presses the button at the current position.
func (m *Mouse) Down(opts *MouseDownUpOptions) error {
	if opts == nil {
		opts = NewMouseDownUpOptions()
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("pressing mouse button: %w", err)
	}
	if err := m.down(opts); err != nil {
		return fmt.Errorf("pressing mouse button: %w", err)
	}
	return nil
}

// Up releases the button at the current position.
func (m *Mouse) Up(opts *MouseDownUpOptions) error {
	if opts == nil {
		opts = NewMouseDownUpOptions()
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("releasing mouse button: %w", err)
	}
	if err := m.up(opts); err != nil {
		return fmt.Errorf("releasing mouse button: %w", err)
	}
	return nil
}

// Click moves to x,y then presses and releases the button.
func (m *Mouse) Click(x, y float64, opts *MouseClickOptions) error {
	if opts == nil {
		opts = NewMouseClickOptions()
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("clicking at %v,%v: %w", x, y, err)
	}
	if err := m.click(x, y, opts); err != nil {
		return fmt.Errorf("clicking at %v,%v: %w", x, y, err)
	}
	return nil
}

func (m *Mouse) move(x, y float64, opts *MouseMoveOptions) error {
	if err := m.session.slowMotion(m.ctx, slowMoMouseMove); err != nil {
		return err
	}

	m.mu.Lock()
	fromX, fromY, button := m.x, m.y, m.button
	m.mu.Unlock()

	steps := opts.steps()
	for i := int64(1); i <= steps; i++ {
		f := float64(i) / float64(steps)
		action := input.DispatchMouseEvent(input.MouseMoved, fromX+(x-fromX)*f, fromY+(y-fromY)*f).
			WithButton(button).
			WithModifiers(input.Modifier(m.keyboard.Modifiers()))
		if err := action.Do(cdp.WithExecutor(m.ctx, m.session)); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.x, m.y = x, y
	m.mu.Unlock()

	return nil
}

func (m *Mouse) down(opts *MouseDownUpOptions) error {
	button, err := parseMouseButton(opts.Button)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.button = button
	x, y := m.x, m.y
	m.mu.Unlock()

	action := input.DispatchMouseEvent(input.MousePressed, x, y).
		WithButton(button).
		WithModifiers(input.Modifier(m.keyboard.Modifiers())).
		WithClickCount(opts.ClickCount)
	return action.Do(cdp.WithExecutor(m.ctx, m.session))
}

func (m *Mouse) up(opts *MouseDownUpOptions) error {
	button, err := parseMouseButton(opts.Button)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.button = input.None
	x, y := m.x, m.y
	m.mu.Unlock()

	action := input.DispatchMouseEvent(input.MouseReleased, x, y).
		WithButton(button).
		WithModifiers(input.Modifier(m.keyboard.Modifiers())).
		WithClickCount(opts.ClickCount)
	return action.Do(cdp.WithExecutor(m.ctx, m.session))
}

func (m *Mouse) click(x, y float64, opts *MouseClickOptions) error {
	if x == 0 && y == 0 {
		m.session.logger().Warnf("Mouse:click", "clicking at 0,0, the target is probably not laid out")
	}
	if err := m.move(x, y, NewMouseMoveOptions()); err != nil {
		return err
	}

	downUp := opts.downUp()
	if err := m.session.slowMotion(m.ctx, slowMoClick); err != nil {
		return err
	}
	if err := m.down(downUp); err != nil {
		return err
	}
	if err := wait(m.ctx, opts.Delay); err != nil {
		return err
	}
	if err := m.session.slowMotion(m.ctx, slowMoClick); err != nil {
		return err
	}
	return m.up(downUp)
}
