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
	"sync"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/target"
)

// Event is a protocol event delivered to generic listeners.
type Event struct {
	SessionID target.SessionID
	Method    cdproto.MethodType
	// Data holds the decoded event, or the raw *cdproto.Message when the
	// method is unknown to this protocol version.
	Data interface{}
}

// EventListener receives every event of a tab.
type EventListener interface {
	OnEvent(ev Event)
}

// EventListenerFunc adapts a function to EventListener.
type EventListenerFunc func(ev Event)

// OnEvent calls f(ev).
func (f EventListenerFunc) OnEvent(ev Event) { f(ev) }

// ListenerID identifies a registered listener.
type ListenerID uint64

// ListenerHandle revokes a registration.
type ListenerHandle struct {
	id  ListenerID
	reg *ListenerRegistry
}

// ID returns the listener's identifier.
func (h *ListenerHandle) ID() ListenerID {
	return h.id
}

// Remove unregisters the listener. It reports whether it was registered.
func (h *ListenerHandle) Remove() bool {
	if h == nil || h.reg == nil {
		return false
	}
	return h.reg.Remove(h.id)
}

type listenerEntry struct {
	id       ListenerID
	listener EventListener
}

// ListenerRegistry is an ordered, identifier keyed set of listeners.
//
// Dispatch holds the registry lock, so adding or removing a listener never
// overlaps a dispatch: once Remove returned, the listener is not running
// and will not be called again. A listener must therefore not add or
// remove listeners from within OnEvent.
type ListenerRegistry struct {
	mu      sync.Mutex
	nextID  ListenerID
	entries []listenerEntry
}

// Add registers l after the already registered listeners.
func (r *ListenerRegistry) Add(l EventListener) *ListenerHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.entries = append(r.entries, listenerEntry{id: r.nextID, listener: l})

	return &ListenerHandle{id: r.nextID, reg: r}
}

// Remove unregisters the listener with the given id.
func (r *ListenerRegistry) Remove(id ListenerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.id == id {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return true
		}
	}

	return false
}

// Len returns the number of registered listeners.
func (r *ListenerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *ListenerRegistry) emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		e.listener.OnEvent(ev)
	}
}
