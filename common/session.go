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
	"math"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/mailru/easyjson"

	"github.com/liuxd6825/cdpdriver/log"
)

// Ensure Session implements the Executor interface.
var _ cdp.Executor = &Session{}

// Session is a tab: a flat CDP session attached to a page target, with its
// own event loop.
//
// The event loop drains the session's EventStream in arrival order. Every
// event is first handed to the generic listeners, then to the built in
// handling: lifecycle events drive the navigating flag, paused requests
// and auth challenges are resolved with the current policies, received
// responses go to the response handler and opened file choosers get the
// queued files.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	conn     *Connection
	id       target.SessionID
	targetID target.ID
	log      *log.Logger
	stream   *EventStream
	done     chan struct{}

	listeners ListenerRegistry
	network   *NetworkManager

	navigating atomic.Bool
	crashed    atomic.Bool
	slowMo     atomic.Uint64 // float64 bits

	timeoutSettings *TimeoutSettings

	Keyboard *Keyboard
	Mouse    *Mouse
}

// NewSession attaches to targetID and returns the tab once its domains are
// enabled.
func NewSession(ctx context.Context, conn *Connection, targetID target.ID, logger *log.Logger) (*Session, error) {
	sid, err := conn.AttachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return newSession(ctx, conn, targetID, sid, logger)
}

func newSession(
	ctx context.Context, conn *Connection, targetID target.ID, sid target.SessionID, logger *log.Logger,
) (*Session, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ctx:             ctx,
		cancel:          cancel,
		conn:            conn,
		id:              sid,
		targetID:        targetID,
		log:             logger,
		done:            make(chan struct{}),
		timeoutSettings: NewTimeoutSettings(nil),
	}
	s.network = NewNetworkManager(ctx, s, logger)
	s.Keyboard = NewKeyboard(ctx, s)
	s.Mouse = NewMouse(ctx, s, s.Keyboard)

	// subscribe before enabling anything so no event is missed
	s.stream = conn.ListenToTargetEvents(sid)
	go s.readLoop()

	if err := s.initDomains(); err != nil {
		s.stop()
		return nil, fmt.Errorf("initializing tab %v: %w", targetID, err)
	}
	s.log.Debugf("Session:newSession", "sid:%v tid:%v", sid, targetID)

	return s, nil
}

func (s *Session) initDomains() error {
	actions := []Action{
		cdppage.Enable(),
		dom.Enable(),
		cdppage.SetLifecycleEventsEnabled(true),
		accessibility.Enable(),
		inspector.Enable(),
	}
	for _, action := range actions {
		if err := action.Do(cdp.WithExecutor(s.ctx, s)); err != nil {
			return fmt.Errorf("executing %T: %w", action, err)
		}
	}
	return nil
}

// ID returns the session id.
func (s *Session) ID() target.SessionID {
	return s.id
}

// TargetID returns the id of the page target.
func (s *Session) TargetID() target.ID {
	return s.targetID
}

// Done is closed once the event loop stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) logger() *log.Logger {
	return s.log
}

func (s *Session) elementTimeout() time.Duration {
	return s.timeoutSettings.timeout()
}

func (s *Session) stop() {
	s.cancel()
	s.stream.Close()
}

func (s *Session) readLoop() {
	defer close(s.done)

	for {
		msg, err := s.stream.Next(s.ctx)
		if err != nil {
			s.log.Debugf("Session:readLoop", "sid:%v tid:%v stopped: %v", s.id, s.targetID, err)
			return
		}
		s.handleMessage(msg)
	}
}

func (s *Session) handleMessage(msg *cdproto.Message) {
	ev, err := cdproto.UnmarshalMessage(msg)
	if err != nil {
		var unknown cdp.ErrUnknownCommandOrEvent
		if !errors.As(err, &unknown) {
			s.log.Debugf("Session:handleMessage", "sid:%v decoding %s: %v", s.id, msg.Method, err)
			return
		}
		// Most likely an event of a newer browser this protocol
		// version doesn't know about. Listeners get the raw message.
		ev = msg
	}

	s.listeners.emit(Event{SessionID: s.id, Method: msg.Method, Data: ev})

	switch ev := ev.(type) {
	case *cdppage.EventLifecycleEvent:
		s.log.Tracef("Session:handleMessage", "sid:%v lifecycle:%s", s.id, ev.Name)
		switch ev.Name {
		case "init":
			s.navigating.Store(true)
		case "networkAlmostIdle":
			s.navigating.Store(false)
		}
	case *cdppage.EventFrameStartedLoading:
		if string(ev.FrameID) == string(s.targetID) {
			s.navigating.Store(true)
		}
	case *fetch.EventRequestPaused:
		s.network.onRequestPaused(ev)
	case *fetch.EventAuthRequired:
		s.network.onAuthRequired(ev)
	case *network.EventResponseReceived:
		s.network.onResponseReceived(ev)
	case *cdppage.EventFileChooserOpened:
		s.network.onFileChooserOpened(ev.BackendNodeID)
	case *inspector.EventTargetCrashed:
		s.log.Errorf("Session:handleMessage", "sid:%v tid:%v target crashed", s.id, s.targetID)
		s.crashed.Store(true)
	default:
		s.log.Tracef("Session:handleMessage", "sid:%v unhandled %s", s.id, msg.Method)
	}
}

// Execute implements the cdp.Executor interface.
func (s *Session) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	// Closing goes through Close so the slow motion delay applies.
	if method == target.CommandCloseTarget {
		return errors.New("to close the target, use Close")
	}
	if s.crashed.Load() {
		return ErrTargetCrashed
	}
	return s.conn.ExecuteOnSession(ctx, s.id, method, params, res)
}

// CallMethod sends a raw call to the tab.
func (s *Session) CallMethod(ctx context.Context, method string, params easyjson.RawMessage) (easyjson.RawMessage, error) {
	if s.crashed.Load() {
		return nil, ErrTargetCrashed
	}
	return s.conn.CallMethod(ctx, s.id, method, params)
}

// AddEventListener registers l to receive every event of the tab, before
// the tab's own handling.
func (s *Session) AddEventListener(l EventListener) *ListenerHandle {
	return s.listeners.Add(l)
}

// RemoveEventListener unregisters the listener behind h.
func (s *Session) RemoveEventListener(h *ListenerHandle) bool {
	return h.Remove()
}

// SetRequestInterceptor replaces the interceptor consulted for paused
// requests. Requests are only paused once fetch is enabled.
func (s *Session) SetRequestInterceptor(ri RequestInterceptor) {
	s.network.SetRequestInterceptor(ri)
}

// EnableFetch enables the Fetch domain.
func (s *Session) EnableFetch(patterns []*fetch.RequestPattern, handleAuth bool) error {
	action := fetch.Enable().WithHandleAuthRequests(handleAuth)
	if len(patterns) > 0 {
		action = action.WithPatterns(patterns)
	}
	if err := action.Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("enabling fetch: %w", err)
	}
	return nil
}

// DisableFetch disables the Fetch domain.
func (s *Session) DisableFetch() error {
	if err := fetch.Disable().Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("disabling fetch: %w", err)
	}
	return nil
}

// EnableRequestInterception installs ri and pauses the requests matching
// patterns. No pattern means every request.
func (s *Session) EnableRequestInterception(ri RequestInterceptor, patterns ...*fetch.RequestPattern) error {
	s.SetRequestInterceptor(ri)
	if len(patterns) == 0 {
		patterns = []*fetch.RequestPattern{{URLPattern: "*", RequestStage: fetch.RequestStageRequest}}
	}
	return s.EnableFetch(patterns, false)
}

// Authenticate answers every auth challenge with the given credentials.
func (s *Session) Authenticate(username, password string) error {
	s.network.SetAuthChallengePolicy(AuthChallengePolicy{
		Response: fetch.AuthChallengeResponseResponseProvideCredentials,
		Username: username,
		Password: password,
	})
	return s.EnableFetch(nil, true)
}

// SetAuthChallengePolicy replaces the answer given to auth challenges.
func (s *Session) SetAuthChallengePolicy(p AuthChallengePolicy) {
	s.network.SetAuthChallengePolicy(p)
}

// EnableResponseHandling enables the Network domain and hands every
// received response to h.
func (s *Session) EnableResponseHandling(h ResponseHandler) error {
	if err := network.Enable().Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("enabling network: %w", err)
	}
	s.network.SetResponseHandler(h)
	return nil
}

// SetFiles queues the files given to file choosers opened from now on.
// Paths that do not exist when the chooser opens are skipped.
func (s *Session) SetFiles(files []string) {
	s.network.SetFiles(files)
}

// SetFileChooserDialogInterception makes file choosers emit an event
// instead of opening a dialog.
func (s *Session) SetFileChooserDialogInterception(enabled bool) error {
	action := cdppage.SetInterceptFileChooserDialog(enabled)
	if err := action.Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("setting file chooser interception: %w", err)
	}
	return nil
}

// Navigate starts navigating to url. It does not wait for the page to
// load, see WaitUntilNavigated.
func (s *Session) Navigate(url string) error {
	// Set before sending so a fast lifecycle event can't be overwritten.
	s.navigating.Store(true)

	_, _, errorText, err := cdppage.Navigate(url).Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		s.navigating.Store(false)
		return fmt.Errorf("navigating to %q: %w", url, err)
	}
	if errorText != "" {
		s.navigating.Store(false)
		return &NavigationError{URL: url, ErrorText: errorText}
	}
	s.log.Infof("Session:Navigate", "sid:%v url:%q", s.id, url)

	return nil
}

// IsNavigating reports whether a navigation is in progress.
func (s *Session) IsNavigating() bool {
	return s.navigating.Load()
}

// WaitUntilNavigated blocks until the current navigation settled or the
// navigation timeout elapsed.
func (s *Session) WaitUntilNavigated() error {
	w := NewWait("waiting for navigation", s.timeoutSettings.navigationTimeout())
	_, err := WaitUntil(s.ctx, w, func() (bool, bool) {
		return true, !s.navigating.Load()
	})
	if err != nil {
		return err
	}
	s.log.Debugf("Session:WaitUntilNavigated", "sid:%v finished navigating", s.id)
	return nil
}

// SetDefaultTimeout sets the timeout of element lookups.
func (s *Session) SetDefaultTimeout(timeout time.Duration) {
	s.timeoutSettings.setDefaultTimeout(timeout)
}

// SetDefaultNavigationTimeout sets the timeout of WaitUntilNavigated.
func (s *Session) SetDefaultNavigationTimeout(timeout time.Duration) {
	s.timeoutSettings.setDefaultNavigationTimeout(timeout)
}

// SetSlowMotionMultiplier scales the delays inserted before input, reload
// and close actions. Zero, the default, disables them.
func (s *Session) SetSlowMotionMultiplier(multiplier float64) {
	s.slowMo.Store(math.Float64bits(multiplier))
}

func (s *Session) slowMotion(ctx context.Context, base time.Duration) error {
	multiplier := math.Float64frombits(s.slowMo.Load())
	if multiplier <= 0 {
		return nil
	}
	d := time.Duration(float64(base) * multiplier)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	}
}

// Close closes the tab. With fireUnload the page's unload handlers run.
func (s *Session) Close(fireUnload bool) error {
	if err := s.slowMotion(s.ctx, slowMoClose); err != nil {
		return err
	}

	var err error
	if fireUnload {
		err = cdppage.Close().Do(cdp.WithExecutor(s.ctx, s))
	} else {
		err = target.CloseTarget(s.targetID).Do(cdp.WithExecutor(s.ctx, s.conn))
	}
	if err != nil {
		return fmt.Errorf("closing tab %v: %w", s.targetID, err)
	}

	return nil
}

// Activate brings the tab to the front.
func (s *Session) Activate() error {
	if err := target.ActivateTarget(s.targetID).Do(cdp.WithExecutor(s.ctx, s.conn)); err != nil {
		return fmt.Errorf("activating tab %v: %w", s.targetID, err)
	}
	return nil
}

// Detach stops the event loop and releases the session's event stream.
func (s *Session) Detach() {
	s.stop()
	<-s.done
}
