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
	"encoding/base64"
	"fmt"
	"os"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"

	"github.com/liuxd6825/cdpdriver/log"
)

// RequestPausedDecision is what a RequestInterceptor wants done with a
// paused request. It is one of ContinueRequest, FulfillRequest or
// FailRequest.
type RequestPausedDecision interface {
	resolve(ctx context.Context, exec cdp.Executor, id fetch.RequestID) error
}

// ContinueRequest lets the request through. Non zero fields override the
// request's.
type ContinueRequest struct {
	URL      string
	Method   string
	PostData []byte
	Headers  map[string]string
}

func (d ContinueRequest) resolve(ctx context.Context, exec cdp.Executor, id fetch.RequestID) error {
	action := fetch.ContinueRequest(id)
	if d.URL != "" {
		action = action.WithURL(d.URL)
	}
	if d.Method != "" {
		action = action.WithMethod(d.Method)
	}
	if d.PostData != nil {
		action = action.WithPostData(base64.StdEncoding.EncodeToString(d.PostData))
	}
	if len(d.Headers) > 0 {
		action = action.WithHeaders(headerEntries(d.Headers))
	}
	return action.Do(cdp.WithExecutor(ctx, exec))
}

// FulfillRequest answers the request without it reaching the network.
type FulfillRequest struct {
	Status  int64
	Headers map[string]string
	Body    []byte
	Phrase  string
}

func (d FulfillRequest) resolve(ctx context.Context, exec cdp.Executor, id fetch.RequestID) error {
	status := d.Status
	if status == 0 {
		status = 200
	}
	action := fetch.FulfillRequest(id, status)
	if len(d.Headers) > 0 {
		action = action.WithResponseHeaders(headerEntries(d.Headers))
	}
	if d.Body != nil {
		action = action.WithBody(base64.StdEncoding.EncodeToString(d.Body))
	}
	if d.Phrase != "" {
		action = action.WithResponsePhrase(d.Phrase)
	}
	return action.Do(cdp.WithExecutor(ctx, exec))
}

// FailRequest aborts the request with the given network error reason.
type FailRequest struct {
	Reason network.ErrorReason
}

func (d FailRequest) resolve(ctx context.Context, exec cdp.Executor, id fetch.RequestID) error {
	reason := d.Reason
	if reason == "" {
		reason = network.ErrorReasonBlockedByClient
	}
	return fetch.FailRequest(id, reason).Do(cdp.WithExecutor(ctx, exec))
}

func headerEntries(h map[string]string) []*fetch.HeaderEntry {
	entries := make([]*fetch.HeaderEntry, 0, len(h))
	for name, value := range h {
		entries = append(entries, &fetch.HeaderEntry{Name: name, Value: value})
	}
	return entries
}

// RequestInterceptor decides the fate of every request paused by the
// Fetch domain. exec addresses the tab the request belongs to.
type RequestInterceptor interface {
	Intercept(ctx context.Context, exec cdp.Executor, ev *fetch.EventRequestPaused) RequestPausedDecision
}

// RequestInterceptorFunc adapts a function to RequestInterceptor.
type RequestInterceptorFunc func(ctx context.Context, exec cdp.Executor, ev *fetch.EventRequestPaused) RequestPausedDecision

// Intercept calls f.
func (f RequestInterceptorFunc) Intercept(
	ctx context.Context, exec cdp.Executor, ev *fetch.EventRequestPaused,
) RequestPausedDecision {
	return f(ctx, exec, ev)
}

// ContinueInterceptor lets every request through unchanged.
var ContinueInterceptor RequestInterceptor = RequestInterceptorFunc( //nolint:gochecknoglobals
	func(context.Context, cdp.Executor, *fetch.EventRequestPaused) RequestPausedDecision {
		return ContinueRequest{}
	})

// AuthChallengePolicy answers every Fetch.authRequired challenge.
type AuthChallengePolicy struct {
	Response fetch.AuthChallengeResponseResponse
	Username string
	Password string
}

// ResponseHandler is called for every received response. body fetches the
// response body on demand; it may fail while the body is still loading.
type ResponseHandler func(ev *network.EventResponseReceived, body func() ([]byte, error))

// NetworkManager holds the request interception, authentication, response
// and file chooser policies of a tab and applies them to its events.
type NetworkManager struct {
	ctx     context.Context
	logger  *log.Logger
	session cdp.Executor

	mu              sync.RWMutex
	interceptor     RequestInterceptor
	auth            AuthChallengePolicy
	responseHandler ResponseHandler
	files           []string
}

// NewNetworkManager creates a new network manager with the default
// policies: continue every request, default auth response, no response
// handler and no files.
func NewNetworkManager(ctx context.Context, s cdp.Executor, logger *log.Logger) *NetworkManager {
	return &NetworkManager{
		ctx:         ctx,
		logger:      logger,
		session:     s,
		interceptor: ContinueInterceptor,
		auth: AuthChallengePolicy{
			Response: fetch.AuthChallengeResponseResponseDefault,
		},
	}
}

// SetRequestInterceptor replaces the interceptor. nil restores the
// default one.
func (m *NetworkManager) SetRequestInterceptor(ri RequestInterceptor) {
	if ri == nil {
		ri = ContinueInterceptor
	}
	m.mu.Lock()
	m.interceptor = ri
	m.mu.Unlock()
}

// SetAuthChallengePolicy replaces the answer given to auth challenges.
func (m *NetworkManager) SetAuthChallengePolicy(p AuthChallengePolicy) {
	if p.Response == "" {
		p.Response = fetch.AuthChallengeResponseResponseDefault
	}
	m.mu.Lock()
	m.auth = p
	m.mu.Unlock()
}

// SetResponseHandler installs the response handler. nil removes it.
func (m *NetworkManager) SetResponseHandler(h ResponseHandler) {
	m.mu.Lock()
	m.responseHandler = h
	m.mu.Unlock()
}

// SetFiles queues the files given to the next file chooser.
func (m *NetworkManager) SetFiles(files []string) {
	m.mu.Lock()
	m.files = append([]string(nil), files...)
	m.mu.Unlock()
}

func (m *NetworkManager) onRequestPaused(event *fetch.EventRequestPaused) {
	m.mu.RLock()
	interceptor := m.interceptor
	m.mu.RUnlock()

	decision := interceptor.Intercept(m.ctx, m.session, event)
	if decision == nil {
		decision = ContinueRequest{}
	}
	if err := decision.resolve(m.ctx, m.session, event.RequestID); err != nil {
		m.logger.Warnf("NetworkManager:onRequestPaused",
			"resolving paused request %s with %T: %v", event.RequestID, decision, err)
		return
	}
	m.logger.Debugf("NetworkManager:onRequestPaused", "rid:%s decision:%T", event.RequestID, decision)
}

func (m *NetworkManager) onAuthRequired(event *fetch.EventAuthRequired) {
	m.mu.RLock()
	policy := m.auth
	m.mu.RUnlock()

	res := &fetch.AuthChallengeResponse{Response: policy.Response}
	// username and password are only meaningful with ProvideCredentials
	if policy.Response == fetch.AuthChallengeResponseResponseProvideCredentials {
		res.Username, res.Password = policy.Username, policy.Password
	}
	err := fetch.ContinueWithAuth(event.RequestID, res).Do(cdp.WithExecutor(m.ctx, m.session))
	if err != nil {
		m.logger.Warnf("NetworkManager:onAuthRequired", "continueWithAuth url:%q err:%v", event.Request.URL, err)
		return
	}
	m.logger.Debugf("NetworkManager:onAuthRequired", "continueWithAuth url:%q response:%s", event.Request.URL, policy.Response)
}

func (m *NetworkManager) onResponseReceived(event *network.EventResponseReceived) {
	m.mu.RLock()
	handler := m.responseHandler
	m.mu.RUnlock()

	if handler == nil {
		return
	}
	body := func() ([]byte, error) {
		b, err := network.GetResponseBody(event.RequestID).Do(cdp.WithExecutor(m.ctx, m.session))
		if err != nil {
			return nil, fmt.Errorf("getting response body of %s: %w", event.RequestID, err)
		}
		return b, nil
	}
	handler(event, body)
}

func (m *NetworkManager) onFileChooserOpened(backendNodeID cdp.BackendNodeID) {
	m.mu.RLock()
	queued := m.files
	m.mu.RUnlock()

	files := make([]string, 0, len(queued))
	for _, f := range queued {
		if _, err := os.Stat(f); err != nil {
			m.logger.Debugf("NetworkManager:onFileChooserOpened", "skipping %q: %v", f, err)
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return
	}

	action := dom.SetFileInputFiles(files).WithBackendNodeID(backendNodeID)
	if err := action.Do(cdp.WithExecutor(m.ctx, m.session)); err != nil {
		m.logger.Warnf("NetworkManager:onFileChooserOpened", "setting %d files: %v", len(files), err)
	}
}
