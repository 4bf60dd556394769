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
	"sync/atomic"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"

	"github.com/liuxd6825/cdpdriver/log"
)

const (
	BrowserStateOpen int64 = iota
	BrowserStateClosing
	BrowserStateClosed
)

// browserCloseTimeout bounds the polite Browser.close request sent before
// the process is torn down.
const browserCloseTimeout = 2 * time.Second

// Version describes the browser on the other end of the connection.
type Version struct {
	ProtocolVersion string `json:"protocolVersion"`
	Product         string `json:"product"`
	Revision        string `json:"revision"`
	UserAgent       string `json:"userAgent"`
	JSVersion       string `json:"jsVersion"`
}

// Browser is a connection to a browser and the tabs attached through it.
// A launched browser also owns its process; a connected one doesn't.
type Browser struct {
	ctx      context.Context
	cancelFn context.CancelFunc

	state int64

	browserProc *BrowserProcess
	launchOpts  *LaunchOptions
	conn        *Connection

	tabsMu sync.RWMutex
	tabs   map[target.ID]*Session

	logger *log.Logger
}

// NewBrowser connects to a launched browser process: over its pipes in
// pipe mode, over its websocket endpoint in port mode.
func NewBrowser(
	ctx context.Context, browserProc *BrowserProcess, launchOpts *LaunchOptions, logger *log.Logger,
) (*Browser, error) {
	ch := browserProc.Channel()
	if ch == nil {
		wsURL := browserProc.WsURL()
		logger.Infof("Browser:NewBrowser", "wsurl=%v", wsURL)

		dctx, cancel := context.WithTimeout(ctx, launchOpts.Timeout)
		defer cancel()
		var err error
		if ch, err = DialWebSocket(dctx, wsURL); err != nil {
			return nil, fmt.Errorf("connecting to browser: %w", err)
		}
	}

	return newBrowser(ctx, ch, browserProc, launchOpts, logger), nil
}

// ConnectBrowser attaches to a browser that is already running and that
// this process doesn't own.
func ConnectBrowser(ctx context.Context, wsURL string, launchOpts *LaunchOptions, logger *log.Logger) (*Browser, error) {
	logger.Infof("Browser:ConnectBrowser", "wsurl=%v", wsURL)

	dctx, cancel := context.WithTimeout(ctx, launchOpts.Timeout)
	defer cancel()
	ch, err := DialWebSocket(dctx, wsURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	return newBrowser(ctx, ch, nil, launchOpts, logger), nil
}

func newBrowser(
	ctx context.Context, ch Channel, browserProc *BrowserProcess, launchOpts *LaunchOptions, logger *log.Logger,
) *Browser {
	ctx, cancel := context.WithCancel(ctx)

	connOpts := []ConnectionOption{WithIdleTimeout(launchOpts.IdleTimeout)}
	if launchOpts.TracerProvider != nil {
		connOpts = append(connOpts, WithTracerProvider(launchOpts.TracerProvider))
	}

	return &Browser{
		ctx:         ctx,
		cancelFn:    cancel,
		state:       BrowserStateOpen,
		browserProc: browserProc,
		launchOpts:  launchOpts,
		conn:        NewConnection(ch, logger, connOpts...),
		tabs:        make(map[target.ID]*Session),
		logger:      logger,
	}
}

// Connection returns the transport to the browser.
func (b *Browser) Connection() *Connection {
	return b.conn
}

// Process returns the browser process, or nil for a connected browser.
func (b *Browser) Process() *BrowserProcess {
	return b.browserProc
}

// IsConnected reports whether the transport is still up.
func (b *Browser) IsConnected() bool {
	return atomic.LoadInt64(&b.state) == BrowserStateOpen && !b.conn.IsClosed()
}

// NewTab opens a new tab on url and attaches to it.
func (b *Browser) NewTab(url string) (*Session, error) {
	if url == "" {
		url = "about:blank"
	}
	tid, err := target.CreateTarget(url).Do(cdp.WithExecutor(b.ctx, b.conn))
	if err != nil {
		return nil, fmt.Errorf("creating tab on %q: %w", url, err)
	}
	b.logger.Debugf("Browser:NewTab", "tid:%v url:%q", tid, url)

	return b.attach(tid)
}

// attach returns the tab of tid, attaching to it if needed.
func (b *Browser) attach(tid target.ID) (*Session, error) {
	b.tabsMu.RLock()
	s, ok := b.tabs[tid]
	b.tabsMu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := NewSession(b.ctx, b.conn, tid, b.logger)
	if err != nil {
		return nil, err
	}
	s.SetSlowMotionMultiplier(b.launchOpts.SlowMo)

	b.tabsMu.Lock()
	if prev, ok := b.tabs[tid]; ok {
		b.tabsMu.Unlock()
		s.Detach()
		return prev, nil
	}
	b.tabs[tid] = s
	b.tabsMu.Unlock()

	go func() {
		<-s.Done()
		b.tabsMu.Lock()
		defer b.tabsMu.Unlock()
		if b.tabs[tid] == s {
			delete(b.tabs, tid)
		}
	}()

	return s, nil
}

// Tabs returns the attached tabs.
func (b *Browser) Tabs() []*Session {
	b.tabsMu.RLock()
	defer b.tabsMu.RUnlock()

	tabs := make([]*Session, 0, len(b.tabs))
	for _, s := range b.tabs {
		tabs = append(tabs, s)
	}

	return tabs
}

// WaitForInitialTab waits for the page target the browser opens on start
// and attaches to it.
func (b *Browser) WaitForInitialTab() (*Session, error) {
	w := NewWait("waiting for the initial tab", b.launchOpts.Timeout)
	tid, err := WaitUntilErr(b.ctx, w, func() (target.ID, bool, error) {
		infos, err := target.GetTargets().Do(cdp.WithExecutor(b.ctx, b.conn))
		if err != nil {
			return "", false, fmt.Errorf("getting targets: %w", err)
		}
		for _, ti := range infos {
			if ti.Type == "page" {
				return ti.TargetID, true, nil
			}
		}
		return "", false, nil
	})
	if err != nil {
		return nil, err
	}

	return b.attach(tid)
}

// Version asks the browser for its version.
func (b *Browser) Version() (Version, error) {
	protocol, product, revision, ua, js, err := cdpbrowser.GetVersion().Do(cdp.WithExecutor(b.ctx, b.conn))
	if err != nil {
		return Version{}, fmt.Errorf("getting browser version: %w", err)
	}

	return Version{
		ProtocolVersion: protocol,
		Product:         product,
		Revision:        revision,
		UserAgent:       ua,
		JSVersion:       js,
	}, nil
}

// Close detaches the tabs and closes the connection. A launched browser
// is then asked to quit and its process is torn down.
func (b *Browser) Close() {
	if !atomic.CompareAndSwapInt64(&b.state, BrowserStateOpen, BrowserStateClosing) {
		return
	}
	defer atomic.StoreInt64(&b.state, BrowserStateClosed)

	for _, s := range b.Tabs() {
		s.Detach()
	}

	if b.browserProc != nil && !b.conn.IsClosed() {
		ctx, cancel := context.WithTimeout(b.ctx, browserCloseTimeout)
		if err := cdpbrowser.Close().Do(cdp.WithExecutor(ctx, b.conn)); err != nil {
			b.logger.Debugf("Browser:Close", "closing browser: %v", err)
		}
		cancel()
	}

	b.conn.Close()
	b.cancelFn()

	if b.browserProc != nil {
		b.browserProc.Close()
	}
}
