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
	"fmt"
	"math"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/tidwall/gjson"
)

// TargetInfo fetches the latest information about the tab's target.
func (s *Session) TargetInfo() (*target.Info, error) {
	info, err := target.GetTargetInfo().WithTargetID(s.targetID).Do(cdp.WithExecutor(s.ctx, s.conn))
	if err != nil {
		return nil, fmt.Errorf("getting target info of %v: %w", s.targetID, err)
	}
	return info, nil
}

// URL returns the URL the tab currently shows.
func (s *Session) URL() (string, error) {
	info, err := s.TargetInfo()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// Evaluate runs expression in the page. An exception thrown by the
// expression is returned as the error.
func (s *Session) Evaluate(expression string, awaitPromise bool) (*cdpruntime.RemoteObject, error) {
	action := cdpruntime.Evaluate(expression).
		WithGeneratePreview(true).
		WithAwaitPromise(awaitPromise)
	obj, exc, err := action.Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", expression, err)
	}
	if exc != nil {
		return nil, fmt.Errorf("evaluating %q: %w", expression, exc)
	}
	return obj, nil
}

// EvaluateValue runs expression and returns its result by value as JSON.
func (s *Session) EvaluateValue(expression string) (gjson.Result, error) {
	action := cdpruntime.Evaluate(expression).WithReturnByValue(true)
	obj, exc, err := action.Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("evaluating %q: %w", expression, err)
	}
	if exc != nil {
		return gjson.Result{}, fmt.Errorf("evaluating %q: %w", expression, exc)
	}
	return gjson.ParseBytes(obj.Value), nil
}

// Title returns the document's title.
func (s *Session) Title() (string, error) {
	v, err := s.EvaluateValue("document.title")
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Reload reloads the page. script, if any, runs in every frame of the
// reloaded page before its own scripts.
func (s *Session) Reload(ignoreCache bool, script string) error {
	if err := s.slowMotion(s.ctx, slowMoReload); err != nil {
		return err
	}
	action := cdppage.Reload().WithIgnoreCache(ignoreCache)
	if script != "" {
		action = action.WithScriptToEvaluateOnLoad(script)
	}
	if err := action.Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("reloading: %w", err)
	}
	return nil
}

// SetUserAgent overrides the user agent, and optionally the accepted
// languages and platform.
func (s *Session) SetUserAgent(userAgent, acceptLanguage, platform string) error {
	action := emulation.SetUserAgentOverride(userAgent)
	if acceptLanguage != "" {
		action = action.WithAcceptLanguage(acceptLanguage)
	}
	if platform != "" {
		action = action.WithPlatform(platform)
	}
	if err := action.Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("setting user agent override: %w", err)
	}
	return nil
}

// SetExtraHTTPHeaders sends headers with every request of the tab.
func (s *Session) SetExtraHTTPHeaders(headers map[string]string) error {
	if err := network.Enable().Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("enabling network: %w", err)
	}
	h := make(network.Headers, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	if err := network.SetExtraHTTPHeaders(h).Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("setting extra HTTP headers: %w", err)
	}
	return nil
}

// EvaluateOnNewDocument runs source in every new document before its own
// scripts.
func (s *Session) EvaluateOnNewDocument(source string) (cdppage.ScriptIdentifier, error) {
	id, err := cdppage.AddScriptToEvaluateOnNewDocument(source).Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return "", fmt.Errorf("adding script to evaluate on new document: %w", err)
	}
	return id, nil
}

// SetViewport emulates the given viewport size and device scale factor.
func (s *Session) SetViewport(v Viewport) error {
	width, height := v.enclosingIntSize()
	scale := v.Scale
	if scale <= 0 {
		scale = 1
	}
	action := emulation.SetDeviceMetricsOverride(width, height, math.Round(scale*100)/100, false)
	if err := action.Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("setting viewport %dx%d: %w", width, height, err)
	}
	return nil
}

// Cookies returns the cookies of the tab's current URL, or of urls when
// given.
func (s *Session) Cookies(urls ...string) ([]*network.Cookie, error) {
	action := network.GetCookies()
	if len(urls) > 0 {
		action = action.WithUrls(urls)
	}
	cookies, err := action.Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return nil, fmt.Errorf("getting cookies: %w", err)
	}
	return cookies, nil
}

// SetCookies sets the given cookies.
func (s *Session) SetCookies(cookies []*network.CookieParam) error {
	if err := network.SetCookies(cookies).Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("setting %d cookies: %w", len(cookies), err)
	}
	return nil
}

// DeleteCookies deletes the cookies named name. url, if not empty,
// restricts the deletion to the cookies matching it.
func (s *Session) DeleteCookies(name, url string) error {
	action := network.DeleteCookies(name)
	if url != "" {
		action = action.WithURL(url)
	}
	if err := action.Do(cdp.WithExecutor(s.ctx, s)); err != nil {
		return fmt.Errorf("deleting cookies %q: %w", name, err)
	}
	return nil
}

// Bounds returns the position and size of the window holding the tab.
func (s *Session) Bounds() (*cdpbrowser.Bounds, error) {
	action := cdpbrowser.GetWindowForTarget().WithTargetID(s.targetID)
	_, bounds, err := action.Do(cdp.WithExecutor(s.ctx, s.conn))
	if err != nil {
		return nil, fmt.Errorf("getting window bounds: %w", err)
	}
	return bounds, nil
}

// SetBounds moves, resizes or changes the state of the window holding the
// tab.
func (s *Session) SetBounds(bounds *cdpbrowser.Bounds) error {
	action := cdpbrowser.GetWindowForTarget().WithTargetID(s.targetID)
	windowID, _, err := action.Do(cdp.WithExecutor(s.ctx, s.conn))
	if err != nil {
		return fmt.Errorf("getting window for target: %w", err)
	}

	// Coordinates of a minimized or maximized window are ignored, the
	// state has to be normal first.
	if bounds.WindowState == "" || bounds.WindowState == cdpbrowser.WindowStateNormal {
		normal := &cdpbrowser.Bounds{WindowState: cdpbrowser.WindowStateNormal}
		if err := cdpbrowser.SetWindowBounds(windowID, normal).Do(cdp.WithExecutor(s.ctx, s.conn)); err != nil {
			return fmt.Errorf("restoring window state: %w", err)
		}
	}
	if err := cdpbrowser.SetWindowBounds(windowID, bounds).Do(cdp.WithExecutor(s.ctx, s.conn)); err != nil {
		return fmt.Errorf("setting window bounds: %w", err)
	}

	return nil
}

// EnableRuntime enables the Runtime domain.
func (s *Session) EnableRuntime() error {
	return cdpruntime.Enable().Do(cdp.WithExecutor(s.ctx, s))
}

// DisableRuntime disables the Runtime domain.
func (s *Session) DisableRuntime() error {
	return cdpruntime.Disable().Do(cdp.WithExecutor(s.ctx, s))
}

// EnableLog enables the Log domain so its entries reach the listeners.
func (s *Session) EnableLog() error {
	return cdplog.Enable().Do(cdp.WithExecutor(s.ctx, s))
}

// DisableLog disables the Log domain.
func (s *Session) DisableLog() error {
	return cdplog.Disable().Do(cdp.WithExecutor(s.ctx, s))
}
