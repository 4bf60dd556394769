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
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/tidwall/gjson"
)

// ElementHandle is a DOM element of a tab, addressed by its node id.
// Node ids are only valid until the document changes.
type ElementHandle struct {
	tab *Session

	NodeID        cdp.NodeID
	BackendNodeID cdp.BackendNodeID
	NodeName      string
}

func newElementHandle(tab *Session, nodeID cdp.NodeID, what string) (*ElementHandle, error) {
	if nodeID == 0 {
		return nil, &NotFoundError{What: what}
	}
	node, err := dom.DescribeNode().WithNodeID(nodeID).Do(cdp.WithExecutor(tab.ctx, tab))
	if err != nil {
		return nil, notFoundFromRemote(err, what)
	}
	return &ElementHandle{
		tab:           tab,
		NodeID:        nodeID,
		BackendNodeID: node.BackendNodeID,
		NodeName:      node.NodeName,
	}, nil
}

// Document returns the root node of the tab's document.
func (s *Session) Document() (*cdp.Node, error) {
	root, err := dom.GetDocument().WithDepth(0).Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return root, nil
}

// DescribeNode returns the node nodeID with its subtree.
func (s *Session) DescribeNode(nodeID cdp.NodeID) (*cdp.Node, error) {
	node, err := dom.DescribeNode().WithNodeID(nodeID).WithDepth(100).Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return nil, notFoundFromRemote(err, fmt.Sprintf("node %d", nodeID))
	}
	return node, nil
}

// FindElement returns the first element matching selector. It fails with a
// *NotFoundError when nothing matches.
func (s *Session) FindElement(selector string) (*ElementHandle, error) {
	s.log.Tracef("Session:FindElement", "sid:%v selector:%q", s.id, selector)

	root, err := s.Document()
	if err != nil {
		return nil, err
	}
	return s.querySelector(root.NodeID, selector)
}

func (s *Session) querySelector(nodeID cdp.NodeID, selector string) (*ElementHandle, error) {
	what := fmt.Sprintf("element %q", selector)
	id, err := dom.QuerySelector(nodeID, selector).Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return nil, notFoundFromRemote(err, what)
	}
	return newElementHandle(s, id, what)
}

// FindElements returns every element matching selector. It fails with a
// *NotFoundError when nothing matches.
func (s *Session) FindElements(selector string) ([]*ElementHandle, error) {
	s.log.Tracef("Session:FindElements", "sid:%v selector:%q", s.id, selector)

	root, err := s.Document()
	if err != nil {
		return nil, err
	}

	what := fmt.Sprintf("elements %q", selector)
	ids, err := dom.QuerySelectorAll(root.NodeID, selector).Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return nil, notFoundFromRemote(err, what)
	}
	if len(ids) == 0 {
		return nil, &NotFoundError{What: what}
	}

	elements := make([]*ElementHandle, 0, len(ids))
	for _, id := range ids {
		e, err := newElementHandle(s, id, what)
		if err != nil {
			return nil, err
		}
		elements = append(elements, e)
	}

	return elements, nil
}

// WaitForElement polls FindElement until the element shows up or the
// tab's default timeout elapsed. Errors other than not found end the wait.
func (s *Session) WaitForElement(selector string) (*ElementHandle, error) {
	return s.WaitForElementWithTimeout(selector, s.elementTimeout())
}

// WaitForElementWithTimeout is WaitForElement with a custom timeout.
func (s *Session) WaitForElementWithTimeout(selector string, timeout time.Duration) (*ElementHandle, error) {
	s.log.Debugf("Session:WaitForElement", "sid:%v selector:%q timeout:%s", s.id, selector, timeout)
	w := NewWait(fmt.Sprintf("waiting for element %q", selector), timeout)
	return WaitStrict(s.ctx, w, func() (*ElementHandle, error) {
		return s.FindElement(selector)
	}, IsNotFound)
}

// WaitForElements polls FindElements with the tab's default timeout.
func (s *Session) WaitForElements(selector string) ([]*ElementHandle, error) {
	w := NewWait(fmt.Sprintf("waiting for elements %q", selector), s.elementTimeout())
	return WaitStrict(s.ctx, w, func() ([]*ElementHandle, error) {
		return s.FindElements(selector)
	}, IsNotFound)
}

// FindElementByRole returns the first element with the given accessible
// role and name.
func (s *Session) FindElementByRole(role, name string) (*ElementHandle, error) {
	what := fmt.Sprintf("element with role %q and name %q", role, name)

	root, err := s.Document()
	if err != nil {
		return nil, err
	}
	nodes, err := accessibility.QueryAXTree().
		WithNodeID(root.NodeID).
		WithRole(role).
		WithAccessibleName(name).
		Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return nil, notFoundFromRemote(err, what)
	}
	if len(nodes) == 0 || nodes[0].BackendDOMNodeID == 0 {
		return nil, &NotFoundError{What: what}
	}

	ids, err := dom.PushNodesByBackendIDsToFrontend([]cdp.BackendNodeID{nodes[0].BackendDOMNodeID}).
		Do(cdp.WithExecutor(s.ctx, s))
	if err != nil {
		return nil, notFoundFromRemote(err, what)
	}
	if len(ids) == 0 {
		return nil, &NotFoundError{What: what}
	}

	return newElementHandle(s, ids[0], what)
}

// WaitForElementByRole polls FindElementByRole with the tab's default
// timeout.
func (s *Session) WaitForElementByRole(role, name string) (*ElementHandle, error) {
	w := NewWait(fmt.Sprintf("waiting for element with role %q and name %q", role, name), s.elementTimeout())
	return WaitStrict(s.ctx, w, func() (*ElementHandle, error) {
		return s.FindElementByRole(role, name)
	}, IsNotFound)
}

func (h *ElementHandle) what() string {
	return fmt.Sprintf("node %d", h.NodeID)
}

// FindElement returns the first descendant matching selector.
func (h *ElementHandle) FindElement(selector string) (*ElementHandle, error) {
	return h.tab.querySelector(h.NodeID, selector)
}

// BoxModel returns the element's layout boxes.
func (h *ElementHandle) BoxModel() (*dom.BoxModel, error) {
	box, err := dom.GetBoxModel().WithNodeID(h.NodeID).Do(cdp.WithExecutor(h.tab.ctx, h.tab))
	if err != nil {
		return nil, notFoundFromRemote(err, h.what())
	}
	return box, nil
}

// Midpoint returns the center of the element's content box.
func (h *ElementHandle) Midpoint() (Point, error) {
	box, err := h.BoxModel()
	if err != nil {
		return Point{}, err
	}
	return Quad(box.Content).Midpoint(), nil
}

// ScrollIntoView scrolls the element into view if it isn't already.
func (h *ElementHandle) ScrollIntoView() error {
	action := dom.ScrollIntoViewIfNeeded().WithNodeID(h.NodeID)
	if err := action.Do(cdp.WithExecutor(h.tab.ctx, h.tab)); err != nil {
		return notFoundFromRemote(err, h.what())
	}
	return nil
}

// Click scrolls the element into view and clicks its midpoint.
func (h *ElementHandle) Click() error {
	if err := h.ScrollIntoView(); err != nil {
		return err
	}
	p, err := h.Midpoint()
	if err != nil {
		return err
	}
	return h.tab.Mouse.Click(p.X, p.Y, nil)
}

// Focus focuses the element.
func (h *ElementHandle) Focus() error {
	if err := dom.Focus().WithNodeID(h.NodeID).Do(cdp.WithExecutor(h.tab.ctx, h.tab)); err != nil {
		return notFoundFromRemote(err, h.what())
	}
	return nil
}

// Type focuses the element and types text into it.
func (h *ElementHandle) Type(text string) error {
	if err := h.Focus(); err != nil {
		return err
	}
	return h.tab.Keyboard.Type(text, nil)
}

// SetInputFiles sets the files of a file input element.
func (h *ElementHandle) SetInputFiles(files []string) error {
	action := dom.SetFileInputFiles(files).WithNodeID(h.NodeID)
	if err := action.Do(cdp.WithExecutor(h.tab.ctx, h.tab)); err != nil {
		return notFoundFromRemote(err, h.what())
	}
	return nil
}

// Attributes returns the element's attributes.
func (h *ElementHandle) Attributes() (map[string]string, error) {
	flat, err := dom.GetAttributes(h.NodeID).Do(cdp.WithExecutor(h.tab.ctx, h.tab))
	if err != nil {
		return nil, notFoundFromRemote(err, h.what())
	}
	attrs := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		attrs[flat[i]] = flat[i+1]
	}
	return attrs, nil
}

// OuterHTML returns the markup of the element and its descendants.
func (h *ElementHandle) OuterHTML() (string, error) {
	html, err := dom.GetOuterHTML().WithNodeID(h.NodeID).Do(cdp.WithExecutor(h.tab.ctx, h.tab))
	if err != nil {
		return "", notFoundFromRemote(err, h.what())
	}
	return html, nil
}

// Query parses the element's outer HTML and returns the selection
// matching selector within it.
func (h *ElementHandle) Query(selector string) (*goquery.Selection, error) {
	html, err := h.OuterHTML()
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing outer HTML of %s: %w", h.what(), err)
	}
	return doc.Find(selector), nil
}

// Text returns the text content of the element, as parsed from its outer
// HTML.
func (h *ElementHandle) Text() (string, error) {
	sel, err := h.Query("body")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sel.Text()), nil
}

// CallJSFunction calls the function declaration fn with the element as
// this, and returns the result by value.
func (h *ElementHandle) CallJSFunction(fn string, awaitPromise bool) (gjson.Result, error) {
	obj, err := dom.ResolveNode().WithNodeID(h.NodeID).Do(cdp.WithExecutor(h.tab.ctx, h.tab))
	if err != nil {
		return gjson.Result{}, notFoundFromRemote(err, h.what())
	}
	defer func() {
		if err := cdpruntime.ReleaseObject(obj.ObjectID).Do(cdp.WithExecutor(h.tab.ctx, h.tab)); err != nil {
			h.tab.log.Debugf("ElementHandle:CallJSFunction", "releasing object: %v", err)
		}
	}()

	action := cdpruntime.CallFunctionOn(fn).
		WithObjectID(obj.ObjectID).
		WithReturnByValue(true).
		WithAwaitPromise(awaitPromise)
	res, exc, err := action.Do(cdp.WithExecutor(h.tab.ctx, h.tab))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("calling function on %s: %w", h.what(), err)
	}
	if exc != nil {
		return gjson.Result{}, fmt.Errorf("calling function on %s: %w", h.what(), exc)
	}
	return gjson.ParseBytes(res.Value), nil
}
