// Package browsertest provides an in-memory implementation of the browser interfaces
// for tests, in the spirit of net/http/httptest.
//
// A Document parses static HTML, answers CSS queries with cascadia, computes visibility
// from hidden attributes, inline styles and the d-none class, and records every click,
// fill and key press. Click and key handlers let a test script how the page reacts, for
// example removing a banner or rendering an error alert after a submit.
package browsertest

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/themizzi/storecheck/internal/browser"
)

// EventKind identifies a recorded interaction
type EventKind string

// Recorded interaction kinds
const (
	EventClick EventKind = "click"
	EventFill  EventKind = "fill"
	EventKey   EventKind = "key"
	EventGoto  EventKind = "goto"
)

// Event is one recorded interaction with the document
type Event struct {
	Kind   EventKind
	Target string
	Forced bool
	Value  string
}

type handler struct {
	match cascadia.Selector
	key   string
	fn    func(d *Document)
}

type route struct {
	fragment string
	markup   string
}

// Document is an in-memory page. The zero value is not usable; call New.
type Document struct {
	mu       sync.Mutex
	root     *html.Node
	url      string
	routes   []route
	events   []Event
	onClick  []handler
	onKey    []handler
	closed   bool
	queryErr error
}

// New returns a document showing markup
func New(markup string) *Document {
	d := &Document{url: "about:blank"}
	d.SetHTML(markup)
	return d
}

// SetHTML replaces the whole document. Elements resolved earlier become detached.
func (d *Document) SetHTML(markup string) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		panic(fmt.Sprintf("browsertest: parse html: %v", err))
	}
	d.mu.Lock()
	d.root = root
	d.mu.Unlock()
}

// SetURL sets the current location without navigating
func (d *Document) SetURL(u string) {
	d.mu.Lock()
	d.url = u
	d.mu.Unlock()
}

// Route makes Goto serve markup for any URL containing fragment.
// Routes are matched in registration order.
func (d *Document) Route(fragment, markup string) {
	d.mu.Lock()
	d.routes = append(d.routes, route{fragment: fragment, markup: markup})
	d.mu.Unlock()
}

// FailQueries makes every QueryAll return err until called again with nil
func (d *Document) FailQueries(err error) {
	d.mu.Lock()
	d.queryErr = err
	d.mu.Unlock()
}

// OnClick runs fn after any element matching css is clicked
func (d *Document) OnClick(css string, fn func(d *Document)) {
	d.mu.Lock()
	d.onClick = append(d.onClick, handler{match: cascadia.MustCompile(css), fn: fn})
	d.mu.Unlock()
}

// OnKey runs fn after key is pressed in any element matching css
func (d *Document) OnKey(css, key string, fn func(d *Document)) {
	d.mu.Lock()
	d.onKey = append(d.onKey, handler{match: cascadia.MustCompile(css), key: key, fn: fn})
	d.mu.Unlock()
}

// Remove detaches every element matching css and returns how many were removed
func (d *Document) Remove(css string) int {
	sel := cascadia.MustCompile(css)
	d.mu.Lock()
	defer d.mu.Unlock()

	nodes := sel.MatchAll(d.root)
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return len(nodes)
}

// Events returns every recorded interaction in order
func (d *Document) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// EventsOf returns the recorded interactions of one kind
func (d *Document) EventsOf(kind EventKind) []Event {
	var out []Event
	for _, e := range d.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Closed reports whether the session was closed
func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// HTML renders the current document
func (d *Document) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	_ = html.Render(&b, d.root)
	return b.String()
}

// QueryAll implements browser.Scope
func (d *Document) QueryAll(sel browser.Selector) ([]browser.Element, error) {
	d.mu.Lock()
	root := d.root
	d.mu.Unlock()
	return d.query(root, sel, false)
}

// Goto implements browser.Page
func (d *Document) Goto(u string) error {
	d.mu.Lock()
	d.events = append(d.events, Event{Kind: EventGoto, Target: u})
	routes := d.routes
	d.mu.Unlock()

	if len(routes) == 0 {
		d.SetURL(u)
		return nil
	}
	for _, r := range routes {
		if strings.Contains(u, r.fragment) {
			d.SetHTML(r.markup)
			d.SetURL(u)
			return nil
		}
	}
	return fmt.Errorf("browsertest: net::ERR_NAME_NOT_RESOLVED at %s", u)
}

// URL implements browser.Page
func (d *Document) URL() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

// Screenshot implements browser.Page by writing the current markup to path
func (d *Document) Screenshot(path string) error {
	return os.WriteFile(path, []byte(d.HTML()), 0o644)
}

// Close implements browser.Session
func (d *Document) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *Document) query(scope *html.Node, sel browser.Selector, excludeScope bool) ([]browser.Element, error) {
	d.mu.Lock()
	queryErr := d.queryErr
	d.mu.Unlock()
	if queryErr != nil {
		return nil, queryErr
	}

	match, err := cascadia.Compile(sel.CSS)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", sel.CSS, err)
	}

	d.mu.Lock()
	nodes := match.MatchAll(scope)
	d.mu.Unlock()

	var out []browser.Element
	for _, n := range nodes {
		if excludeScope && n == scope {
			continue
		}
		if sel.Text != nil && !sel.Text.MatchString(textContent(n)) {
			continue
		}
		out = append(out, &Element{doc: d, node: n})
	}
	return out, nil
}

func (d *Document) record(e Event) {
	d.mu.Lock()
	d.events = append(d.events, e)
	d.mu.Unlock()
}

// fire runs the handlers matching n (and key, for key handlers) without holding the lock
func (d *Document) fire(handlers []handler, n *html.Node, key string) {
	for _, h := range handlers {
		if h.key != key {
			continue
		}
		if h.match.Match(n) {
			h.fn(d)
		}
	}
}

func (d *Document) attached(n *html.Node) bool {
	d.mu.Lock()
	root := d.root
	d.mu.Unlock()
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// Launcher hands out a fresh Document per session
type Launcher struct {
	// NewDocument builds the document for the n-th session (starting at 0)
	NewDocument func(n int) *Document

	mu       sync.Mutex
	sessions []*Document
	closed   bool
}

// NewSession implements browser.Launcher
func (l *Launcher) NewSession(opts browser.SessionOptions) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, fmt.Errorf("browsertest: launcher closed")
	}
	doc := l.NewDocument(len(l.sessions))
	l.sessions = append(l.sessions, doc)
	return doc, nil
}

// Sessions returns the documents handed out so far
func (l *Launcher) Sessions() []*Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Document(nil), l.sessions...)
}

// Close implements browser.Launcher
func (l *Launcher) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}

var (
	_ browser.Session  = (*Document)(nil)
	_ browser.Element  = (*Element)(nil)
	_ browser.Launcher = (*Launcher)(nil)
)
