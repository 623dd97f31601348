// Package browser defines the document model the command layer drives.
//
// Drivers (playwright, rod, and the in-memory browsertest double) implement Page and
// Element. Every query is a single synchronous pass over the current document: no
// implementation waits or polls inside QueryAll. Waiting belongs to the caller.
package browser

import "errors"

// ErrDetached is returned when acting on an element that is no longer attached to the
// document, typically because the page re-rendered after it was resolved.
var ErrDetached = errors.New("element is detached from the document")

// Scope is anything elements can be searched within: a whole page or a container element.
type Scope interface {
	// QueryAll returns every element in the scope matching sel, in document order.
	// An error means the query itself could not be evaluated (for example a malformed selector).
	QueryAll(sel Selector) ([]Element, error)
}

// ClickOptions tunes a click
type ClickOptions struct {
	// Force dispatches the click without actionability checks (visibility, occlusion).
	Force bool
}

// Element is a live reference to a node in the current document
type Element interface {
	Scope

	Click(opts ClickOptions) error
	// Fill clears the element's value and types value into it
	Fill(value string) error
	// Press dispatches a single key press ("Enter", "Tab", ...) to the element
	Press(key string) error
	Visible() (bool, error)
	Text() (string, error)
	Attribute(name string) (string, error)
	// Describe returns a short human readable label for logs and failures
	Describe() string
}

// Page is a browser tab showing one document
type Page interface {
	Scope

	// Goto navigates and returns once the DOM content is loaded
	Goto(url string) error
	URL() (string, error)
	Screenshot(path string) error
}

// Session is a page owned by an isolated browser context.
// Closing it discards cookies, storage and any recording in progress.
type Session interface {
	Page
	Close() error
}

// SessionOptions configures a new isolated session
type SessionOptions struct {
	ViewportWidth  int
	ViewportHeight int
	// VideoDir enables video recording into the directory when the driver supports it
	VideoDir string
}

// Launcher starts isolated sessions on a running browser
type Launcher interface {
	NewSession(opts SessionOptions) (Session, error)
	Close() error
}
