// Package locator resolves prioritized element descriptors against a document and acts
// on the result only when something was found.
package locator

import (
	"strings"

	"github.com/themizzi/storecheck/internal/browser"
	. "github.com/themizzi/storecheck/internal/logging"
)

// Locator is an ordered list of alternative selectors for one logical element.
// Earlier selectors take priority. A Locator is never modified after construction.
type Locator struct {
	name      string
	selectors []browser.Selector
}

// New builds a named locator from selectors in priority order
func New(name string, selectors ...browser.Selector) Locator {
	return Locator{name: name, selectors: append([]browser.Selector(nil), selectors...)}
}

// CSS builds a locator from plain CSS selectors, using the first as its name
func CSS(selectors ...string) Locator {
	sels := make([]browser.Selector, len(selectors))
	for i, s := range selectors {
		sels[i] = browser.CSS(s)
	}
	return Locator{name: strings.Join(selectors, ", "), selectors: sels}
}

// Parse builds a locator from selector strings that may use the :contains('text') form.
// Strings that cannot be parsed are dropped, the same way a failing query is skipped.
func Parse(name string, selectors ...string) Locator {
	var sels []browser.Selector
	for _, s := range selectors {
		sel, err := browser.ParseSelector(s)
		if err != nil {
			L_warn("locator: dropping selector", "locator", name, "selector", s, "error", err)
			continue
		}
		sels = append(sels, sel)
	}
	return Locator{name: name, selectors: sels}
}

// Selectors returns a copy of the alternatives in priority order
func (l Locator) Selectors() []browser.Selector {
	return append([]browser.Selector(nil), l.selectors...)
}

// Len returns the number of alternatives
func (l Locator) Len() int {
	return len(l.selectors)
}

// String returns the locator name
func (l Locator) String() string {
	if l.name != "" {
		return l.name
	}
	parts := make([]string, len(l.selectors))
	for i, s := range l.selectors {
		parts[i] = s.String()
	}
	return strings.Join(parts, " | ")
}

// Resolved is the optional result of a resolution: at most one element, tagged with the
// alternative that produced it. It is only valid until the document changes.
type Resolved struct {
	element  browser.Element
	index    int
	selector browser.Selector
}

// None is the empty resolution
var None = Resolved{index: -1}

// Get returns the element and whether one was found
func (r Resolved) Get() (browser.Element, bool) {
	return r.element, r.element != nil
}

// Found reports whether an element was resolved
func (r Resolved) Found() bool {
	return r.element != nil
}

// Matched returns which alternative produced the element, or -1 when empty
func (r Resolved) Matched() (int, browser.Selector) {
	if r.element == nil {
		return -1, browser.Selector{}
	}
	return r.index, r.selector
}

// Resolve evaluates the alternatives in order against scope and returns the first element
// of the first non-empty match set. A failing query skips that alternative. It does not
// wait: each alternative is queried exactly once.
func Resolve(scope browser.Scope, loc Locator) Resolved {
	for i, sel := range loc.selectors {
		els, err := scope.QueryAll(sel)
		if err != nil {
			L_debug("locator: skipping alternative", "locator", loc.String(), "selector", sel.String(), "error", err)
			continue
		}
		if len(els) > 0 {
			return Resolved{element: els[0], index: i, selector: sel}
		}
	}
	return None
}

// ResolveVisible walks the alternatives like Resolve but returns the first element that is
// visible, looking past hidden matches of the same and later alternatives.
func ResolveVisible(scope browser.Scope, loc Locator) Resolved {
	for i, sel := range loc.selectors {
		els, err := scope.QueryAll(sel)
		if err != nil {
			L_debug("locator: skipping alternative", "locator", loc.String(), "selector", sel.String(), "error", err)
			continue
		}
		for _, el := range els {
			if ok, err := el.Visible(); err == nil && ok {
				return Resolved{element: el, index: i, selector: sel}
			}
		}
	}
	return None
}
