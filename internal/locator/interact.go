package locator

import (
	"fmt"

	"github.com/themizzi/storecheck/internal/browser"
	. "github.com/themizzi/storecheck/internal/logging"
)

// IfPresent runs action on the resolved element, or does nothing when r is empty.
// performed is true only when action ran and returned no error. Callers must re-resolve
// before acting again: a reference used once may already be stale.
func IfPresent(r Resolved, action func(browser.Element) error) (performed bool, err error) {
	el, ok := r.Get()
	if !ok {
		return false, nil
	}
	if err := action(el); err != nil {
		return false, fmt.Errorf("%s: %w", el.Describe(), err)
	}
	return true, nil
}

// ClickIfPresent force-clicks the resolved element, skipping actionability checks since
// optional UI such as cookie banners is often partly covered. An empty r is a no-op.
func ClickIfPresent(r Resolved) (bool, error) {
	performed, err := IfPresent(r, func(el browser.Element) error {
		return el.Click(browser.ClickOptions{Force: true})
	})
	if performed {
		_, sel := r.Matched()
		L_debug("locator: clicked", "selector", sel.String())
	}
	return performed, err
}
