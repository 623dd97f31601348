// Package pages holds page objects for the storefront scenarios. Each page object is a
// thin set of locators plus steps built on the commands package.
package pages

import (
	"context"
	"fmt"

	"github.com/themizzi/storecheck/internal/browser"
	"github.com/themizzi/storecheck/internal/commands"
	"github.com/themizzi/storecheck/internal/locator"
)

// clickWithin awaits the first element inside scope matching loc and clicks it
func clickWithin(ctx context.Context, c *commands.Commander, scope, inner locator.Locator) error {
	container, err := c.Get(ctx, scope)
	if err != nil {
		return err
	}
	el, err := c.Await(ctx, container, inner)
	if err != nil {
		return err
	}
	if err := el.Click(browser.ClickOptions{}); err != nil {
		return fmt.Errorf("click %s in %s: %w", inner, scope, err)
	}
	return nil
}

// link matches an anchor whose text contains text
func link(text string) locator.Locator {
	return locator.New(fmt.Sprintf("link %q", text), browser.Containing("a", text))
}
