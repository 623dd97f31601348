package pages

import (
	"context"

	"github.com/themizzi/storecheck/internal/commands"
	"github.com/themizzi/storecheck/internal/locator"
)

// Header locators shared by every storefront page
var (
	Logo            = locator.CSS(`img[title="Your Store"]`)
	SearchInput     = locator.CSS(`input[placeholder="Search"]`)
	SearchResults   = locator.CSS("#product-list")
	MyAccountToggle = locator.CSS(`a[class="dropdown-toggle"] span[class="d-none d-lg-inline"]`)
	OpenDropdown    = locator.CSS(".dropdown-menu.show")
)

// Navbar is the storefront header
type Navbar struct {
	c *commands.Commander
}

// NewNavbar returns the header of the page c drives
func NewNavbar(c *commands.Commander) Navbar {
	return Navbar{c: c}
}

// ClickLogo goes back to the home page
func (n Navbar) ClickLogo(ctx context.Context) error {
	return n.c.Click(ctx, Logo)
}

// Search replaces the search box content with text and submits it with Enter
func (n Navbar) Search(ctx context.Context, text string) error {
	if err := n.c.Type(ctx, SearchInput, text); err != nil {
		return err
	}
	return n.c.Press(ctx, SearchInput, "Enter")
}

// SearchResults waits for the result list to be visible
func (n Navbar) SearchResults(ctx context.Context) error {
	return n.c.IsVisible(ctx, SearchResults)
}

// OpenMyAccount opens the account dropdown
func (n Navbar) OpenMyAccount(ctx context.Context) error {
	return n.c.Click(ctx, MyAccountToggle)
}

// ClickLogin follows the Login entry of the open dropdown
func (n Navbar) ClickLogin(ctx context.Context) error {
	return clickWithin(ctx, n.c, OpenDropdown, link("Login"))
}
