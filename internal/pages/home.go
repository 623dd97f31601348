package pages

import (
	"context"
	"fmt"

	"github.com/themizzi/storecheck/internal/browser"
	"github.com/themizzi/storecheck/internal/commands"
	"github.com/themizzi/storecheck/internal/locator"
)

// ProductCards matches the product thumbnails on the home and search pages
var ProductCards = locator.CSS(".col.mb-3")

// HomePage lists featured products
type HomePage struct {
	c *commands.Commander
}

// NewHomePage returns the home page object
func NewHomePage(c *commands.Commander) HomePage {
	return HomePage{c: c}
}

// Open navigates to the home route
func (h HomePage) Open(ctx context.Context) error {
	return h.c.OpenEntryPage(ctx, "common/home")
}

// Products waits for at least one product card and returns them all
func (h HomePage) Products(ctx context.Context) ([]browser.Element, error) {
	if _, err := h.c.Get(ctx, ProductCards); err != nil {
		return nil, err
	}
	return h.c.Page().QueryAll(browser.CSS(ProductCards.String()))
}

// SelectProduct opens the product called name. Exactly one card may mention it.
func (h HomePage) SelectProduct(ctx context.Context, name string) error {
	if _, err := h.c.Get(ctx, ProductCards); err != nil {
		return err
	}

	cards, err := h.c.Page().QueryAll(browser.Containing(ProductCards.String(), name))
	if err != nil {
		return fmt.Errorf("query product cards: %w", err)
	}
	if len(cards) != 1 {
		return &commands.Error{
			Op:        "selectProduct",
			Locator:   ProductCards.String(),
			Condition: fmt.Sprintf("exactly one card containing %q, found %d", name, len(cards)),
			Kind:      commands.ErrAssertionMismatch,
		}
	}

	a, err := h.c.Await(ctx, cards[0], link(name))
	if err != nil {
		return err
	}
	if err := a.Click(browser.ClickOptions{}); err != nil {
		return fmt.Errorf("open product %q: %w", name, err)
	}
	return nil
}
