package pages

import (
	"context"

	"github.com/themizzi/storecheck/internal/commands"
	"github.com/themizzi/storecheck/internal/fixtures"
	"github.com/themizzi/storecheck/internal/locator"
)

// Product page locators
var (
	ProductName          = locator.CSS("div.col-sm h1")
	ProductPrice         = locator.CSS(".price-new")
	ActiveTab            = locator.CSS(".nav-link.active")
	DescriptionHighlight = locator.CSS("#tab-description p:nth-child(1) b:nth-child(1)")
	ReviewTab            = locator.CSS("#content > .nav > :nth-child(3) > .nav-link")
	ReviewAuthor         = locator.CSS("#input-author")
	ReviewText           = locator.CSS("#input-text")
	FiveStars            = locator.CSS(`input[value="5"]`)
	SubmitReviewButton   = locator.CSS("#button-review")
	Alert                = locator.CSS(".alert")
	AddToCartButton      = locator.CSS("#button-cart")
	CartSuccess          = locator.CSS(".alert.alert-success.alert-dismissible")
	CartButton           = locator.CSS(".dropdown.d-grid")
	CartMenu             = locator.CSS(".dropdown-menu.dropdown-menu-end.p-2.show")
)

// ProductPage is a single product
type ProductPage struct {
	c *commands.Commander
}

// NewProductPage returns the product page object
func NewProductPage(c *commands.Commander) ProductPage {
	return ProductPage{c: c}
}

// Name returns the product heading
func (p ProductPage) Name(ctx context.Context) (string, error) {
	return p.c.VisibleText(ctx, ProductName)
}

// Price returns the displayed price, currency symbol included
func (p ProductPage) Price(ctx context.Context) (string, error) {
	return p.c.VisibleText(ctx, ProductPrice)
}

// ActiveTab returns the label of the selected tab
func (p ProductPage) ActiveTab(ctx context.Context) (string, error) {
	return p.c.VisibleText(ctx, ActiveTab)
}

// DescriptionHighlight returns the bold lead of the description
func (p ProductPage) DescriptionHighlight(ctx context.Context) (string, error) {
	return p.c.VisibleText(ctx, DescriptionHighlight)
}

// WriteReview opens the review tab and types the review
func (p ProductPage) WriteReview(ctx context.Context, r fixtures.Review) error {
	if err := p.c.Click(ctx, ReviewTab); err != nil {
		return err
	}
	if err := p.c.Type(ctx, ReviewAuthor, r.Name); err != nil {
		return err
	}
	return p.c.Type(ctx, ReviewText, r.Review)
}

// RateFiveStars picks the top rating
func (p ProductPage) RateFiveStars(ctx context.Context) error {
	return p.c.Click(ctx, FiveStars)
}

// SubmitReview sends the review form
func (p ProductPage) SubmitReview(ctx context.Context) error {
	return p.c.Click(ctx, SubmitReviewButton)
}

// AlertText waits for any visible alert and returns its text
func (p ProductPage) AlertText(ctx context.Context) (string, error) {
	return p.c.VisibleText(ctx, Alert)
}

// AddToCart adds the product with the default quantity
func (p ProductPage) AddToCart(ctx context.Context) error {
	return p.c.Click(ctx, AddToCartButton)
}

// CartSuccessText waits for the add-to-cart confirmation
func (p ProductPage) CartSuccessText(ctx context.Context) (string, error) {
	return p.c.VisibleText(ctx, CartSuccess)
}

// OpenCart expands the header cart and waits for its menu
func (p ProductPage) OpenCart(ctx context.Context) error {
	if err := p.c.Click(ctx, CartButton); err != nil {
		return err
	}
	return p.c.IsVisible(ctx, CartMenu)
}

// Checkout follows the Checkout link of the open cart menu
func (p ProductPage) Checkout(ctx context.Context) error {
	return clickWithin(ctx, p.c, CartMenu, link("Checkout"))
}
