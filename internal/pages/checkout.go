package pages

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/themizzi/storecheck/internal/browser"
	"github.com/themizzi/storecheck/internal/commands"
	"github.com/themizzi/storecheck/internal/locator"
)

// Checkout page locators
var (
	CheckoutLoginLink = locator.CSS(`form[id="form-register"] p a strong`)
	TotalsAmounts     = locator.CSS("table.table.table-bordered.table-hover tfoot tr td:nth-child(2)")
	GrandTotal        = locator.CSS("tfoot > :nth-child(4) > :nth-child(2)")
)

// Totals is the order summary read from the checkout table, in cents
type Totals struct {
	Rows  []int64
	Sum   int64
	Total int64
}

// CheckoutPage is the guest checkout
type CheckoutPage struct {
	c *commands.Commander
}

// NewCheckoutPage returns the checkout page object
func NewCheckoutPage(c *commands.Commander) CheckoutPage {
	return CheckoutPage{c: c}
}

// ClickLoginLink follows the returning-customer login link
func (p CheckoutPage) ClickLoginLink(ctx context.Context) error {
	return p.c.Click(ctx, CheckoutLoginLink)
}

// ValidateTotals checks that every totals row but the last adds up to the grand total
func (p CheckoutPage) ValidateTotals(ctx context.Context) (Totals, error) {
	if _, err := p.c.Get(ctx, TotalsAmounts); err != nil {
		return Totals{}, err
	}
	cells, err := p.c.Page().QueryAll(browser.CSS(TotalsAmounts.String()))
	if err != nil {
		return Totals{}, fmt.Errorf("query totals: %w", err)
	}
	if len(cells) < 2 {
		return Totals{}, &commands.Error{
			Op:        "validateTotals",
			Locator:   TotalsAmounts.String(),
			Condition: fmt.Sprintf("at least two totals rows, found %d", len(cells)),
			Kind:      commands.ErrAssertionMismatch,
		}
	}

	var t Totals
	for _, cell := range cells[:len(cells)-1] {
		text, err := cell.Text()
		if err != nil {
			return Totals{}, fmt.Errorf("read totals row: %w", err)
		}
		cents, err := ParseCents(text)
		if err != nil {
			return Totals{}, err
		}
		t.Rows = append(t.Rows, cents)
		t.Sum += cents
	}

	totalText, err := p.c.VisibleText(ctx, GrandTotal)
	if err != nil {
		return Totals{}, err
	}
	if t.Total, err = ParseCents(totalText); err != nil {
		return Totals{}, err
	}

	if t.Sum != t.Total {
		return t, &commands.Error{
			Op:        "validateTotals",
			Locator:   GrandTotal.String(),
			Condition: fmt.Sprintf("total %s to equal the sum of rows %s", FormatCents(t.Total), FormatCents(t.Sum)),
			Kind:      commands.ErrAssertionMismatch,
		}
	}
	return t, nil
}

// ParseCents reads an amount such as "$1,202.00" or "-2.00 €" into cents. Everything but
// digits, the decimal point and a minus sign is ignored.
func ParseCents(s string) (int64, error) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" || clean == "-" {
		return 0, fmt.Errorf("no amount in %q", s)
	}

	neg := strings.HasPrefix(clean, "-")
	clean = strings.TrimPrefix(clean, "-")

	whole, frac, _ := strings.Cut(clean, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimals", s)
	}
	frac += strings.Repeat("0", 2-len(frac))
	if whole == "" {
		whole = "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, errors.Unwrap(err))
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, errors.Unwrap(err))
	}

	v := units*100 + cents
	if neg {
		v = -v
	}
	return v, nil
}

// FormatCents renders cents as a plain decimal amount
func FormatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
