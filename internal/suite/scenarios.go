package suite

import (
	"context"
	"fmt"
	"strings"

	"github.com/themizzi/storecheck/internal/commands"
	"github.com/themizzi/storecheck/internal/config"
	"github.com/themizzi/storecheck/internal/fixtures"
	"github.com/themizzi/storecheck/internal/pages"
)

// Env is what one scenario attempt runs against. It is rebuilt for every attempt.
type Env struct {
	Commander *commands.Commander
	Config    *config.SuiteConfig
	Review    fixtures.Review
}

// Scenario is one named acceptance check
type Scenario struct {
	Name string
	Run  func(ctx context.Context, env *Env) error
}

// Scenarios returns every built-in scenario in execution order
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "valid login", Run: validLogin},
		{Name: "invalid login", Run: invalidLogin},
		{Name: "login from navbar", Run: loginFromNavbar},
		{Name: "product search", Run: productSearch},
		{Name: "product details", Run: productDetails},
		{Name: "write review", Run: writeReview},
		{Name: "checkout total", Run: checkoutTotal},
	}
}

// Select picks scenarios by name, keeping the order of all. No names selects everything.
func Select(all []Scenario, names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]Scenario, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := byName[n]; !ok {
			return nil, fmt.Errorf("unknown scenario %q", n)
		}
		want[n] = true
	}
	var out []Scenario
	for _, s := range all {
		if want[s.Name] {
			out = append(out, s)
		}
	}
	return out, nil
}

func validLogin(ctx context.Context, env *Env) error {
	login := pages.NewLoginPage(env.Commander)
	if err := login.Open(ctx); err != nil {
		return err
	}
	return login.SuccessLogin(ctx)
}

func invalidLogin(ctx context.Context, env *Env) error {
	login := pages.NewLoginPage(env.Commander)
	if err := login.Open(ctx); err != nil {
		return err
	}
	if err := login.FailedLogin(ctx); err != nil {
		return err
	}
	text, err := login.WarningMessage(ctx)
	if err != nil {
		return err
	}
	return expectContains("warning message", text, "Warning")
}

func loginFromNavbar(ctx context.Context, env *Env) error {
	home := pages.NewHomePage(env.Commander)
	if err := home.Open(ctx); err != nil {
		return err
	}
	nav := pages.NewNavbar(env.Commander)
	if err := nav.OpenMyAccount(ctx); err != nil {
		return err
	}
	if err := nav.ClickLogin(ctx); err != nil {
		return err
	}
	if err := env.Commander.WaitForRoute(ctx, commands.LoginRoute); err != nil {
		return err
	}
	// a fresh login page shows no rejection yet
	return env.Commander.IsHidden(ctx, pages.WarningMessage)
}

func productSearch(ctx context.Context, env *Env) error {
	home := pages.NewHomePage(env.Commander)
	if err := home.Open(ctx); err != nil {
		return err
	}
	nav := pages.NewNavbar(env.Commander)
	if err := nav.Search(ctx, env.Config.Product); err != nil {
		return err
	}
	if err := nav.SearchResults(ctx); err != nil {
		return err
	}
	return home.SelectProduct(ctx, env.Config.Product)
}

func openProduct(ctx context.Context, env *Env) (pages.ProductPage, error) {
	home := pages.NewHomePage(env.Commander)
	if err := home.Open(ctx); err != nil {
		return pages.ProductPage{}, err
	}
	if err := home.SelectProduct(ctx, env.Config.Product); err != nil {
		return pages.ProductPage{}, err
	}
	return pages.NewProductPage(env.Commander), nil
}

func productDetails(ctx context.Context, env *Env) error {
	product, err := openProduct(ctx, env)
	if err != nil {
		return err
	}

	name, err := product.Name(ctx)
	if err != nil {
		return err
	}
	if err := expectContains("product name", name, env.Config.Product); err != nil {
		return err
	}

	price, err := product.Price(ctx)
	if err != nil {
		return err
	}
	if _, err := pages.ParseCents(price); err != nil {
		return fmt.Errorf("product price: %w", err)
	}

	tab, err := product.ActiveTab(ctx)
	if err != nil {
		return err
	}
	if err := expectContains("active tab", tab, "Description"); err != nil {
		return err
	}

	_, err = product.DescriptionHighlight(ctx)
	return err
}

func writeReview(ctx context.Context, env *Env) error {
	product, err := openProduct(ctx, env)
	if err != nil {
		return err
	}
	if err := product.WriteReview(ctx, env.Review); err != nil {
		return err
	}
	if err := product.RateFiveStars(ctx); err != nil {
		return err
	}
	if err := product.SubmitReview(ctx); err != nil {
		return err
	}
	text, err := product.AlertText(ctx)
	if err != nil {
		return err
	}
	return expectContains("review alert", text, "Thank you for your review")
}

func checkoutTotal(ctx context.Context, env *Env) error {
	product, err := openProduct(ctx, env)
	if err != nil {
		return err
	}
	if err := product.AddToCart(ctx); err != nil {
		return err
	}
	text, err := product.CartSuccessText(ctx)
	if err != nil {
		return err
	}
	if err := expectContains("cart alert", text, "Success"); err != nil {
		return err
	}
	if err := product.OpenCart(ctx); err != nil {
		return err
	}
	if err := product.Checkout(ctx); err != nil {
		return err
	}
	if err := env.Commander.WaitForRoute(ctx, "checkout/checkout"); err != nil {
		return err
	}
	_, err = pages.NewCheckoutPage(env.Commander).ValidateTotals(ctx)
	return err
}

func expectContains(what, got, want string) error {
	if strings.Contains(got, want) {
		return nil
	}
	return &commands.Error{
		Op:        "check",
		Condition: fmt.Sprintf("%s containing %q, got %q", what, want, got),
		Kind:      commands.ErrAssertionMismatch,
	}
}
