// Package commands implements the storefront interaction commands used by the acceptance
// suite: opening an entry page with banner dismissal, credential submission with a
// success or failure expectation, and visibility assertions.
//
// Every command is bounded by the wait budgets in config.Timeouts and reports a typed
// *Error that unwraps to ErrStructuralNotFound, ErrAssertionMismatch or ErrNavigation.
package commands

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/themizzi/storecheck/internal/browser"
	"github.com/themizzi/storecheck/internal/config"
	"github.com/themizzi/storecheck/internal/locator"
	. "github.com/themizzi/storecheck/internal/logging"
)

// LoginRoute is the storefront route of the login page
const LoginRoute = "account/login"

// Login page structure
var (
	LoginForm     = locator.CSS(`form[action*="route=account/login"]`)
	EmailField    = locator.CSS("#input-email")
	PasswordField = locator.CSS("#input-password")

	// SubmitControl lists the submit alternatives in priority order. When none of them
	// appears within the submit budget the command presses Enter in the password field.
	SubmitControl = locator.New("submit control",
		browser.CSS(`button[type="submit"]`),
		browser.CSS(`input[type="submit"]`),
		browser.CSS(`input[value="Login"]`),
		browser.Matching("button", regexp.MustCompile(`(?i)login|sign in`)),
	)
)

// DefaultBannerSelectors are tried in order when the suite does not configure its own
var DefaultBannerSelectors = []string{
	".cookie",
	".cc-window",
	".cookie-banner",
	`[id*="cookie"]`,
	".btn-accept",
	".cc-accept",
	"button:contains('Accept')",
	"button:contains('Aceptar')",
}

// DefaultErrorIndicators are the elements that count as visible login failure feedback
var DefaultErrorIndicators = []string{".alert", ".text-danger", ".warning", ".invalid-feedback"}

// navState tracks OpenEntryPage progress for logging
type navState int

const (
	stateNavigating navState = iota
	stateDOMReady
	stateBannerScan
	stateSettled
)

func (s navState) String() string {
	switch s {
	case stateNavigating:
		return "navigating"
	case stateDOMReady:
		return "dom-ready"
	case stateBannerScan:
		return "banner-scan"
	default:
		return "settled"
	}
}

// Commander runs commands against one page
type Commander struct {
	page            browser.Page
	cfg             *config.SuiteConfig
	banners         []locator.Locator
	errorIndicators locator.Locator
}

// New creates a Commander for page using the budgets and selector lists in cfg
func New(page browser.Page, cfg *config.SuiteConfig) *Commander {
	bannerSelectors := cfg.BannerSelectors
	if len(bannerSelectors) == 0 {
		bannerSelectors = DefaultBannerSelectors
	}
	indicators := cfg.ErrorIndicators
	if len(indicators) == 0 {
		indicators = DefaultErrorIndicators
	}

	// one locator per banner selector: the scan clicks at most one match per selector
	// and keeps going when a click fails
	banners := make([]locator.Locator, 0, len(bannerSelectors))
	for _, s := range bannerSelectors {
		loc := locator.Parse(s, s)
		if loc.Len() > 0 {
			banners = append(banners, loc)
		}
	}

	return &Commander{
		page:            page,
		cfg:             cfg,
		banners:         banners,
		errorIndicators: locator.Parse(strings.Join(indicators, ", "), indicators...),
	}
}

// Page returns the page the commander drives
func (c *Commander) Page() browser.Page {
	return c.page
}

// Timeouts returns the wait budgets in effect
func (c *Commander) Timeouts() config.Timeouts {
	return c.cfg.Timeouts
}

// OpenLoginPage navigates to the login route, dismisses a cookie banner if one is shown
// and verifies the location still points at the login route.
func (c *Commander) OpenLoginPage(ctx context.Context) error {
	return c.OpenEntryPage(ctx, LoginRoute)
}

// OpenEntryPage navigates to route, dismisses the first cookie banner found and waits
// until the location contains the route. A missing banner is not an error.
func (c *Commander) OpenEntryPage(ctx context.Context, route string) error {
	const op = "openEntryPage"
	target := c.cfg.EntryURL(route)
	started := time.Now()

	state := stateNavigating
	L_debug("commands: open", "state", state, "url", target)
	if err := c.page.Goto(target); err != nil {
		return &Error{Op: op, Condition: "page " + target + " to load", Kind: ErrNavigation, Cause: err}
	}

	state = stateDOMReady
	L_debug("commands: open", "state", state, "url", target)

	state = stateBannerScan
	dismissed := c.dismissBanner()
	L_debug("commands: open", "state", state, "dismissed", dismissed)

	if err := c.waitForRoute(ctx, op, route); err != nil {
		return err
	}

	state = stateSettled
	L_info("commands: page ready", "route", route, "state", state, "banner", dismissed, "elapsed", time.Since(started))
	return nil
}

// WaitForRoute waits within the command budget until the location contains route=<route>
func (c *Commander) WaitForRoute(ctx context.Context, route string) error {
	return c.waitForRoute(ctx, "waitForRoute", route)
}

func (c *Commander) waitForRoute(ctx context.Context, op, route string) error {
	want := "route=" + route
	var last string
	err := poll(ctx, c.cfg.Timeouts.Command, c.cfg.Timeouts.Poll, func() bool {
		u, err := c.page.URL()
		if err != nil {
			return false
		}
		last = u
		return strings.Contains(u, want)
	})
	if err != nil {
		return &Error{
			Op:        op,
			Condition: fmt.Sprintf("location containing %q (at %q)", want, last),
			Budget:    c.cfg.Timeouts.Command,
			Kind:      ErrAssertionMismatch,
			Cause:     cause(err),
		}
	}
	return nil
}

// dismissBanner walks the banner selectors in order and stops after the first successful
// click. Click failures are logged and the scan moves on to the next selector.
func (c *Commander) dismissBanner() string {
	for _, loc := range c.banners {
		performed, err := locator.ClickIfPresent(locator.Resolve(c.page, loc))
		if err != nil {
			L_warn("commands: banner click failed", "selector", loc.String(), "error", err)
			continue
		}
		if performed {
			return loc.String()
		}
	}
	return ""
}

// Login submits the default credentials and expects success
func (c *Commander) Login(ctx context.Context) error {
	return c.LoginWith(ctx, c.cfg.DefaultCredentials)
}

// LoginWith submits creds and expects success. Success means the submission was
// dispatched; the landing page is verified by the caller.
func (c *Commander) LoginWith(ctx context.Context, creds config.Credentials) error {
	_, err := c.Submit(ctx, creds, ExpectSuccess)
	return err
}

// LoginShouldFail submits the invalid credentials and requires visible error feedback
func (c *Commander) LoginShouldFail(ctx context.Context) error {
	return c.LoginShouldFailWith(ctx, c.cfg.InvalidCredentials)
}

// LoginShouldFailWith submits creds and requires visible error feedback
func (c *Commander) LoginShouldFailWith(ctx context.Context, creds config.Credentials) error {
	_, err := c.Submit(ctx, creds, ExpectFailure)
	return err
}

// Submit fills the login form with creds and dispatches exactly one submission.
//
// The form, email and password fields must appear within the structural budget or the
// command fails with ErrStructuralNotFound. The first submit control found within the
// submit budget is clicked; with none present, Enter is pressed in the password field.
// A failed dispatch is returned as is and never retried another way.
//
// With ExpectFailure the command then waits for a visible error indicator and returns a
// Failure outcome carrying its text, or an Indeterminate outcome with ErrAssertionMismatch.
func (c *Commander) Submit(ctx context.Context, creds config.Credentials, expect Expect) (Outcome, error) {
	op := "login"
	if expect == ExpectFailure {
		op = "loginShouldFail"
	}
	budget := c.cfg.Timeouts.Structural

	form, err := c.await(ctx, c.page, LoginForm, budget)
	if err != nil {
		return Outcome{Kind: Indeterminate}, &Error{Op: op, Locator: "login form " + LoginForm.String(), Budget: budget, Kind: ErrStructuralNotFound, Cause: cause(err)}
	}
	email, err := c.await(ctx, form, EmailField, budget)
	if err != nil {
		return Outcome{Kind: Indeterminate}, &Error{Op: op, Locator: EmailField.String(), Budget: budget, Kind: ErrStructuralNotFound, Cause: cause(err)}
	}
	password, err := c.await(ctx, form, PasswordField, budget)
	if err != nil {
		return Outcome{Kind: Indeterminate}, &Error{Op: op, Locator: PasswordField.String(), Budget: budget, Kind: ErrStructuralNotFound, Cause: cause(err)}
	}

	if err := email.Fill(creds.Identifier); err != nil {
		return Outcome{Kind: Indeterminate}, fmt.Errorf("%s: fill %s: %w", op, EmailField, err)
	}
	if err := password.Fill(creds.Secret.Reveal()); err != nil {
		// the driver error may echo the value, so it is not wrapped
		return Outcome{Kind: Indeterminate}, fmt.Errorf("%s: fill %s failed", op, PasswordField)
	}
	L_debug("commands: credentials entered", "identifier", creds.Identifier, "secret", creds.Secret)

	via, err := c.dispatchSubmit(ctx, form, password)
	if err != nil {
		return Outcome{Kind: Indeterminate}, fmt.Errorf("%s: submit via %s: %w", op, via, err)
	}
	L_info("commands: submitted", "op", op, "via", via)

	if expect == ExpectSuccess {
		return Outcome{Kind: Success}, nil
	}
	return c.awaitFailure(ctx, op)
}

// dispatchSubmit performs the single submission and reports which path it took
func (c *Commander) dispatchSubmit(ctx context.Context, form, password browser.Element) (string, error) {
	var found locator.Resolved
	err := poll(ctx, c.cfg.Timeouts.Submit, c.cfg.Timeouts.Poll, func() bool {
		found = locator.Resolve(form, SubmitControl)
		return found.Found()
	})
	if err != nil && err != errWaitExpired {
		return "none", err
	}

	if el, ok := found.Get(); ok {
		_, sel := found.Matched()
		return sel.String(), el.Click(browser.ClickOptions{Force: true})
	}
	return "enter", password.Press("Enter")
}

// awaitFailure waits for a visible error indicator anywhere on the page
func (c *Commander) awaitFailure(ctx context.Context, op string) (Outcome, error) {
	budget := c.cfg.Timeouts.Alert
	var found locator.Resolved
	err := poll(ctx, budget, c.cfg.Timeouts.Poll, func() bool {
		found = locator.ResolveVisible(c.page, c.errorIndicators)
		return found.Found()
	})
	if err != nil {
		return Outcome{Kind: Indeterminate}, &Error{
			Op:            op,
			Locator:       c.errorIndicators.String(),
			Condition:     "a visible error indicator",
			Budget:        budget,
			Indeterminate: true,
			Kind:          ErrAssertionMismatch,
			Cause:         cause(err),
		}
	}

	el, _ := found.Get()
	reason, err := el.Text()
	if err != nil {
		reason = el.Describe()
	}
	L_info("commands: login rejected", "reason", reason)
	return Outcome{Kind: Failure, Reason: reason}, nil
}

// IsVisible waits until any element matched by loc is visible within the command budget
func (c *Commander) IsVisible(ctx context.Context, loc locator.Locator) error {
	budget := c.cfg.Timeouts.Command
	seen := false
	err := poll(ctx, budget, c.cfg.Timeouts.Poll, func() bool {
		if locator.ResolveVisible(c.page, loc).Found() {
			return true
		}
		seen = seen || locator.Resolve(c.page, loc).Found()
		return false
	})
	if err != nil {
		return &Error{
			Op:            "isVisible",
			Locator:       loc.String(),
			Condition:     "visible",
			Budget:        budget,
			Indeterminate: !seen,
			Kind:          ErrAssertionMismatch,
			Cause:         cause(err),
		}
	}
	return nil
}

// IsHidden passes immediately when loc matches nothing. Otherwise it waits until no
// matched element is visible, within the command budget.
func (c *Commander) IsHidden(ctx context.Context, loc locator.Locator) error {
	if !locator.Resolve(c.page, loc).Found() {
		return nil
	}

	budget := c.cfg.Timeouts.Command
	err := poll(ctx, budget, c.cfg.Timeouts.Poll, func() bool {
		return !locator.ResolveVisible(c.page, loc).Found()
	})
	if err != nil {
		return &Error{
			Op:        "isHidden",
			Locator:   loc.String(),
			Condition: "not visible",
			Budget:    budget,
			Kind:      ErrAssertionMismatch,
			Cause:     cause(err),
		}
	}
	return nil
}

// Await resolves loc within scope, polling until it matches or the command budget ends
func (c *Commander) Await(ctx context.Context, scope browser.Scope, loc locator.Locator) (browser.Element, error) {
	el, err := c.await(ctx, scope, loc, c.cfg.Timeouts.Command)
	if err != nil {
		return nil, &Error{
			Op:            "get",
			Locator:       loc.String(),
			Condition:     "to exist",
			Budget:        c.cfg.Timeouts.Command,
			Indeterminate: true,
			Kind:          ErrAssertionMismatch,
			Cause:         cause(err),
		}
	}
	return el, nil
}

// Get awaits loc on the page
func (c *Commander) Get(ctx context.Context, loc locator.Locator) (browser.Element, error) {
	return c.Await(ctx, c.page, loc)
}

// Click awaits loc on the page and clicks it with actionability checks
func (c *Commander) Click(ctx context.Context, loc locator.Locator) error {
	el, err := c.Get(ctx, loc)
	if err != nil {
		return err
	}
	if err := el.Click(browser.ClickOptions{}); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	return nil
}

// Type awaits loc on the page and fills it with text
func (c *Commander) Type(ctx context.Context, loc locator.Locator, text string) error {
	el, err := c.Get(ctx, loc)
	if err != nil {
		return err
	}
	if err := el.Fill(text); err != nil {
		return fmt.Errorf("type into %s: %w", loc, err)
	}
	return nil
}

// Press awaits loc on the page and presses key in it
func (c *Commander) Press(ctx context.Context, loc locator.Locator, key string) error {
	el, err := c.Get(ctx, loc)
	if err != nil {
		return err
	}
	if err := el.Press(key); err != nil {
		return fmt.Errorf("press %s in %s: %w", key, loc, err)
	}
	return nil
}

// VisibleText waits for loc to be visible and returns its trimmed text
func (c *Commander) VisibleText(ctx context.Context, loc locator.Locator) (string, error) {
	if err := c.IsVisible(ctx, loc); err != nil {
		return "", err
	}
	el, ok := locator.ResolveVisible(c.page, loc).Get()
	if !ok {
		// hidden again between the two passes
		return "", &Error{Op: "text", Locator: loc.String(), Condition: "visible", Kind: ErrAssertionMismatch}
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", loc, err)
	}
	return text, nil
}

func (c *Commander) await(ctx context.Context, scope browser.Scope, loc locator.Locator, budget time.Duration) (browser.Element, error) {
	var found locator.Resolved
	err := poll(ctx, budget, c.cfg.Timeouts.Poll, func() bool {
		found = locator.Resolve(scope, loc)
		return found.Found()
	})
	if err != nil {
		return nil, err
	}
	el, _ := found.Get()
	return el, nil
}
