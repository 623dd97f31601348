package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themizzi/storecheck/internal/browser"
	"github.com/themizzi/storecheck/internal/browser/browsertest"
	"github.com/themizzi/storecheck/internal/config"
	"github.com/themizzi/storecheck/internal/locator"
	"github.com/themizzi/storecheck/internal/logging"
)

const loginPage = `<html><body>
%s
<div id="content">
<form action="index.php?route=account/login" method="post">
  <input type="text" id="input-email" name="email">
  <input type="password" id="input-password" name="password">
  %s
</form>
</div>
</body></html>`

const alertMarkup = `<div class="alert alert-danger alert-dismissible">Warning: No match for E-Mail Address and/or Password.</div>`

func page(banner, controls string) string {
	return fmt.Sprintf(loginPage, banner, controls)
}

func testConfig() *config.SuiteConfig {
	cfg := config.DefaultSuiteConfig()
	cfg.BaseURL = "http://shop.test"
	cfg.Timeouts = config.Timeouts{
		Command:    300 * time.Millisecond,
		PageLoad:   time.Second,
		Structural: 300 * time.Millisecond,
		Submit:     50 * time.Millisecond,
		Alert:      300 * time.Millisecond,
		Poll:       10 * time.Millisecond,
	}
	cfg.DefaultCredentials = config.Credentials{Identifier: "shopper@example.com", Secret: "correct-horse"}
	cfg.InvalidCredentials = config.Credentials{Identifier: "nobody@example.com", Secret: "wrong-horse-battery"}
	return cfg
}

// scriptedPage runs then on the at-th query, letting a test change the page mid-wait
type scriptedPage struct {
	*browsertest.Document
	queries int
	at      int
	then    func(d *browsertest.Document)
}

func (p *scriptedPage) QueryAll(sel browser.Selector) ([]browser.Element, error) {
	p.queries++
	if p.then != nil && p.queries == p.at {
		p.then(p.Document)
	}
	return p.Document.QueryAll(sel)
}

// brokenBannerPage answers .cookie with an element whose click always fails
type brokenBannerPage struct {
	*browsertest.Document
}

type unclickable struct{ browser.Element }

func (unclickable) Click(browser.ClickOptions) error { return errors.New("element is not attached") }
func (unclickable) Describe() string                 { return "div.cookie" }

func (p brokenBannerPage) QueryAll(sel browser.Selector) ([]browser.Element, error) {
	if sel.CSS == ".cookie" {
		return []browser.Element{unclickable{}}, nil
	}
	return p.Document.QueryAll(sel)
}

func TestOpenLoginPage_DismissesBanner(t *testing.T) {
	// GIVEN a login page with a cookie banner that goes away when clicked
	doc := browsertest.New("")
	doc.Route("route=account/login", page(`<div class="cookie" id="cookie-notice"><button>Accept</button></div>`, `<button type="submit">Login</button>`))
	doc.OnClick(".cookie", func(d *browsertest.Document) { d.Remove(".cookie") })
	c := New(doc, testConfig())

	// WHEN
	err := c.OpenLoginPage(context.Background())

	// THEN exactly one forced click hit the banner and we are still on the login route
	require.NoError(t, err)
	clicks := doc.EventsOf(browsertest.EventClick)
	require.Len(t, clicks, 1)
	assert.Equal(t, "div#cookie-notice.cookie", clicks[0].Target)
	assert.True(t, clicks[0].Forced)

	gotos := doc.EventsOf(browsertest.EventGoto)
	require.Len(t, gotos, 1)
	assert.Equal(t, "http://shop.test/index.php?route=account/login", gotos[0].Target)
}

func TestOpenLoginPage_NoBannerNoClicks(t *testing.T) {
	doc := browsertest.New("")
	doc.Route("route=account/login", page("", `<button type="submit">Login</button>`))
	c := New(doc, testConfig())

	require.NoError(t, c.OpenLoginPage(context.Background()))

	assert.Empty(t, doc.EventsOf(browsertest.EventClick))
}

func TestOpenLoginPage_TextBannerButton(t *testing.T) {
	// GIVEN only a Spanish accept button
	doc := browsertest.New("")
	doc.Route("route=account/login", page(`<button class="consent">Aceptar</button>`, ""))
	c := New(doc, testConfig())

	require.NoError(t, c.OpenLoginPage(context.Background()))

	clicks := doc.EventsOf(browsertest.EventClick)
	require.Len(t, clicks, 1)
	assert.Equal(t, "button.consent", clicks[0].Target)
}

func TestOpenLoginPage_BannerClickFailureIsNotFatal(t *testing.T) {
	// GIVEN a .cookie banner that cannot be clicked and a .cc-window that can
	doc := browsertest.New("")
	doc.Route("route=account/login", page(`<div class="cc-window">We use cookies</div>`, ""))
	c := New(brokenBannerPage{doc}, testConfig())

	// WHEN
	err := c.OpenLoginPage(context.Background())

	// THEN the scan moved on to the next selector
	require.NoError(t, err)
	clicks := doc.EventsOf(browsertest.EventClick)
	require.Len(t, clicks, 1)
	assert.Equal(t, "div.cc-window", clicks[0].Target)
}

func TestOpenLoginPage_ConfiguredBannerSelectors(t *testing.T) {
	doc := browsertest.New("")
	doc.Route("route=account/login", page(`<div class="cookie">x</div><div id="gdpr">y</div>`, ""))
	cfg := testConfig()
	cfg.BannerSelectors = []string{"#gdpr"}
	c := New(doc, cfg)

	require.NoError(t, c.OpenLoginPage(context.Background()))

	clicks := doc.EventsOf(browsertest.EventClick)
	require.Len(t, clicks, 1)
	assert.Equal(t, "div#gdpr", clicks[0].Target)
}

func TestOpenLoginPage_RedirectedAway(t *testing.T) {
	// GIVEN accepting the banner sends the shopper to the home page
	doc := browsertest.New("")
	doc.Route("route=account/login", page(`<div class="cookie">x</div>`, ""))
	doc.OnClick(".cookie", func(d *browsertest.Document) {
		d.SetURL("http://shop.test/index.php?route=common/home")
	})
	c := New(doc, testConfig())

	// WHEN
	err := c.OpenLoginPage(context.Background())

	// THEN
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssertionMismatch)
	assert.Contains(t, err.Error(), "route=account/login")
	assert.Contains(t, err.Error(), "route=common/home")
}

func TestOpenLoginPage_NavigationError(t *testing.T) {
	doc := browsertest.New("")
	doc.Route("route=common/home", "<p>home</p>")
	c := New(doc, testConfig())

	err := c.OpenLoginPage(context.Background())

	assert.ErrorIs(t, err, ErrNavigation)
	assert.Empty(t, doc.EventsOf(browsertest.EventClick))
}

func TestOpenEntryPage_OtherRoute(t *testing.T) {
	doc := browsertest.New("")
	doc.Route("route=common/home", `<html><body><div class="cookie">x</div><p>home</p></body></html>`)
	c := New(doc, testConfig())

	require.NoError(t, c.OpenEntryPage(context.Background(), "common/home"))

	u, _ := doc.URL()
	assert.Equal(t, "http://shop.test/index.php?route=common/home", u)
	assert.Len(t, doc.EventsOf(browsertest.EventClick), 1)
}

func TestLogin_SubmitPriority(t *testing.T) {
	tests := []struct {
		name       string
		controls   string
		wantTarget string
	}{
		{
			name:       "submit button beats value input",
			controls:   `<input type="button" value="Login" class="legacy"><button type="submit" class="primary">Login</button>`,
			wantTarget: "button.primary",
		},
		{
			name:       "submit input",
			controls:   `<input type="submit" value="Go" class="go">`,
			wantTarget: "input.go",
		},
		{
			name:       "value input",
			controls:   `<input type="button" value="Login" class="legacy">`,
			wantTarget: "input.legacy",
		},
		{
			name:       "text-only button",
			controls:   `<button type="button" class="text">Sign In</button>`,
			wantTarget: "button.text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN
			doc := browsertest.New(page("", tt.controls))
			c := New(doc, testConfig())

			// WHEN
			err := c.Login(context.Background())

			// THEN exactly one click and no key press
			require.NoError(t, err)
			clicks := doc.EventsOf(browsertest.EventClick)
			require.Len(t, clicks, 1)
			assert.Equal(t, tt.wantTarget, clicks[0].Target)
			assert.Empty(t, doc.EventsOf(browsertest.EventKey))
		})
	}
}

func TestLogin_EnterFallback(t *testing.T) {
	// GIVEN a form without any submit control
	doc := browsertest.New(page("", ""))
	c := New(doc, testConfig())

	// WHEN
	err := c.Login(context.Background())

	// THEN Enter is pressed once in the password field
	require.NoError(t, err)
	assert.Empty(t, doc.EventsOf(browsertest.EventClick))
	keys := doc.EventsOf(browsertest.EventKey)
	require.Len(t, keys, 1)
	assert.Equal(t, "Enter", keys[0].Value)
	assert.Equal(t, "input#input-password", keys[0].Target)
}

func TestLogin_FillsCredentials(t *testing.T) {
	doc := browsertest.New(page("", `<button type="submit">Login</button>`))
	c := New(doc, testConfig())

	require.NoError(t, c.Login(context.Background()))

	fills := doc.EventsOf(browsertest.EventFill)
	require.Len(t, fills, 2)
	assert.Equal(t, "input#input-email", fills[0].Target)
	assert.Equal(t, "shopper@example.com", fills[0].Value)
	assert.Equal(t, "input#input-password", fills[1].Target)
	assert.Equal(t, "correct-horse", fills[1].Value)
}

func TestLogin_FormMissing(t *testing.T) {
	// GIVEN a page without the login form
	doc := browsertest.New(`<html><body><form action="index.php?route=product/search"><input id="input-email"></form></body></html>`)
	c := New(doc, testConfig())

	// WHEN
	outcome, err := c.Submit(context.Background(), testConfig().DefaultCredentials, ExpectSuccess)

	// THEN nothing was typed or clicked
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStructuralNotFound)
	assert.Equal(t, Indeterminate, outcome.Kind)
	assert.Empty(t, doc.Events())

	var cmdErr *Error
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "login", cmdErr.Op)
	assert.Contains(t, cmdErr.Locator, "login form")
}

func TestLogin_PasswordFieldMissing(t *testing.T) {
	doc := browsertest.New(`<form action="index.php?route=account/login"><input id="input-email"><button type="submit">Login</button></form>`)
	c := New(doc, testConfig())

	err := c.Login(context.Background())

	assert.ErrorIs(t, err, ErrStructuralNotFound)
	assert.Contains(t, err.Error(), "#input-password")
	assert.Empty(t, doc.EventsOf(browsertest.EventClick))
}

func TestLogin_FormAppearsLate(t *testing.T) {
	// GIVEN the form renders after a few polls
	doc := browsertest.New(`<html><body><p>loading</p></body></html>`)
	p := &scriptedPage{Document: doc, at: 4, then: func(d *browsertest.Document) {
		d.SetHTML(page("", `<button type="submit">Login</button>`))
	}}
	c := New(p, testConfig())

	// WHEN
	err := c.Login(context.Background())

	// THEN
	require.NoError(t, err)
	assert.Len(t, doc.EventsOf(browsertest.EventClick), 1)
}

func TestLoginShouldFail_VisibleAlert(t *testing.T) {
	// GIVEN the storefront renders an alert after submit
	doc := browsertest.New(page("", `<button type="submit">Login</button>`))
	doc.OnClick(`button[type="submit"]`, func(d *browsertest.Document) {
		d.SetHTML(page(alertMarkup, `<button type="submit">Login</button>`))
	})
	c := New(doc, testConfig())

	// WHEN
	outcome, err := c.Submit(context.Background(), testConfig().InvalidCredentials, ExpectFailure)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, Failure, outcome.Kind)
	assert.Equal(t, "Warning: No match for E-Mail Address and/or Password.", outcome.Reason)
	assert.NoError(t, c.LoginShouldFail(context.Background()), "rejected again on the second attempt")
}

func TestLoginShouldFail_FieldLevelFeedback(t *testing.T) {
	doc := browsertest.New(page("", `<button type="submit">Login</button>`))
	doc.OnClick(`button[type="submit"]`, func(d *browsertest.Document) {
		d.SetHTML(page(`<div class="invalid-feedback">E-Mail is required</div>`, ""))
	})
	c := New(doc, testConfig())

	assert.NoError(t, c.LoginShouldFail(context.Background()))
}

func TestLoginShouldFail_NoIndicator(t *testing.T) {
	// GIVEN a storefront that accepts anything and shows no feedback
	doc := browsertest.New(page("", `<button type="submit">Login</button>`))
	c := New(doc, testConfig())

	// WHEN
	outcome, err := c.Submit(context.Background(), testConfig().InvalidCredentials, ExpectFailure)

	// THEN
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssertionMismatch)
	assert.Equal(t, Indeterminate, outcome.Kind)
	var cmdErr *Error
	require.True(t, errors.As(err, &cmdErr))
	assert.True(t, cmdErr.Indeterminate)
	assert.Equal(t, "loginShouldFail", cmdErr.Op)
}

func TestLoginShouldFail_HiddenAlertDoesNotCount(t *testing.T) {
	doc := browsertest.New(page(`<div class="alert" style="display: none">stale</div>`, `<button type="submit">Login</button>`))
	c := New(doc, testConfig())

	assert.ErrorIs(t, c.LoginShouldFail(context.Background()), ErrAssertionMismatch)
}

func TestLoginShouldFail_ConfiguredIndicators(t *testing.T) {
	// GIVEN an indicator list that excludes .alert
	doc := browsertest.New(page(alertMarkup, `<button type="submit">Login</button>`))
	cfg := testConfig()
	cfg.ErrorIndicators = []string{".text-danger"}
	c := New(doc, cfg)

	assert.ErrorIs(t, c.LoginShouldFail(context.Background()), ErrAssertionMismatch)
}

func TestLogin_SecretNeverLogged(t *testing.T) {
	// GIVEN debug logging into a buffer
	var buf bytes.Buffer
	logging.Init(&logging.Config{Level: logging.LevelDebug, Output: &buf})
	defer logging.Init(nil)

	doc := browsertest.New(page(`<div class="cookie">x</div>`, `<button type="submit">Login</button>`))
	doc.OnClick(`button[type="submit"]`, func(d *browsertest.Document) {
		d.SetHTML(page(alertMarkup, ""))
	})
	cfg := testConfig()
	c := New(doc, cfg)

	// WHEN both flows run
	require.NoError(t, c.Login(context.Background()))
	doc.SetHTML(page("", `<button type="submit">Login</button>`))
	require.NoError(t, c.LoginShouldFail(context.Background()))
	_ = c.IsVisible(context.Background(), locator.CSS("#missing"))

	// THEN the log names the identifiers but never the secrets
	out := buf.String()
	assert.Contains(t, out, "shopper@example.com")
	assert.Contains(t, out, "[redacted]")
	assert.NotContains(t, out, "correct-horse")
	assert.NotContains(t, out, "wrong-horse-battery")
}

func TestIsVisible(t *testing.T) {
	doc := browsertest.New(`<html><body>
<img title="Your Store" src="logo.png">
<div class="alert" style="display:none">hidden</div>
</body></html>`)
	c := New(doc, testConfig())
	ctx := context.Background()

	t.Run("visible", func(t *testing.T) {
		assert.NoError(t, c.IsVisible(ctx, locator.CSS(`img[title="Your Store"]`)))
	})

	t.Run("present but hidden", func(t *testing.T) {
		err := c.IsVisible(ctx, locator.CSS(".alert"))
		require.ErrorIs(t, err, ErrAssertionMismatch)
		var cmdErr *Error
		require.True(t, errors.As(err, &cmdErr))
		assert.False(t, cmdErr.Indeterminate)
	})

	t.Run("absent", func(t *testing.T) {
		err := c.IsVisible(ctx, locator.CSS("#product-list"))
		require.ErrorIs(t, err, ErrAssertionMismatch)
		var cmdErr *Error
		require.True(t, errors.As(err, &cmdErr))
		assert.True(t, cmdErr.Indeterminate)
	})
}

func TestIsVisible_AppearsWithinBudget(t *testing.T) {
	doc := browsertest.New(`<div id="content"></div>`)
	p := &scriptedPage{Document: doc, at: 3, then: func(d *browsertest.Document) {
		d.SetHTML(`<div id="product-list"><div class="col mb-3">MacBook</div></div>`)
	}}
	c := New(p, testConfig())

	assert.NoError(t, c.IsVisible(context.Background(), locator.CSS("#product-list")))
}

func TestIsVisible_ContextCancelled(t *testing.T) {
	doc := browsertest.New(`<p>nothing</p>`)
	cfg := testConfig()
	cfg.Timeouts.Command = time.Minute
	c := New(doc, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := c.IsVisible(ctx, locator.CSS("#never"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrAssertionMismatch)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestIsHidden(t *testing.T) {
	doc := browsertest.New(`<html><body>
<div class="alert" hidden>gone</div>
<div class="alert-success">Success: You have added MacBook to your shopping cart!</div>
</body></html>`)
	c := New(doc, testConfig())
	ctx := context.Background()

	t.Run("absent passes", func(t *testing.T) {
		assert.NoError(t, c.IsHidden(ctx, locator.CSS(".cookie")))
	})

	t.Run("present but hidden passes", func(t *testing.T) {
		assert.NoError(t, c.IsHidden(ctx, locator.CSS(".alert")))
	})

	t.Run("visible fails", func(t *testing.T) {
		err := c.IsHidden(ctx, locator.CSS(".alert-success"))
		require.ErrorIs(t, err, ErrAssertionMismatch)
		assert.Contains(t, err.Error(), "not visible")
	})
}

func TestIsHidden_DisappearsWithinBudget(t *testing.T) {
	// GIVEN a visible banner that is removed while we wait
	doc := browsertest.New(`<div class="cookie">We use cookies</div>`)
	p := &scriptedPage{Document: doc, at: 3, then: func(d *browsertest.Document) {
		d.Remove(".cookie")
	}}
	c := New(p, testConfig())

	assert.NoError(t, c.IsHidden(context.Background(), locator.CSS(".cookie")))
}

func TestClickAndType(t *testing.T) {
	doc := browsertest.New(`<div id="search"><input placeholder="Search" name="search"></div><a href="#" class="d-none">hidden link</a>`)
	c := New(doc, testConfig())
	ctx := context.Background()

	require.NoError(t, c.Type(ctx, locator.CSS(`input[placeholder="Search"]`), "MacBook"))
	require.NoError(t, c.Press(ctx, locator.CSS(`input[placeholder="Search"]`), "Enter"))

	// unforced clicks respect visibility
	err := c.Click(ctx, locator.CSS("a.d-none"))
	require.Error(t, err)

	_, err = c.Get(ctx, locator.CSS("#nope"))
	assert.ErrorIs(t, err, ErrAssertionMismatch)

	assert.Len(t, doc.EventsOf(browsertest.EventFill), 1)
	assert.Len(t, doc.EventsOf(browsertest.EventKey), 1)
	assert.Empty(t, doc.EventsOf(browsertest.EventClick))
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Op:            "isVisible",
		Locator:       "#product-list",
		Condition:     "visible",
		Budget:        8 * time.Second,
		Indeterminate: true,
		Kind:          ErrAssertionMismatch,
	}

	assert.Equal(t, "isVisible: assertion mismatch: #product-list: expected visible within 8s (indeterminate)", err.Error())
	assert.ErrorIs(t, err, ErrAssertionMismatch)
	assert.NotErrorIs(t, err, ErrStructuralNotFound)
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "failure", Failure.String())
	assert.Equal(t, "indeterminate", Indeterminate.String())
}

func TestWaitForRoute(t *testing.T) {
	doc := browsertest.New("<p>landing</p>")
	doc.SetURL("http://shop.test/index.php?route=account/account")
	c := New(doc, testConfig())

	assert.NoError(t, c.WaitForRoute(context.Background(), "account/account"))

	err := c.WaitForRoute(context.Background(), "checkout/checkout")
	assert.ErrorIs(t, err, ErrAssertionMismatch)
	assert.Contains(t, err.Error(), "waitForRoute")
}

func TestVisibleText_SkipsHiddenDuplicates(t *testing.T) {
	doc := browsertest.New(`<div class="alert" hidden>old</div><div class="alert">  Success: review submitted  </div>`)
	c := New(doc, testConfig())

	text, err := c.VisibleText(context.Background(), locator.CSS(".alert"))

	require.NoError(t, err)
	assert.Equal(t, "Success: review submitted", text)
}

func TestVisibility_MixedMatchSet(t *testing.T) {
	const warning = ".alert.alert-danger.alert-dismissible"

	tests := []struct {
		name        string
		markup      string
		wantVisible bool
		wantHidden  bool
	}{
		{
			name:        "stale hidden alert before a visible one",
			markup:      `<div class="alert alert-danger alert-dismissible" hidden>old</div><div class="alert alert-danger alert-dismissible">Warning: No match for E-Mail Address and/or Password.</div>`,
			wantVisible: true,
		},
		{
			name:        "visible alert before a hidden one",
			markup:      `<div class="alert alert-danger alert-dismissible">Warning</div><div class="alert alert-danger alert-dismissible d-none">old</div>`,
			wantVisible: true,
		},
		{
			name:       "every match hidden",
			markup:     `<div class="alert alert-danger alert-dismissible" hidden>old</div><div class="alert alert-danger alert-dismissible" style="display: none">older</div>`,
			wantHidden: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(browsertest.New(tt.markup), testConfig())
			ctx := context.Background()

			visibleErr := c.IsVisible(ctx, locator.CSS(warning))
			hiddenErr := c.IsHidden(ctx, locator.CSS(warning))

			if tt.wantVisible {
				assert.NoError(t, visibleErr)
			} else {
				var cmdErr *Error
				require.ErrorAs(t, visibleErr, &cmdErr)
				assert.False(t, cmdErr.Indeterminate, "matches exist, so the miss is definite")
			}
			if tt.wantHidden {
				assert.NoError(t, hiddenErr)
			} else {
				assert.ErrorIs(t, hiddenErr, ErrAssertionMismatch)
			}
		})
	}
}
