// Package pwpage implements the browser interfaces on top of playwright-go
package pwpage

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/themizzi/storecheck/internal/browser"
	. "github.com/themizzi/storecheck/internal/logging"
)

// Options configures the Chromium instance
type Options struct {
	Headless bool
	// ActionTimeout bounds each driver action such as a click or fill
	ActionTimeout time.Duration
	// NavigationTimeout bounds page loads
	NavigationTimeout time.Duration
	// Install downloads the driver and Chromium before starting
	Install bool
}

// Launcher owns a Playwright driver and one Chromium browser
type Launcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
}

// Launch starts Playwright and Chromium
func Launch(opts Options) (*Launcher, error) {
	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			L_warn("pwpage: driver install failed", "error", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("could not launch chromium: %w", err)
	}

	L_debug("pwpage: chromium launched", "headless", opts.Headless, "version", b.Version())
	return &Launcher{pw: pw, browser: b, opts: opts}, nil
}

// NewSession implements browser.Launcher with an isolated browser context
func (l *Launcher) NewSession(opts browser.SessionOptions) (browser.Session, error) {
	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight}
	}
	if opts.VideoDir != "" {
		if err := os.MkdirAll(opts.VideoDir, 0o755); err != nil {
			return nil, fmt.Errorf("create video dir: %w", err)
		}
		ctxOpts.RecordVideo = &playwright.RecordVideo{Dir: opts.VideoDir}
	}

	bctx, err := l.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	return &Session{Page: Page{page: page, timeouts: l.timeouts()}, bctx: bctx}, nil
}

// Close shuts down Chromium and the driver
func (l *Launcher) Close() error {
	var errs []error
	if err := l.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := l.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	return errors.Join(errs...)
}

func (l *Launcher) timeouts() timeouts {
	return timeouts{
		action:     ms(l.opts.ActionTimeout),
		navigation: ms(l.opts.NavigationTimeout),
	}
}

// timeouts in the milliseconds playwright expects, nil meaning the driver default
type timeouts struct {
	action     *float64
	navigation *float64
}

func ms(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}

// Wrap adapts an existing playwright page, for callers that manage their own browser
func Wrap(page playwright.Page, actionTimeout, navigationTimeout time.Duration) *Page {
	return &Page{page: page, timeouts: timeouts{action: ms(actionTimeout), navigation: ms(navigationTimeout)}}
}

// Page implements browser.Page
type Page struct {
	page     playwright.Page
	timeouts timeouts
}

// QueryAll implements browser.Scope
func (p *Page) QueryAll(sel browser.Selector) ([]browser.Element, error) {
	return queryAll(p.page.Locator(sel.CSS), sel, p.timeouts)
}

// Goto implements browser.Page, returning once the DOM content is loaded
func (p *Page) Goto(url string) error {
	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   p.timeouts.navigation,
	})
	if err != nil {
		return err
	}
	if resp != nil && resp.Status() >= 500 {
		return fmt.Errorf("%s answered %d", url, resp.Status())
	}
	return nil
}

// URL implements browser.Page
func (p *Page) URL() (string, error) {
	if p.page.IsClosed() {
		return "", errors.New("page is closed")
	}
	return p.page.URL(), nil
}

// Screenshot implements browser.Page
func (p *Page) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

// Session is a page inside its own browser context
type Session struct {
	Page
	bctx playwright.BrowserContext
}

// Close implements browser.Session. Closing the context flushes any recorded video.
func (s *Session) Close() error {
	return s.bctx.Close()
}

// queryAll expands a playwright locator into one element per match. The elements are
// nth-locators and re-resolve on every action, so they never report ErrDetached.
func queryAll(loc playwright.Locator, sel browser.Selector, t timeouts) ([]browser.Element, error) {
	if sel.Text != nil {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: sel.Text})
	}
	n, err := loc.Count()
	if err != nil {
		return nil, err
	}
	els := make([]browser.Element, n)
	for i := 0; i < n; i++ {
		els[i] = &Element{loc: loc.Nth(i), desc: fmt.Sprintf("%s >> nth=%d", sel, i), timeouts: t}
	}
	return els, nil
}

// Element implements browser.Element
type Element struct {
	loc      playwright.Locator
	desc     string
	timeouts timeouts
}

// QueryAll implements browser.Scope
func (e *Element) QueryAll(sel browser.Selector) ([]browser.Element, error) {
	return queryAll(e.loc.Locator(sel.CSS), sel, e.timeouts)
}

// Click implements browser.Element
func (e *Element) Click(opts browser.ClickOptions) error {
	return e.loc.Click(playwright.LocatorClickOptions{
		Force:   playwright.Bool(opts.Force),
		Timeout: e.timeouts.action,
	})
}

// Fill implements browser.Element
func (e *Element) Fill(value string) error {
	return e.loc.Fill(value, playwright.LocatorFillOptions{Timeout: e.timeouts.action})
}

// Press implements browser.Element
func (e *Element) Press(key string) error {
	return e.loc.Press(key, playwright.LocatorPressOptions{Timeout: e.timeouts.action})
}

// Visible implements browser.Element
func (e *Element) Visible() (bool, error) {
	return e.loc.IsVisible()
}

// Text implements browser.Element
func (e *Element) Text() (string, error) {
	text, err := e.loc.TextContent(playwright.LocatorTextContentOptions{Timeout: e.timeouts.action})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Attribute implements browser.Element
func (e *Element) Attribute(name string) (string, error) {
	return e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: e.timeouts.action})
}

// Describe implements browser.Element
func (e *Element) Describe() string {
	return e.desc
}

var (
	_ browser.Launcher = (*Launcher)(nil)
	_ browser.Session  = (*Session)(nil)
	_ browser.Element  = (*Element)(nil)
)
