// Package rodpage implements the browser interfaces on top of go-rod, driving Chromium
// over the DevTools protocol without a Node.js driver process.
package rodpage

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/themizzi/storecheck/internal/browser"
	. "github.com/themizzi/storecheck/internal/logging"
)

// Options configures the Chromium instance
type Options struct {
	Headless bool
	// NoSandbox is needed when running as root in containers
	NoSandbox bool
	// Stealth hides the usual automation fingerprints
	Stealth bool
	// ActionTimeout bounds each driver action
	ActionTimeout time.Duration
	// NavigationTimeout bounds page loads
	NavigationTimeout time.Duration
}

var keys = map[string]input.Key{
	"Enter":     input.Enter,
	"Tab":       input.Tab,
	"Escape":    input.Escape,
	"Backspace": input.Backspace,
}

// Launcher owns one Chromium process
type Launcher struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	opts     Options
}

// Launch starts Chromium and connects to it
func Launch(opts Options) (*Launcher, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-dev-shm-usage")
	if opts.NoSandbox {
		l = l.Set("no-sandbox")
	}
	if opts.Stealth {
		l = l.Set("disable-blink-features", "AutomationControlled")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	b = b.NoDefaultDevice()

	L_debug("rodpage: browser launched", "headless", opts.Headless, "controlURL", controlURL)
	return &Launcher{launcher: l, browser: b, opts: opts}, nil
}

// NewSession implements browser.Launcher with an incognito context per session.
// Video recording is not available over plain CDP and is skipped.
func (l *Launcher) NewSession(opts browser.SessionOptions) (browser.Session, error) {
	incognito, err := l.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create incognito context: %w", err)
	}

	var page *rod.Page
	if l.opts.Stealth {
		page, err = stealth.Page(incognito)
	} else {
		page, err = incognito.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		incognito.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.ViewportWidth,
			Height:            opts.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			L_warn("rodpage: viewport not applied", "error", err)
		}
	}
	if opts.VideoDir != "" {
		L_debug("rodpage: video recording unsupported, skipping", "dir", opts.VideoDir)
	}

	return &Session{Page: Page{page: page, opts: l.opts}, incognito: incognito}, nil
}

// Close disconnects and kills Chromium
func (l *Launcher) Close() error {
	err := l.browser.Close()
	l.launcher.Kill()
	return err
}

// Page implements browser.Page
type Page struct {
	page *rod.Page
	opts Options
}

// QueryAll implements browser.Scope. rod's Elements does not wait, matching the
// single-pass resolution the command layer expects.
func (p *Page) QueryAll(sel browser.Selector) ([]browser.Element, error) {
	els, err := p.page.Elements(sel.CSS)
	if err != nil {
		return nil, wrap(err)
	}
	return filter(els, sel, p)
}

// Goto implements browser.Page
func (p *Page) Goto(url string) error {
	page := p.page
	if p.opts.NavigationTimeout > 0 {
		page = page.Timeout(p.opts.NavigationTimeout)
		defer page.CancelTimeout()
	}
	loaded := page.WaitEvent(&proto.PageDomContentEventFired{})
	if err := page.Navigate(url); err != nil {
		return err
	}
	loaded()
	if err := page.GetContext().Err(); err != nil {
		return fmt.Errorf("wait for DOM content of %s: %w", url, err)
	}
	return nil
}

// URL implements browser.Page
func (p *Page) URL() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// Screenshot implements browser.Page
func (p *Page) Screenshot(path string) error {
	img, err := p.page.Screenshot(true, nil)
	if err != nil {
		return err
	}
	return os.WriteFile(path, img, 0o644)
}

// Session is a page in its own incognito context
type Session struct {
	Page
	incognito *rod.Browser
}

// Close implements browser.Session
func (s *Session) Close() error {
	if err := s.page.Close(); err != nil {
		L_debug("rodpage: page close failed", "error", err)
	}
	return s.incognito.Close()
}

func filter(els rod.Elements, sel browser.Selector, p *Page) ([]browser.Element, error) {
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		if sel.Text != nil {
			text, err := el.Text()
			if err != nil {
				return nil, wrap(err)
			}
			if !sel.Text.MatchString(text) {
				continue
			}
		}
		out = append(out, &Element{el: el, page: p})
	}
	return out, nil
}

// Element implements browser.Element
type Element struct {
	el   *rod.Element
	page *Page
}

// timed bounds el by the action timeout; release frees the timer
func (e *Element) timed() (el *rod.Element, release func()) {
	if e.page.opts.ActionTimeout > 0 {
		el = e.el.Timeout(e.page.opts.ActionTimeout)
		return el, func() { el.CancelTimeout() }
	}
	return e.el, func() {}
}

// QueryAll implements browser.Scope
func (e *Element) QueryAll(sel browser.Selector) ([]browser.Element, error) {
	els, err := e.el.Elements(sel.CSS)
	if err != nil {
		return nil, wrap(err)
	}
	return filter(els, sel, e.page)
}

// Click implements browser.Element. A forced click dispatches a DOM click event directly,
// bypassing the visibility and hit-target checks of a real mouse click.
func (e *Element) Click(opts browser.ClickOptions) error {
	if opts.Force {
		_, err := e.el.Eval(`() => this.click()`)
		return wrap(err)
	}
	el, release := e.timed()
	defer release()
	return wrap(el.Click(proto.InputMouseButtonLeft, 1))
}

// Fill implements browser.Element, replacing any existing value
func (e *Element) Fill(value string) error {
	el, release := e.timed()
	defer release()
	if err := el.SelectAllText(); err != nil {
		return wrap(err)
	}
	return wrap(el.Input(value))
}

// Press implements browser.Element
func (e *Element) Press(key string) error {
	k, ok := keys[key]
	if !ok {
		return fmt.Errorf("unknown key: %s", key)
	}
	el, release := e.timed()
	defer release()
	if err := el.Focus(); err != nil {
		return wrap(err)
	}
	return wrap(e.page.page.Keyboard.Press(k))
}

// Visible implements browser.Element
func (e *Element) Visible() (bool, error) {
	ok, err := e.el.Visible()
	return ok, wrap(err)
}

// Text implements browser.Element
func (e *Element) Text() (string, error) {
	text, err := e.el.Text()
	if err != nil {
		return "", wrap(err)
	}
	return strings.TrimSpace(text), nil
}

// Attribute implements browser.Element
func (e *Element) Attribute(name string) (string, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", wrap(err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

// Describe implements browser.Element
func (e *Element) Describe() string {
	return e.el.String()
}

// wrap maps CDP's stale-node errors onto browser.ErrDetached
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var notFound *rod.ObjectNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", browser.ErrDetached, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "Could not find node") || strings.Contains(msg, "detached") {
		return fmt.Errorf("%w: %v", browser.ErrDetached, err)
	}
	return err
}

var (
	_ browser.Launcher = (*Launcher)(nil)
	_ browser.Session  = (*Session)(nil)
	_ browser.Element  = (*Element)(nil)
)
