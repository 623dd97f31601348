package browsertest

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/themizzi/storecheck/internal/browser"
)

// Element is a node of a Document
type Element struct {
	doc  *Document
	node *html.Node
}

// QueryAll implements browser.Scope, searching descendants only
func (e *Element) QueryAll(sel browser.Selector) ([]browser.Element, error) {
	if !e.doc.attached(e.node) {
		return nil, browser.ErrDetached
	}
	return e.doc.query(e.node, sel, true)
}

// Click implements browser.Element. Without Force, hidden elements refuse the click.
func (e *Element) Click(opts browser.ClickOptions) error {
	if !e.doc.attached(e.node) {
		return browser.ErrDetached
	}
	if !opts.Force && !visible(e.node) {
		return fmt.Errorf("element %s is not visible", e.Describe())
	}
	if attr(e.node, "disabled") != nil && !opts.Force {
		return fmt.Errorf("element %s is disabled", e.Describe())
	}

	e.doc.record(Event{Kind: EventClick, Target: e.Describe(), Forced: opts.Force})

	e.doc.mu.Lock()
	handlers := append([]handler(nil), e.doc.onClick...)
	e.doc.mu.Unlock()
	e.doc.fire(handlers, e.node, "")
	return nil
}

// Fill implements browser.Element
func (e *Element) Fill(value string) error {
	if !e.doc.attached(e.node) {
		return browser.ErrDetached
	}
	if e.node.Data != "input" && e.node.Data != "textarea" {
		return fmt.Errorf("element %s is not fillable", e.Describe())
	}

	e.doc.mu.Lock()
	setAttr(e.node, "value", value)
	e.doc.mu.Unlock()

	e.doc.record(Event{Kind: EventFill, Target: e.Describe(), Value: value})
	return nil
}

// Press implements browser.Element
func (e *Element) Press(key string) error {
	if !e.doc.attached(e.node) {
		return browser.ErrDetached
	}
	e.doc.record(Event{Kind: EventKey, Target: e.Describe(), Value: key})

	e.doc.mu.Lock()
	handlers := append([]handler(nil), e.doc.onKey...)
	e.doc.mu.Unlock()
	e.doc.fire(handlers, e.node, key)
	return nil
}

// Visible implements browser.Element
func (e *Element) Visible() (bool, error) {
	if !e.doc.attached(e.node) {
		return false, nil
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return visible(e.node), nil
}

// Text implements browser.Element
func (e *Element) Text() (string, error) {
	if !e.doc.attached(e.node) {
		return "", browser.ErrDetached
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return textContent(e.node), nil
}

// Attribute implements browser.Element; a missing attribute is the empty string
func (e *Element) Attribute(name string) (string, error) {
	if !e.doc.attached(e.node) {
		return "", browser.ErrDetached
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if a := attr(e.node, name); a != nil {
		return a.Val, nil
	}
	return "", nil
}

// Describe implements browser.Element, e.g. button#login.btn.btn-primary
func (e *Element) Describe() string {
	var b strings.Builder
	b.WriteString(e.node.Data)
	if id := attr(e.node, "id"); id != nil && id.Val != "" {
		b.WriteString("#" + id.Val)
	}
	if class := attr(e.node, "class"); class != nil {
		for _, c := range strings.Fields(class.Val) {
			b.WriteString("." + c)
		}
	}
	return b.String()
}

func attr(n *html.Node, name string) *html.Attribute {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			return &n.Attr[i]
		}
	}
	return nil
}

func setAttr(n *html.Node, name, value string) {
	if a := attr(n, name); a != nil {
		a.Val = value
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// visible approximates CSS visibility from markup alone
func visible(n *html.Node) bool {
	if n.Type == html.ElementNode && n.Data == "input" {
		if t := attr(n, "type"); t != nil && strings.EqualFold(t.Val, "hidden") {
			return false
		}
	}
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		switch p.Data {
		case "head", "script", "style", "template":
			return false
		}
		if attr(p, "hidden") != nil {
			return false
		}
		if class := attr(p, "class"); class != nil && hiddenByClass(class.Val) {
			return false
		}
		if style := attr(p, "style"); style != nil {
			s := strings.ReplaceAll(strings.ToLower(style.Val), " ", "")
			if strings.Contains(s, "display:none") || strings.Contains(s, "visibility:hidden") {
				return false
			}
		}
	}
	return true
}

// responsiveDisplay matches Bootstrap classes that show an element from a breakpoint up
var responsiveDisplay = regexp.MustCompile(`^d-(sm|md|lg|xl|xxl)-(inline|inline-block|block|flex|inline-flex|grid|table)$`)

// hiddenByClass treats d-none as hidden unless a responsive class re-shows the element,
// assuming a desktop-width viewport
func hiddenByClass(class string) bool {
	hidden := false
	for _, c := range strings.Fields(class) {
		if c == "d-none" {
			hidden = true
		}
	}
	if !hidden {
		return false
	}
	for _, c := range strings.Fields(class) {
		if responsiveDisplay.MatchString(c) {
			return false
		}
	}
	return true
}
