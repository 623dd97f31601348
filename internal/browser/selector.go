package browser

import (
	"fmt"
	"regexp"
	"strings"
)

// Selector describes one way to find an element: a CSS selector, optionally narrowed to
// elements whose text content matches Text.
type Selector struct {
	CSS  string
	Text *regexp.Regexp
}

// CSS returns a plain CSS selector
func CSS(css string) Selector {
	return Selector{CSS: css}
}

// Containing matches elements selected by css whose text contains substr (case sensitive)
func Containing(css, substr string) Selector {
	return Selector{CSS: css, Text: regexp.MustCompile(regexp.QuoteMeta(substr))}
}

// Matching matches elements selected by css whose text matches pattern
func Matching(css string, pattern *regexp.Regexp) Selector {
	return Selector{CSS: css, Text: pattern}
}

// containsPseudo matches the jQuery-style `tag:contains('text')` form
var containsPseudo = regexp.MustCompile(`^(.*):contains\((?:'([^']*)'|"([^"]*)")\)$`)

// ParseSelector accepts a CSS selector, optionally ending in a jQuery-style
// :contains('text') pseudo-class which becomes a text match.
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Selector{}, fmt.Errorf("empty selector")
	}

	m := containsPseudo.FindStringSubmatch(s)
	if m == nil {
		return CSS(s), nil
	}

	css := strings.TrimSpace(m[1])
	if css == "" {
		css = "*"
	}
	text := m[2]
	if text == "" {
		text = m[3]
	}
	return Containing(css, text), nil
}

// String renders the selector for logs
func (s Selector) String() string {
	if s.Text == nil {
		return s.CSS
	}
	return fmt.Sprintf("%s:text(/%s/)", s.CSS, s.Text.String())
}
