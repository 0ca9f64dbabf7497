// Package include decides which page URLs are sanitized, using userscript
// @include glob semantics: `*` matches any run of characters including `/`,
// everything else is literal, and the whole URL must match.
package include

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Default activates on every facebook.com host over http and https.
var Default = []string{
	"http://*facebook.com/*",
	"https://*facebook.com/*",
}

// Matcher holds compiled patterns. The zero value matches nothing.
type Matcher struct {
	patterns []string
	res      []*regexp.Regexp
}

// Compile builds a Matcher. An empty pattern list selects Default.
func Compile(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		patterns = Default
	}
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := globToRegexp(p)
		if err != nil {
			return nil, fmt.Errorf("include: pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, p)
		m.res = append(m.res, re)
	}
	return m, nil
}

// Match reports whether rawURL matches at least one pattern. The URL is
// first given the root path a browser would load, so a bare origin matches
// patterns ending in "/*".
func (m *Matcher) Match(rawURL string) bool {
	if m == nil {
		return false
	}
	rawURL = Normalize(rawURL)
	for _, re := range m.res {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// Normalize adds the "/" path to an absolute URL that has none
// ("https://www.facebook.com" becomes "https://www.facebook.com/"). Other
// URLs are returned unchanged.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || u.Opaque != "" || u.Path != "" {
		return rawURL
	}
	u.Path = "/"
	return u.String()
}

// Patterns returns the source patterns.
func (m *Matcher) Patterns() []string {
	out := make([]string, len(m.patterns))
	copy(out, m.patterns)
	return out
}

func globToRegexp(glob string) (*regexp.Regexp, error) {
	parts := strings.Split(glob, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("(?i)^" + strings.Join(parts, ".*") + "$")
}
