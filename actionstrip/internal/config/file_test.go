package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Debounce.Window != 200*time.Millisecond {
		t.Errorf("Debounce.Window: got %v, want 200ms", c.Debounce.Window)
	}
	if c.Browser.Stealth != "headless" {
		t.Errorf("Browser.Stealth: got %q", c.Browser.Stealth)
	}
	if len(c.Include) != 2 || !strings.HasPrefix(c.Include[1], "https://") {
		t.Errorf("Include: got %v", c.Include)
	}
	if c.SelectorSet != "default" {
		t.Errorf("SelectorSet: got %q", c.SelectorSet)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate default: %v", err)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
browser:
  remote: ws://127.0.0.1:9222/devtools/browser/abc
  resource_blocking: []
debounce:
  window: 350ms
selectors:
  - '[aria-label="Like"]'
pages:
  - url: https://www.facebook.com/a
  - id: second
    url: https://www.facebook.com/b
    selectors: [.like_link]
http:
  addr: ":8087"
`)
	c, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if c.Debounce.Window != 350*time.Millisecond {
		t.Errorf("Window: got %v", c.Debounce.Window)
	}
	if c.Browser.Remote == "" {
		t.Error("Remote not parsed")
	}
	if len(c.Browser.ResourceBlocking) != 0 {
		t.Errorf("explicit empty resource_blocking overridden: %v", c.Browser.ResourceBlocking)
	}
	if len(c.Pages) != 2 || c.Pages[0].ID != "page-1" || c.Pages[1].ID != "second" {
		t.Errorf("Pages: got %+v", c.Pages)
	}
	if len(c.Pages[1].Selectors) != 1 {
		t.Errorf("page selectors: got %v", c.Pages[1].Selectors)
	}
	if c.HTTP.Addr != ":8087" {
		t.Errorf("HTTP.Addr: got %q", c.HTTP.Addr)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"stealth":  "browser: {stealth: invisible}\n",
		"no url":   "pages: [{id: a}]\n",
		"dup id":   "pages: [{id: a, url: 'https://x/'}, {id: a, url: 'https://y/'}]\n",
		"bad yaml": "pages: [\n",
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actionstrip.yaml")
	if err := os.WriteFile(path, []byte("debounce: {window: 1s}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Debounce.Window != time.Second {
		t.Errorf("Window: got %v", c.Debounce.Window)
	}
}
