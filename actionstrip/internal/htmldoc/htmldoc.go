// Package htmldoc is an in-memory HTML document with a live-DOM surface:
// selector removal, fragment insertion and change subscriptions. It backs
// the offline strip path and stands in for a browser page in tests.
package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"

	"github.com/hazyhaar/osintools/horosafe"
)

// MaxSize caps the bytes read from a single document.
const MaxSize = 10 << 20

// Document is safe for concurrent use. Structural changes made through its
// methods are reported to subscribers after the lock is released.
type Document struct {
	mu   sync.Mutex
	doc  *goquery.Document
	subs map[int]func()
	next int
}

// Parse reads at most MaxSize bytes, detects the charset and parses the
// result as HTML.
func Parse(r io.Reader) (*Document, error) {
	data, err := horosafe.LimitedReadAll(r, MaxSize)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: read: %w", err)
	}

	rd, err := charset.NewReaderLabel(detectCharset(data), bytes.NewReader(data))
	if err != nil {
		rd = bytes.NewReader(data)
	}

	doc, err := goquery.NewDocumentFromReader(rd)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return &Document{doc: doc, subs: make(map[int]func())}, nil
}

// ParseString is Parse for an in-memory string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func detectCharset(data []byte) string {
	if utf8.Valid(data) {
		return "utf-8"
	}
	res, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || res == nil {
		return "utf-8"
	}
	return strings.ToLower(res.Charset)
}

// RemoveAll detaches every element matching selector. A selector that does
// not compile is an error; zero matches is not.
func (d *Document) RemoveAll(_ context.Context, selector string) (int, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	sel := d.doc.FindMatcher(m)
	n := sel.Length()
	if n > 0 {
		sel.Remove()
	}
	d.mu.Unlock()

	if n > 0 {
		d.notify()
	}
	return n, nil
}

// Count returns the number of elements matching selector.
func (d *Document) Count(selector string) (int, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.FindMatcher(m).Length(), nil
}

// AppendHTML parses fragment and appends it to every element matching
// parent. It reports a change when at least one parent matched.
func (d *Document) AppendHTML(parent, fragment string) (int, error) {
	m, err := cascadia.Compile(parent)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	sel := d.doc.FindMatcher(m)
	n := sel.Length()
	if n > 0 {
		sel.AppendHtml(fragment)
	}
	d.mu.Unlock()

	if n > 0 {
		d.notify()
	}
	return n, nil
}

// Subscribe registers fn for every structural change until ctx is done.
// fn runs on the goroutine that made the change and must not block.
func (d *Document) Subscribe(ctx context.Context, fn func()) error {
	d.mu.Lock()
	id := d.next
	d.next++
	d.subs[id] = fn
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}()
	return nil
}

func (d *Document) notify() {
	d.mu.Lock()
	fns := make([]func(), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// HTML renders the whole document.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Html()
}

// Inert renders the document with scripts, event handlers and unsafe URLs
// removed, so a saved copy cannot rebuild the stripped elements when opened.
// The result is a body fragment.
func (d *Document) Inert() (string, error) {
	raw, err := d.HTML()
	if err != nil {
		return "", err
	}
	return inertPolicy().Sanitize(raw), nil
}

func inertPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class", "id", "role", "aria-label", "data-testid", "data-pagelet").Globally()
	p.AllowElements("section", "header", "footer", "nav", "main", "article", "aside")
	return p
}
