package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// NavigateTimeout bounds navigation plus the wait for the load event.
const NavigateTimeout = 30 * time.Second

// removeJS detaches every match of one selector and returns how many were
// removed. querySelectorAll throws on invalid syntax, which surfaces as the
// Eval error for that selector only.
const removeJS = `(sel) => {
	const found = document.querySelectorAll(sel);
	found.forEach((el) => el.remove());
	return found.length;
}`

// Tab is one sanitized page.
type Tab struct {
	Page   *rod.Page
	PageID string
	URL    string
}

// OpenTab opens a stealth tab, applies resource blocking and navigates to
// pageURL, returning after the document finished loading (or the wait timed
// out, which is logged and tolerated).
func OpenTab(ctx context.Context, mgr *Manager, pageURL, pageID string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		blockResources(page, mgr.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageID: pageID, URL: pageURL}, nil
}

// RemoveAll implements remover.Document against the live page.
func (t *Tab) RemoveAll(ctx context.Context, selector string) (int, error) {
	res, err := t.Page.Context(ctx).Eval(removeJS, selector)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

// CurrentURL asks the page for its URL, which drifts from Tab.URL on
// client-side navigation.
func (t *Tab) CurrentURL() (string, error) {
	info, err := t.Page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page == nil {
		return nil
	}
	return t.Page.Close()
}

// AddBinding exposes a CDP binding named name to every execution context
// of the page, including documents created by later navigations.
func (t *Tab) AddBinding(name string) error {
	return proto.RuntimeAddBinding{Name: name}.Call(t.Page)
}
