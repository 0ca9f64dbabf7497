// Package observer reports structural changes of a live browser page. A
// MutationObserver injected into the page (childList + subtree on the body)
// calls a CDP binding once per mutation batch; the Go side turns every
// Runtime.bindingCalled event into a notification.
package observer

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/osintools/actionstrip/internal/browser"
)

//go:embed observer.js
var observerJS string

// BindingName is the window property the injected script calls.
const BindingName = "__actionstrip_binding"

// Observer subscribes to mutation batches of one rod page.
type Observer struct {
	tab    *browser.Tab
	logger *slog.Logger
}

// New creates an Observer for tab.
func New(tab *browser.Tab, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{tab: tab, logger: logger}
}

// Subscribe installs the binding and the MutationObserver, for the current
// document and for every document the tab loads later, then delivers one
// fn call per mutation batch until ctx is done. It implements
// sanitizer.ChangeSource.
func (o *Observer) Subscribe(ctx context.Context, fn func()) error {
	if err := o.tab.AddBinding(BindingName); err != nil {
		return fmt.Errorf("observer: add binding: %w", err)
	}

	// Register the listener before injecting so no early batch is lost.
	wait := o.tab.Page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != BindingName {
			return
		}
		if n, err := strconv.Atoi(e.Payload); err == nil {
			o.logger.Debug("observer: mutation batch", "records", n)
		}
		fn()
	})
	go wait()

	if _, err := o.tab.Page.EvalOnNewDocument(onNewDocument()); err != nil {
		return fmt.Errorf("observer: register on new document: %w", err)
	}
	if _, err := o.tab.Page.Context(ctx).Eval(observerJS); err != nil {
		return fmt.Errorf("observer: inject: %w", err)
	}

	o.logger.Debug("observer: injected", "binding", BindingName)
	return nil
}

// onNewDocument turns the injected function into a script statement, the
// form Page.addScriptToEvaluateOnNewDocument expects.
func onNewDocument() string {
	return "(" + observerJS + ")();"
}
