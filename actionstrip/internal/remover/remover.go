// Package remover deletes every element matching a selector list from a
// document. Selectors are evaluated one at a time and a failing selector
// never stops the others: the error is logged and the run continues.
package remover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/osintools/actionstrip/selectors"
)

// Document is anything that can find and detach the elements matching one
// CSS selector. Implementations return the number of detached elements.
type Document interface {
	RemoveAll(ctx context.Context, selector string) (int, error)
}

// SelectorError is the one runtime failure kind: evaluating a selector
// against the document failed (bad syntax, detached document, CDP error).
type SelectorError struct {
	Selector string
	Err      error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("selector %q: %v", e.Selector, e.Err)
}

func (e *SelectorError) Unwrap() error { return e.Err }

// Report summarises one run. It is informational only.
type Report struct {
	Removed     int              `json:"removed"`
	BySelector  map[string]int   `json:"by_selector,omitempty"`
	Failures    []*SelectorError `json:"-"`
	FailedCount int              `json:"failed"`
	Duration    time.Duration    `json:"duration_ns"`
	// Interrupted is set when ctx ended before every selector was evaluated.
	Interrupted bool `json:"interrupted,omitempty"`
}

// Remover applies a fixed selector list to documents.
type Remover struct {
	list   selectors.List
	logger *slog.Logger
}

// New creates a Remover. The list is copied.
func New(list selectors.List, logger *slog.Logger) *Remover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Remover{list: list.Clone(), logger: logger}
}

// Selectors returns a copy of the list this Remover applies.
func (r *Remover) Selectors() selectors.List {
	return r.list.Clone()
}

// Run evaluates every selector against doc in order and detaches all
// matches. It never returns an error and never panics. When ctx ends the
// run stops and the partial Report is returned; cancellation is not a
// selector failure.
func (r *Remover) Run(ctx context.Context, doc Document) Report {
	start := time.Now()
	rep := Report{BySelector: make(map[string]int)}

	for _, sel := range r.list {
		if ctx.Err() != nil {
			rep.Interrupted = true
			break
		}
		n, err := removeOne(ctx, doc, sel)
		if err != nil && ctx.Err() != nil {
			rep.Interrupted = true
			break
		}
		if err != nil {
			serr := &SelectorError{Selector: sel, Err: err}
			rep.Failures = append(rep.Failures, serr)
			r.logger.Error("remover: error removing elements for selector",
				"selector", sel, "error", err)
			continue
		}
		if n > 0 {
			rep.BySelector[sel] += n
			rep.Removed += n
		}
	}

	rep.FailedCount = len(rep.Failures)
	rep.Duration = time.Since(start)
	if rep.Removed > 0 {
		r.logger.Debug("remover: run complete",
			"removed", rep.Removed, "failed", rep.FailedCount, "duration", rep.Duration)
	}
	return rep
}

// removeOne isolates a single selector, converting a backend panic into an
// ordinary selector error.
func removeOne(ctx context.Context, doc Document, sel string) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			n, err = 0, fmt.Errorf("panic: %v", p)
		}
	}()
	return doc.RemoveAll(ctx, sel)
}
