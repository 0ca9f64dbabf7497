package actionstrip

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/osintools/actionstrip/internal/htmldoc"
	"github.com/hazyhaar/osintools/actionstrip/internal/remover"
	"github.com/hazyhaar/osintools/actionstrip/selectors"
)

// StripOptions configures StripHTML.
type StripOptions struct {
	// Selectors defaults to the built-in list.
	Selectors selectors.List
	// Inert additionally drops scripts, event handlers and unsafe URLs, so
	// the saved page cannot re-render the removed controls. The output is
	// then a body fragment.
	Inert  bool
	Logger *slog.Logger
}

// StripResult is the cleaned document and the pass report.
type StripResult struct {
	HTML   string `json:"html"`
	Report Report `json:"report"`
}

// StripHTML runs one removal pass over a saved page.
func StripHTML(ctx context.Context, r io.Reader, opts StripOptions) (*StripResult, error) {
	doc, err := htmldoc.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("actionstrip: %w", err)
	}

	list := opts.Selectors
	if len(list) == 0 {
		list = selectors.Default()
	}
	rep := remover.New(list, opts.Logger).Run(ctx, doc)

	var out string
	if opts.Inert {
		out, err = doc.Inert()
	} else {
		out, err = doc.HTML()
	}
	if err != nil {
		return nil, fmt.Errorf("actionstrip: render: %w", err)
	}
	return &StripResult{HTML: out, Report: rep}, nil
}
