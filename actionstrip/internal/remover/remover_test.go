package remover

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hazyhaar/osintools/actionstrip/internal/htmldoc"
	"github.com/hazyhaar/osintools/actionstrip/selectors"
)

const page = `<html><body>
<div id="profile">
  <button aria-label="Like">Like</button>
  <div class="PageLikeButton">Like this page</div>
  <p id="bio">unrelated</p>
  <div role="button" data-testid="ufi_like_button">like</div>
</div>
</body></html>`

func bufLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestRun_DefaultList(t *testing.T) {
	doc, err := htmldoc.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	r := New(selectors.Default(), slog.Default())

	rep := r.Run(context.Background(), doc)
	if rep.Removed != 3 {
		t.Fatalf("Removed: got %d, want 3 (%v)", rep.Removed, rep.BySelector)
	}
	if rep.FailedCount != 0 {
		t.Errorf("FailedCount: got %d, want 0", rep.FailedCount)
	}
	for _, sel := range []string{`[aria-label="Like"]`, ".PageLikeButton"} {
		if c, _ := doc.Count(sel); c != 0 {
			t.Errorf("%s still present (%d)", sel, c)
		}
	}
	if c, _ := doc.Count("#bio"); c != 1 {
		t.Errorf("unrelated #bio removed")
	}
}

func TestRun_Idempotent(t *testing.T) {
	doc, _ := htmldoc.ParseString(page)
	r := New(selectors.Default(), slog.Default())

	r.Run(context.Background(), doc)
	first, _ := doc.HTML()

	rep := r.Run(context.Background(), doc)
	second, _ := doc.HTML()

	if rep.Removed != 0 {
		t.Errorf("second run removed %d elements", rep.Removed)
	}
	if first != second {
		t.Error("second run changed the document")
	}
}

func TestRun_InvalidSelectorIsolated(t *testing.T) {
	doc, _ := htmldoc.ParseString(page)
	logger, buf := bufLogger()
	list := selectors.List{`[aria-label="Like"`, `[aria-label="Like"]`, ".PageLikeButton"}
	r := New(list, logger)

	rep := r.Run(context.Background(), doc)
	if rep.Removed != 2 {
		t.Errorf("Removed: got %d, want 2", rep.Removed)
	}
	if rep.FailedCount != 1 || rep.Failures[0].Selector != `[aria-label="Like"` {
		t.Fatalf("Failures: got %+v", rep.Failures)
	}
	if n := strings.Count(buf.String(), "level=ERROR"); n != 1 {
		t.Errorf("error lines: got %d, want 1\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), `selector="[aria-label=\"Like\""`) {
		t.Errorf("error line missing selector: %s", buf.String())
	}
}

func TestRun_EmptyDocument(t *testing.T) {
	doc, _ := htmldoc.ParseString("")
	r := New(selectors.Default(), slog.Default())
	rep := r.Run(context.Background(), doc)
	if rep.Removed != 0 || rep.FailedCount != 0 {
		t.Errorf("empty document: got %+v", rep)
	}
}

type panicDoc struct{ calls int }

func (p *panicDoc) RemoveAll(_ context.Context, sel string) (int, error) {
	p.calls++
	if sel == ".boom" {
		panic("backend exploded")
	}
	if sel == ".err" {
		return 0, errors.New("detached document")
	}
	return 1, nil
}

func TestRun_BackendFailuresNeverEscape(t *testing.T) {
	doc := &panicDoc{}
	logger, _ := bufLogger()
	r := New(selectors.List{".a", ".boom", ".err", ".b"}, logger)

	rep := r.Run(context.Background(), doc)
	if doc.calls != 4 {
		t.Errorf("calls: got %d, want 4", doc.calls)
	}
	if rep.Removed != 2 {
		t.Errorf("Removed: got %d, want 2", rep.Removed)
	}
	if rep.FailedCount != 2 {
		t.Fatalf("FailedCount: got %d, want 2", rep.FailedCount)
	}
	var serr *SelectorError
	if !errors.As(rep.Failures[1], &serr) || serr.Selector != ".err" {
		t.Errorf("Failures[1]: got %v", rep.Failures[1])
	}
	if rep.Failures[1].Unwrap().Error() != "detached document" {
		t.Errorf("Unwrap: got %v", rep.Failures[1].Unwrap())
	}
}

func TestRun_CancelledContext(t *testing.T) {
	doc := &panicDoc{}
	logger, buf := bufLogger()
	r := New(selectors.List{".a", ".b"}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := r.Run(ctx, doc)
	if doc.calls != 0 {
		t.Errorf("calls after cancel: got %d, want 0", doc.calls)
	}
	if rep.FailedCount != 0 {
		t.Errorf("FailedCount: got %d, want 0", rep.FailedCount)
	}
	if !rep.Interrupted {
		t.Error("Interrupted not set")
	}
	if buf.Len() != 0 {
		t.Errorf("cancellation logged:\n%s", buf.String())
	}
}

// cancellingDoc cancels the run while evaluating its second selector and
// reports the context error, the way a CDP call does when its page closes.
type cancellingDoc struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancellingDoc) RemoveAll(ctx context.Context, _ string) (int, error) {
	c.calls++
	if c.calls == 2 {
		c.cancel()
		return 0, ctx.Err()
	}
	return 1, nil
}

func TestRun_CancelledMidPass(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	doc := &cancellingDoc{cancel: cancel}
	logger, buf := bufLogger()
	r := New(selectors.List{".a", ".b", ".c", ".d"}, logger)

	rep := r.Run(ctx, doc)
	if doc.calls != 2 {
		t.Errorf("calls: got %d, want 2", doc.calls)
	}
	if rep.Removed != 1 || rep.FailedCount != 0 || !rep.Interrupted {
		t.Errorf("Report: got %+v", rep)
	}
	if strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("cancellation logged as selector error:\n%s", buf.String())
	}
}
