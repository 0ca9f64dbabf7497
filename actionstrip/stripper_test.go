package actionstrip

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/osintools/actionstrip/internal/htmldoc"
	"github.com/hazyhaar/osintools/actionstrip/internal/sanitizer"
	"github.com/hazyhaar/osintools/actionstrip/selectors"
)

func testStripper(t *testing.T, list selectors.List) *Stripper {
	t.Helper()
	s, err := New(DefaultConfig(), list, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Stop)
	return s
}

func TestNew_DefaultsAndInclude(t *testing.T) {
	s := testStripper(t, nil)
	if got := len(s.Selectors()); got != len(selectors.Default()) {
		t.Errorf("Selectors: got %d, want default list", got)
	}
	if !s.Included("https://www.facebook.com/some.profile") {
		t.Error("facebook profile not included")
	}
	if s.Included("https://example.com/") {
		t.Error("example.com included")
	}
	if !s.Included("https://www.facebook.com") {
		t.Error("bare facebook origin not included")
	}
}

func TestOpenPage_Errors(t *testing.T) {
	s := testStripper(t, nil)
	ctx := context.Background()

	if _, err := s.OpenPage(ctx, PageConfig{URL: "https://www.facebook.com/x"}); err == nil {
		t.Fatal("OpenPage before Start: expected error")
	}

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err == nil {
		t.Fatal("second Start: expected error")
	}

	_, err := s.OpenPage(ctx, PageConfig{URL: "https://example.com/"})
	if !errors.Is(err, ErrNotIncluded) {
		t.Fatalf("OpenPage outside include: got %v, want ErrNotIncluded", err)
	}

	if err := s.ClosePage("nope"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("ClosePage unknown: got %v", err)
	}
	if pages := s.Pages(); len(pages) != 0 {
		t.Fatalf("Pages: got %v", pages)
	}
}

func TestResolveSelectors(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig()
	list, err := ResolveSelectors(ctx, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != len(selectors.Default()) {
		t.Errorf("no source: got %d selectors, want default", len(list))
	}

	dbPath := filepath.Join(t.TempDir(), "selectors.db")
	cfg.SelectorsDB = dbPath
	cfg.SelectorSet = "fb-2026"
	if err := ImportSelectorSet(ctx, dbPath, "fb-2026", selectors.List{".like_link", ".comment_link"}); err != nil {
		t.Fatal(err)
	}
	list, err = ResolveSelectors(ctx, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0] != ".like_link" {
		t.Errorf("from database: got %v", list)
	}

	cfg.Selectors = []string{" .inline ", ".inline"}
	list, err = ResolveSelectors(ctx, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0] != ".inline" {
		t.Errorf("inline: got %v", list)
	}

	cfg.Selectors = nil
	cfg.SelectorSet = "empty"
	list, _ = ResolveSelectors(ctx, cfg, nil)
	if len(list) != len(selectors.Default()) {
		t.Errorf("empty set: got %d selectors, want default", len(list))
	}
}

func TestSelectorDB_HotReload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPath := filepath.Join(t.TempDir(), "selectors.db")
	if err := ImportSelectorSet(ctx, dbPath, "default", selectors.List{".like_link"}); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.SelectorsDB = dbPath
	list, err := ResolveSelectors(ctx, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(cfg, list, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	s.selectorPoll = 10 * time.Millisecond
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	// Let the watcher seed its version before the write.
	time.Sleep(50 * time.Millisecond)

	if err := ImportSelectorSet(ctx, dbPath, "default", selectors.List{".comment_link", ".UFILikeLink"}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := s.Selectors(); len(got) == 2 && got[0] == ".comment_link" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("selectors not reloaded: %v", s.Selectors())
}

func TestImportSelectorSet_BadName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.db")
	if err := ImportSelectorSet(context.Background(), path, "../etc", selectors.List{".a"}); err == nil {
		t.Fatal("expected error for unsafe set name")
	}
}

// staticSession builds a running session over a static document, standing
// in for a page whose tab belongs to a browser that is gone.
func staticSession(t *testing.T, id string) *session {
	t.Helper()
	doc, err := htmldoc.ParseString(`<html><body><p class="like_link">x</p></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	san := sanitizer.New(sanitizer.Config{PageID: id, Document: doc, Changes: doc})
	if err := san.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return &session{page: PageConfig{ID: id, URL: "https://www.facebook.com/" + id}, san: san}
}

func TestRecycleFailure_SuspendsPages(t *testing.T) {
	s := testStripper(t, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	sess := staticSession(t, "p1")
	s.mu.Lock()
	s.sessions["p1"] = sess
	s.mu.Unlock()

	s.suspendSessions(errors.New("launch: chrome not found"))

	if pages := s.Pages(); len(pages) != 0 {
		t.Errorf("Pages after failed recycle: got %v", pages)
	}
	if got := s.Suspended(); len(got) != 1 || got[0] != "p1" {
		t.Errorf("Suspended: got %v", got)
	}
	select {
	case <-sess.san.Done():
	default:
		t.Error("sanitizer still running")
	}

	if err := s.ClosePage("p1"); err != nil {
		t.Fatalf("ClosePage suspended: %v", err)
	}
	if got := s.Suspended(); len(got) != 0 {
		t.Errorf("Suspended after close: got %v", got)
	}
}

func TestOpenPage_IDReservedWhileNavigating(t *testing.T) {
	s := testStripper(t, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	s.opening["p2"] = struct{}{}
	s.mu.Unlock()

	_, err := s.OpenPage(context.Background(), PageConfig{ID: "p2", URL: "https://www.facebook.com/x"})
	if !errors.Is(err, ErrPageExists) {
		t.Fatalf("OpenPage on reserved ID: got %v, want ErrPageExists", err)
	}
	if pages := s.Pages(); len(pages) != 0 {
		t.Errorf("Pages: got %v", pages)
	}

	s.Stop()
	_, err = s.OpenPage(context.Background(), PageConfig{ID: "p3", URL: "https://www.facebook.com/x"})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("OpenPage after Stop: got %v, want ErrStopped", err)
	}
}
