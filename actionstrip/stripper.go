// Package actionstrip keeps social-network pages free of action controls
// (like, comment, share, follow, message, menu buttons). Each open page gets
// a sanitizer that removes every element matching a selector list once the
// document has loaded, and again after every burst of DOM changes, once the
// page has been quiet for the debounce window.
//
// Pages run in a Chrome controlled through Rod, either launched locally or
// attached over DevTools to the user's own logged-in browser. Saved pages
// can be stripped offline with StripHTML.
package actionstrip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/osintools/actionstrip/internal/browser"
	"github.com/hazyhaar/osintools/actionstrip/internal/include"
	"github.com/hazyhaar/osintools/actionstrip/internal/observer"
	"github.com/hazyhaar/osintools/actionstrip/internal/sanitizer"
	"github.com/hazyhaar/osintools/actionstrip/selectors"
	"github.com/hazyhaar/osintools/horosafe"
	"github.com/hazyhaar/osintools/idgen"
)

// ErrNotIncluded is returned when a page URL matches no include pattern.
var ErrNotIncluded = errors.New("actionstrip: url not included")

// ErrPageExists is returned when opening a page under an ID already in use.
var ErrPageExists = errors.New("actionstrip: page id already open")

// ErrInvalidPageID is returned for page IDs unusable as URL path segments.
var ErrInvalidPageID = errors.New("actionstrip: invalid page id")

// ErrPageNotFound is returned for operations on an unknown page ID.
var ErrPageNotFound = errors.New("actionstrip: page not found")

// ErrStopped is returned by OpenPage once Stop has been called.
var ErrStopped = errors.New("actionstrip: stopped")

type session struct {
	page PageConfig
	tab  *browser.Tab
	san  *sanitizer.Sanitizer
	// pinned sessions use the page's own selectors and ignore reloads.
	pinned bool
}

// Stripper is the top-level orchestrator. It owns the browser and one
// sanitizer per open page.
type Stripper struct {
	cfg     *Config
	mgr     *browser.Manager
	include *include.Matcher
	newID   idgen.Generator
	logger  *slog.Logger

	selMu        sync.RWMutex
	selectors    selectors.List
	selectorPoll time.Duration

	mu       sync.Mutex
	ctx      context.Context
	started  bool
	stopped  bool
	sessions map[string]*session
	// opening reserves IDs whose tab is still navigating.
	opening map[string]struct{}
	// suspended pages lost their browser in a failed recycle. They are
	// re-opened when the next browser starts.
	suspended map[string]PageConfig
}

// New creates a Stripper. An empty list selects the built-in selectors.
func New(cfg *Config, list selectors.List, logger *slog.Logger) (*Stripper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m, err := include.Compile(cfg.Include)
	if err != nil {
		return nil, fmt.Errorf("actionstrip: %w", err)
	}
	if len(list) == 0 {
		list = selectors.Default()
	}
	for _, bad := range list.Validate() {
		logger.Warn("actionstrip: selector does not compile, it will fail at every pass",
			"index", bad.Index, "selector", bad.Selector, "error", bad.Error)
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		MemoryLimit:      cfg.Browser.MemoryLimit,
		RecycleInterval:  cfg.Browser.RecycleInterval,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Mode:             browser.ParseMode(cfg.Browser.Stealth),
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		Logger:           logger,
	})

	return &Stripper{
		cfg:          cfg,
		mgr:          mgr,
		include:      m,
		newID:        idgen.Prefixed("page_", idgen.UUIDv7()),
		logger:       logger,
		selectors:    list.Clone(),
		selectorPoll: SelectorPollInterval,
		sessions:     make(map[string]*session),
		opening:      make(map[string]struct{}),
		suspended:    make(map[string]PageConfig),
	}, nil
}

// Selectors returns a copy of the default selector list.
func (s *Stripper) Selectors() selectors.List {
	s.selMu.RLock()
	defer s.selMu.RUnlock()
	return s.selectors.Clone()
}

// SetSelectors replaces the default selector list and hands it to every
// open page that has no selectors of its own. An empty list is ignored.
func (s *Stripper) SetSelectors(list selectors.List) {
	list = selectors.Normalize(list)
	if len(list) == 0 {
		return
	}
	s.selMu.Lock()
	s.selectors = list
	s.selMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if !sess.pinned {
			sess.san.SetSelectors(list)
		}
	}
}

// Included reports whether pageURL is in scope.
func (s *Stripper) Included(pageURL string) bool {
	return s.include.Match(pageURL)
}

// Start opens every configured page. The browser is launched (or attached)
// by the first page that needs it. ctx bounds every page session.
func (s *Stripper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("actionstrip: already started")
	}
	s.ctx = ctx
	s.started = true
	s.mu.Unlock()

	s.mgr.SetHooks(&browser.Hooks{
		BeforeRecycle: s.stopSessions,
		AfterRecycle:  func(*rod.Browser) { s.reopenSessions() },
		RecycleFailed: s.suspendSessions,
	})

	if s.cfg.SelectorsDB != "" && len(s.cfg.Selectors) == 0 {
		if err := s.watchSelectorDB(ctx); err != nil {
			s.logger.Error("actionstrip: selector db watch disabled", "error", err)
		}
	}

	for _, page := range s.cfg.Pages {
		if _, err := s.OpenPage(ctx, page); err != nil {
			s.logger.Error("actionstrip: failed to open page",
				"url", page.URL, "id", page.ID, "error", err)
		}
	}
	return nil
}

// OpenPage opens page in a new tab and keeps it sanitized until ClosePage or
// Stop. An empty ID is generated.
func (s *Stripper) OpenPage(ctx context.Context, page PageConfig) (PageStats, error) {
	if !s.include.Match(page.URL) {
		return PageStats{}, fmt.Errorf("%w: %s", ErrNotIncluded, page.URL)
	}
	if page.ID == "" {
		page.ID = s.newID()
	}
	if err := horosafe.ValidateIdentifier(page.ID); err != nil {
		return PageStats{}, fmt.Errorf("%w: %v", ErrInvalidPageID, err)
	}

	s.mu.Lock()
	if err := s.reserveLocked(page.ID); err != nil {
		s.mu.Unlock()
		return PageStats{}, err
	}
	s.mu.Unlock()

	// Navigation can take NavigateTimeout; the lock is not held meanwhile.
	sess, err := s.openSession(ctx, page)

	s.mu.Lock()
	delete(s.opening, page.ID)
	if err != nil {
		s.mu.Unlock()
		return PageStats{}, err
	}
	if s.stopped {
		s.mu.Unlock()
		sess.close()
		return PageStats{}, ErrStopped
	}
	s.sessions[page.ID] = sess
	s.mu.Unlock()

	// A hot reload may have landed while the tab was navigating.
	if !sess.pinned {
		if cur := s.Selectors(); !slices.Equal(cur, sess.san.Selectors()) {
			sess.san.SetSelectors(cur)
		}
	}
	return sess.san.Stats(), nil
}

// reserveLocked checks that id is free, makes sure a browser is running and
// marks id as opening.
func (s *Stripper) reserveLocked(id string) error {
	if !s.started {
		return errors.New("actionstrip: not started")
	}
	if s.stopped {
		return ErrStopped
	}
	if _, ok := s.sessions[id]; ok {
		return fmt.Errorf("%w: %s", ErrPageExists, id)
	}
	if _, ok := s.opening[id]; ok {
		return fmt.Errorf("%w: %s", ErrPageExists, id)
	}
	// An explicit open replaces a suspended page of the same ID.
	delete(s.suspended, id)
	if err := s.ensureBrowserLocked(); err != nil {
		return err
	}
	s.opening[id] = struct{}{}
	return nil
}

// ClosePage stops the sanitizer of a page and closes its tab.
func (s *Stripper) ClosePage(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	_, wasSuspended := s.suspended[id]
	delete(s.suspended, id)
	s.mu.Unlock()
	if wasSuspended {
		s.logger.Info("actionstrip: suspended page dropped", "id", id)
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrPageNotFound, id)
	}
	sess.close()
	s.logger.Info("actionstrip: page closed", "id", id)
	return nil
}

// Pages returns the stats of every open page, ordered by ID.
func (s *Stripper) Pages() []PageStats {
	s.mu.Lock()
	out := make([]PageStats, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.san.Stats())
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PageID < out[j].PageID })
	return out
}

// Suspended returns the IDs of pages waiting for a browser after a failed
// recycle, sorted.
func (s *Stripper) Suspended() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.suspended))
	for id := range s.suspended {
		out = append(out, id)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out
}

// Stop ends every page session and shuts the browser down. A remote
// browser is only disconnected.
func (s *Stripper) Stop() {
	s.mu.Lock()
	s.stopped = true
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.suspended = make(map[string]PageConfig)
	s.mu.Unlock()

	for id, sess := range sessions {
		sess.close()
		s.logger.Info("actionstrip: stopped page", "id", id)
	}
	s.mgr.Close()
}

func (s *Stripper) ensureBrowserLocked() error {
	if s.mgr.Browser() != nil {
		return nil
	}
	if _, err := s.mgr.Start(s.ctx); err != nil {
		return fmt.Errorf("actionstrip: start browser: %w", err)
	}
	for id, page := range s.suspended {
		sess, err := s.openSession(s.ctx, page)
		if err != nil {
			s.logger.Error("actionstrip: resume page failed", "id", id, "url", page.URL, "error", err)
			continue
		}
		s.sessions[id] = sess
		s.logger.Info("actionstrip: page resumed", "id", id)
	}
	clear(s.suspended)
	return nil
}

func (s *Stripper) openSession(ctx context.Context, page PageConfig) (*session, error) {
	tab, err := browser.OpenTab(ctx, s.mgr, page.URL, page.ID)
	if err != nil {
		return nil, fmt.Errorf("actionstrip: open tab: %w", err)
	}

	list := selectors.Normalize(page.Selectors)
	pinned := len(list) > 0
	if !pinned {
		list = s.Selectors()
	}

	san := sanitizer.New(sanitizer.Config{
		PageID:    page.ID,
		PageURL:   page.URL,
		Document:  tab,
		Changes:   observer.New(tab, s.logger),
		Selectors: list,
		Window:    s.cfg.Debounce.Window,
		Logger:    s.logger,
		OnRun:     s.logRun(page.ID),
		Locator:   tab,
		InScope:   s.include.Match,
	})
	// Sessions outlive the request that opened them.
	if err := san.Start(s.ctx); err != nil {
		tab.Close()
		return nil, fmt.Errorf("actionstrip: start sanitizer: %w", err)
	}
	return &session{page: page, tab: tab, san: san, pinned: pinned}, nil
}

func (s *Stripper) logRun(pageID string) func(sanitizer.Run) {
	return func(r sanitizer.Run) {
		if r.Report.Removed == 0 && r.Report.FailedCount == 0 {
			return
		}
		s.logger.Debug("actionstrip: removal pass",
			"page_id", pageID,
			"seq", r.Seq,
			"initial", r.Initial,
			"removed", r.Report.Removed,
			"failed", r.Report.FailedCount,
			"duration", r.Report.Duration)
	}
}

func (s *Stripper) stopSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.san.Stop()
	}
}

// reopenSessions re-opens every page after a browser recycle. The old tabs
// died with the previous process.
func (s *Stripper) reopenSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.sessions
	s.sessions = make(map[string]*session, len(old))
	for id, sess := range old {
		fresh, err := s.openSession(s.ctx, sess.page)
		if err != nil {
			s.logger.Error("actionstrip: reopen page failed",
				"id", id, "url", sess.page.URL, "error", err)
			continue
		}
		s.sessions[id] = fresh
	}
}

// suspendSessions keeps the pages of a failed recycle aside. Their
// sanitizers were stopped by BeforeRecycle and their tabs died with Chrome.
func (s *Stripper) suspendSessions(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.san.Stop()
		s.suspended[id] = sess.page
		delete(s.sessions, id)
	}
	s.logger.Error("actionstrip: browser relaunch failed, pages suspended",
		"pages", len(s.suspended), "error", err)
}

func (sess *session) close() {
	sess.san.Stop()
	if sess.tab != nil {
		sess.tab.Close()
	}
}
