// Package sanitizer implements the per-page sanitizer: one eager removal
// pass at start, then a debounced removal pass after every burst of
// structural changes reported by the page.
//
// All removal passes of a page run on the sanitizer's own goroutine, so
// passes never overlap and the debounce timer needs no locking.
package sanitizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/osintools/actionstrip/internal/debounce"
	"github.com/hazyhaar/osintools/actionstrip/internal/remover"
	"github.com/hazyhaar/osintools/actionstrip/selectors"
)

// ChangeSource delivers a notification for every batch of structural
// changes (child list, subtree) until ctx is done. fn must be cheap; the
// sanitizer only records the trigger.
type ChangeSource interface {
	Subscribe(ctx context.Context, fn func()) error
}

// Locator reports the URL the page currently shows.
type Locator interface {
	CurrentURL() (string, error)
}

// Run describes one completed removal pass.
type Run struct {
	Seq     uint64
	Initial bool
	At      time.Time
	Report  remover.Report
}

// Stats is a point-in-time view of a sanitizer.
type Stats struct {
	PageID   string    `json:"page_id"`
	PageURL  string    `json:"page_url"`
	Runs     uint64    `json:"runs"`
	Triggers uint64    `json:"triggers"`
	Removed  uint64    `json:"removed"`
	Failed   uint64    `json:"failed"`
	Skipped  uint64    `json:"skipped"`
	LastRun  time.Time `json:"last_run"`
}

// Config for creating a Sanitizer.
type Config struct {
	PageID    string
	PageURL   string
	Document  remover.Document
	Changes   ChangeSource
	Selectors selectors.List
	// Window is the debounce quiet period. Default: 200ms.
	Window time.Duration
	Logger *slog.Logger
	// OnRun, if set, is called on the sanitizer goroutine after every pass.
	OnRun func(Run)
	// Locator and InScope, when both set, gate every pass: a page whose
	// current URL is out of scope (or unknown) is left untouched.
	Locator Locator
	InScope func(pageURL string) bool
}

// Sanitizer owns the debounce timer and the change subscription of one page.
type Sanitizer struct {
	pageID  string
	pageURL string
	doc     remover.Document
	changes ChangeSource
	remover atomic.Pointer[remover.Remover]
	timer   *debounce.Timer
	onRun   func(Run)
	locator Locator
	inScope func(string) bool
	logger  *slog.Logger

	// outOfScope is only touched by the goroutine running passes.
	outOfScope bool

	triggers chan struct{}

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	runs      atomic.Uint64
	triggered atomic.Uint64
	removed   atomic.Uint64
	failed    atomic.Uint64
	skipped   atomic.Uint64
	lastRun   atomic.Int64
}

// New creates a Sanitizer. An empty selector list selects the default list.
func New(cfg Config) *Sanitizer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(cfg.Selectors) == 0 {
		cfg.Selectors = selectors.Default()
	}
	logger := cfg.Logger.With("page_id", cfg.PageID)

	s := &Sanitizer{
		pageID:   cfg.PageID,
		pageURL:  cfg.PageURL,
		doc:      cfg.Document,
		changes:  cfg.Changes,
		timer:    debounce.New(cfg.Window),
		onRun:    cfg.OnRun,
		locator:  cfg.Locator,
		inScope:  cfg.InScope,
		logger:   logger,
		triggers: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	s.remover.Store(remover.New(cfg.Selectors, logger))
	return s
}

// SetSelectors replaces the selector list. The next pass uses it; a pass is
// scheduled through the debounce timer so the new list applies without
// waiting for a page change. An empty list is ignored.
func (s *Sanitizer) SetSelectors(list selectors.List) {
	if len(list) == 0 {
		return
	}
	s.remover.Store(remover.New(list, s.logger))
	s.logger.Info("sanitizer: selector list replaced", "selectors", len(list))
	s.Trigger()
}

// Selectors returns the list currently applied.
func (s *Sanitizer) Selectors() selectors.List {
	return s.remover.Load().Selectors()
}

// Start runs the eager pass, subscribes to page changes and starts the
// debounced loop. It returns once the loop is running.
func (s *Sanitizer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("sanitizer: already started")
	}
	if s.doc == nil || s.changes == nil {
		return errors.New("sanitizer: document and change source are required")
	}

	ctx, cancel := context.WithCancel(ctx)

	s.run(ctx, true)

	if err := s.changes.Subscribe(ctx, s.Trigger); err != nil {
		cancel()
		return fmt.Errorf("sanitizer: subscribe: %w", err)
	}

	s.cancel = cancel
	s.started = true
	go s.loop(ctx)

	s.logger.Info("sanitizer: action remover is running",
		"url", s.pageURL,
		"selectors", len(s.remover.Load().Selectors()),
		"window", s.timer.Window())
	return nil
}

// Trigger records a change batch. It never blocks: while a trigger is
// already queued for the loop, further ones collapse into it.
func (s *Sanitizer) Trigger() {
	s.triggered.Add(1)
	select {
	case s.triggers <- struct{}{}:
	default:
	}
}

// Stop ends the page session. A pending pass is discarded.
func (s *Sanitizer) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.done
}

// Done is closed when the loop exits.
func (s *Sanitizer) Done() <-chan struct{} {
	return s.done
}

// Stats returns counters for the page session.
func (s *Sanitizer) Stats() Stats {
	st := Stats{
		PageID:   s.pageID,
		PageURL:  s.pageURL,
		Runs:     s.runs.Load(),
		Triggers: s.triggered.Load(),
		Removed:  s.removed.Load(),
		Failed:   s.failed.Load(),
		Skipped:  s.skipped.Load(),
	}
	if ns := s.lastRun.Load(); ns > 0 {
		st.LastRun = time.Unix(0, ns)
	}
	return st
}

// loop is the Idle/PendingRun state machine. A trigger moves to (or stays
// in) PendingRun with a fresh timer; the timer firing runs a pass and
// returns to Idle.
func (s *Sanitizer) loop(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.timer.Cancel()
			return

		case <-s.triggers:
			s.timer.Trigger()

		case <-s.timer.C():
			s.timer.Fired()
			s.run(ctx, false)
		}
	}
}

func (s *Sanitizer) run(ctx context.Context, initial bool) {
	if !s.allowed() {
		s.skipped.Add(1)
		return
	}
	rep := s.remover.Load().Run(ctx, s.doc)
	now := time.Now()

	seq := s.runs.Add(1)
	s.removed.Add(uint64(rep.Removed))
	s.failed.Add(uint64(rep.FailedCount))
	s.lastRun.Store(now.UnixNano())

	if s.onRun != nil {
		s.onRun(Run{Seq: seq, Initial: initial, At: now, Report: rep})
	}
}

// allowed checks the page's current URL against the scope. Transitions are
// logged once, not on every skipped pass.
func (s *Sanitizer) allowed() bool {
	if s.locator == nil || s.inScope == nil {
		return true
	}
	u, err := s.locator.CurrentURL()
	ok := err == nil && s.inScope(u)
	switch {
	case !ok && !s.outOfScope:
		s.logger.Info("sanitizer: page out of scope, passes paused", "url", u, "error", err)
	case ok && s.outOfScope:
		s.logger.Info("sanitizer: page back in scope", "url", u)
	}
	s.outOfScope = !ok
	return ok
}
