package actionstrip

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/osintools/actionstrip/internal/config"
	"github.com/hazyhaar/osintools/actionstrip/selectors"
	"github.com/hazyhaar/osintools/watch"
)

// SelectorPollInterval is how often the selector database is checked for
// writes from other processes.
const SelectorPollInterval = 2 * time.Second

// watchSelectorDB reloads the configured selector set whenever another
// process writes to the selector database, until ctx is done.
func (s *Stripper) watchSelectorDB(ctx context.Context) error {
	db, err := config.OpenSelectorDB(s.cfg.SelectorsDB)
	if err != nil {
		return fmt.Errorf("actionstrip: selector db: %w", err)
	}
	// data_version is per connection.
	db.SetMaxOpenConns(1)

	w := watch.New(db, watch.Options{
		Interval: s.selectorPoll,
		Debounce: 500 * time.Millisecond,
		Logger:   s.logger,
	})

	go func() {
		defer db.Close()
		w.OnChange(ctx, func() error {
			stored, err := config.LoadSelectorSet(ctx, db, s.cfg.SelectorSet)
			if err != nil {
				return err
			}
			list := selectors.Normalize(stored)
			if len(list) == 0 {
				s.logger.Warn("actionstrip: selector set now empty, keeping current list",
					"set", s.cfg.SelectorSet)
				return nil
			}
			s.SetSelectors(list)
			s.logger.Info("actionstrip: selector set reloaded",
				"set", s.cfg.SelectorSet, "count", len(list))
			return nil
		})
	}()
	return nil
}
