package actionstrip

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/osintools/actionstrip/internal/config"
	"github.com/hazyhaar/osintools/actionstrip/internal/remover"
	"github.com/hazyhaar/osintools/actionstrip/internal/sanitizer"
	"github.com/hazyhaar/osintools/actionstrip/selectors"
	"github.com/hazyhaar/osintools/horosafe"
)

// Config is the top-level actionstrip configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// PageConfig defines a page to keep sanitized.
type PageConfig = config.PageConfig

// DebounceConfig holds the quiet window.
type DebounceConfig = config.DebounceConfig

// SelectorRow is one entry of a stored selector set.
type SelectorRow = config.SelectorRow

// Report summarises one removal pass.
type Report = remover.Report

// SelectorError is the failure of one selector during a pass.
type SelectorError = remover.SelectorError

// PageStats describes a live page session.
type PageStats = sanitizer.Stats

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// ResolveSelectors picks the selector list for cfg: the inline list when
// set, else the named set from the selector database when it has entries,
// else the built-in list.
func ResolveSelectors(ctx context.Context, cfg *Config, logger *slog.Logger) (selectors.List, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if list := selectors.Normalize(cfg.Selectors); len(list) > 0 {
		logger.Debug("actionstrip: selectors from config", "count", len(list))
		return list, nil
	}
	if cfg.SelectorsDB != "" {
		db, err := config.OpenSelectorDB(cfg.SelectorsDB)
		if err != nil {
			return nil, fmt.Errorf("actionstrip: selector db: %w", err)
		}
		defer db.Close()
		stored, err := config.LoadSelectorSet(ctx, db, cfg.SelectorSet)
		if err != nil {
			return nil, err
		}
		if list := selectors.Normalize(stored); len(list) > 0 {
			logger.Debug("actionstrip: selectors from database",
				"set", cfg.SelectorSet, "count", len(list))
			return list, nil
		}
		logger.Warn("actionstrip: selector set empty, using built-in list",
			"db", cfg.SelectorsDB, "set", cfg.SelectorSet)
	}
	return selectors.Default(), nil
}

// ImportSelectorSet stores list as the named set of the selector database
// at path, replacing any previous content.
func ImportSelectorSet(ctx context.Context, path, name string, list selectors.List) error {
	if err := horosafe.ValidateIdentifier(name); err != nil {
		return fmt.Errorf("actionstrip: selector set name: %w", err)
	}
	db, err := config.OpenSelectorDB(path)
	if err != nil {
		return fmt.Errorf("actionstrip: selector db: %w", err)
	}
	defer db.Close()

	rows := make([]SelectorRow, len(list))
	for i, s := range list {
		rows[i] = SelectorRow{Selector: s, Enabled: true}
	}
	return config.SaveSelectorSet(ctx, db, name, rows)
}
