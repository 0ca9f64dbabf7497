package config

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/osintools/dbopen"
)

// Schema for the selector_sets table. One row per selector; position keeps
// the list order.
const Schema = `
CREATE TABLE IF NOT EXISTS selector_sets (
	name       TEXT NOT NULL,
	position   INTEGER NOT NULL,
	selector   TEXT NOT NULL,
	note       TEXT DEFAULT '',
	enabled    INTEGER DEFAULT 1,
	updated_at INTEGER NOT NULL DEFAULT (unixepoch()),
	PRIMARY KEY (name, position)
);
`

// SelectorRow is one entry of a stored selector set.
type SelectorRow struct {
	Selector string
	Note     string
	Enabled  bool
}

// OpenSelectorDB opens (and creates if needed) a selector database.
func OpenSelectorDB(path string) (*sql.DB, error) {
	return dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
}

// LoadSelectorSet returns the enabled selectors of a set in list order.
// An unknown set yields an empty list.
func LoadSelectorSet(ctx context.Context, db *sql.DB, name string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT selector FROM selector_sets
		WHERE name = ? AND enabled = 1
		ORDER BY position
	`, name)
	if err != nil {
		return nil, fmt.Errorf("config: load selector set %q: %w", name, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveSelectorSet replaces a set atomically.
func SaveSelectorSet(ctx context.Context, db *sql.DB, name string, entries []SelectorRow) error {
	return dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM selector_sets WHERE name = ?`, name); err != nil {
			return err
		}
		for i, e := range entries {
			enabled := 0
			if e.Enabled {
				enabled = 1
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO selector_sets (name, position, selector, note, enabled)
				VALUES (?, ?, ?, ?, ?)
			`, name, i, e.Selector, e.Note, enabled); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListSelectorSets returns the names of all stored sets.
func ListSelectorSets(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT name FROM selector_sets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
