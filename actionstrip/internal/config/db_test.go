package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/osintools/dbopen"
)

func TestSelectorSet_SaveLoad(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	ctx := context.Background()

	err := SaveSelectorSet(ctx, db, "fb", []SelectorRow{
		{Selector: `[aria-label="Like"]`, Note: "like button", Enabled: true},
		{Selector: ".RightRail", Enabled: false},
		{Selector: ".like_link", Enabled: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := LoadSelectorSet(ctx, db, "fb")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{`[aria-label="Like"]`, ".like_link"}
	if len(got) != len(want) {
		t.Fatalf("LoadSelectorSet: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSelectorSet_ReplaceAndList(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	ctx := context.Background()

	SaveSelectorSet(ctx, db, "a", []SelectorRow{{Selector: ".x", Enabled: true}, {Selector: ".y", Enabled: true}})
	SaveSelectorSet(ctx, db, "b", []SelectorRow{{Selector: ".z", Enabled: true}})
	if err := SaveSelectorSet(ctx, db, "a", []SelectorRow{{Selector: ".only", Enabled: true}}); err != nil {
		t.Fatal(err)
	}

	got, _ := LoadSelectorSet(ctx, db, "a")
	if len(got) != 1 || got[0] != ".only" {
		t.Errorf("replaced set: got %v", got)
	}

	names, err := ListSelectorSets(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("ListSelectorSets: got %v", names)
	}

	empty, err := LoadSelectorSet(ctx, db, "missing")
	if err != nil || len(empty) != 0 {
		t.Errorf("unknown set: got (%v, %v)", empty, err)
	}
}

func TestOpenSelectorDB_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "selectors.db")
	db, err := OpenSelectorDB(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := LoadSelectorSet(context.Background(), db, "default"); err != nil {
		t.Fatal(err)
	}
}
