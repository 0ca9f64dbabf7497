// Package selectors holds the CSS selector lists that decide which page
// elements are stripped. A List is plain configuration data: the default is
// a snapshot of Facebook markup and is expected to drift, so callers load
// replacements from YAML or SQLite instead of editing code.
package selectors

import (
	"fmt"
	"os"
	"strings"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// List is an ordered, read-only sequence of CSS selectors.
type List []string

// facebook is the selector snapshot for facebook.com profile and page markup.
var facebook = List{
	`[aria-label="Like"]`,
	`[aria-label="Comment"]`,
	`[aria-label="Share"]`,
	`.UFIReplyLink`,
	`.uiMentionsInput`,
	`.UFIAddCommentInput`,
	`.actions._70j`,
	`.FriendRequestAdd`,
	`.share_action_link`,
	`.addButton`,
	`.UFICommentCloseButton`,
	`.PageLikeButton`,
	`.UFILikeLink`,
	`.comment_link`,
	`.friendInviterContainer`,
	`.like_link`,
	`#pages_actions_pagelet`,
	`.commentable_item`,
	`[role="button"][data-testid*="like"]`,
	`[role="button"][data-testid*="react"]`,
	`[data-pagelet="RightRail"]`,
	`[data-pagelet="ProfileActions"]`,
	`[data-testid="post_chevron_button"]`,
}

// Default returns a copy of the built-in Facebook list.
func Default() List {
	return facebook.Clone()
}

// Clone returns an independent copy so the receiver stays immutable.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

// Normalize trims whitespace and drops empty entries and exact duplicates,
// keeping first-seen order.
func Normalize(in []string) List {
	seen := make(map[string]struct{}, len(in))
	out := make(List, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Invalid describes a selector that does not compile.
type Invalid struct {
	Index    int    `json:"index"`
	Selector string `json:"selector"`
	Error    string `json:"error"`
}

// Validate compiles every selector with cascadia and reports the ones that
// fail. Invalid entries are not removed from the list; the remover isolates
// them at run time.
func (l List) Validate() []Invalid {
	var bad []Invalid
	for i, s := range l {
		if _, err := cascadia.Compile(s); err != nil {
			bad = append(bad, Invalid{Index: i, Selector: s, Error: err.Error()})
		}
	}
	return bad
}

// file is the on-disk shape of a standalone selector file.
type file struct {
	Selectors []string `yaml:"selectors"`
}

// LoadFile reads a YAML selector file:
//
//	selectors:
//	  - '[aria-label="Like"]'
//	  - .PageLikeButton
func LoadFile(path string) (List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("selectors: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML selector data. A bare YAML sequence is accepted as well
// as the `selectors:` mapping form.
func Parse(data []byte) (List, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err == nil && len(f.Selectors) > 0 {
		return Normalize(f.Selectors), nil
	}
	var seq []string
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("selectors: parse: %w", err)
	}
	return Normalize(seq), nil
}
