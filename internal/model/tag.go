package model

import (
	"strings"
	"time"
)

// Tag is a shared label attached to fragments. Names are stored trimmed and
// lowercased, so "Python" and " python " resolve to the same row.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TagPage is one page of the tag listing.
type TagPage struct {
	Items []Tag `json:"items"`
	Total int   `json:"total"`
}

// NormalizeTagName returns the canonical form of a tag name. An empty result
// means the name should be dropped.
func NormalizeTagName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeTagNames canonicalizes a list of raw names, dropping empties and
// duplicates while keeping first-seen order.
func NormalizeTagNames(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	names := make([]string, 0, len(raw))
	for _, r := range raw {
		name := NormalizeTagName(r)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
