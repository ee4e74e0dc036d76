// Package ident derives human-legible identifiers for new lists and boards
// from their display names.
package ident

import (
	"regexp"
	"strconv"
	"strings"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify maps a display name to a lowercase identifier made of [a-z0-9-].
// Every run of other characters becomes a single hyphen and leading or
// trailing hyphens are trimmed. An empty result means the name cannot be
// used as an identifier.
func Slugify(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// UniqueID returns Slugify(name) when it is not in existing, otherwise the
// first of "<slug>-1", "<slug>-2", ... that is not in existing.
func UniqueID(name string, existing map[string]bool) string {
	base := Slugify(name)
	if !existing[base] {
		return base
	}
	for n := 1; ; n++ {
		id := base + "-" + strconv.Itoa(n)
		if !existing[id] {
			return id
		}
	}
}
