// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package validation checks form input before it reaches a backend.
package validation

import "github.com/olegiv/eduportal/internal/i18n"

// Issue is a single validation failure. Key is an i18n message key.
type Issue struct {
	Field string
	Key   string
}

// Message returns the localized issue text.
func (i Issue) Message(lang string) string {
	return i18n.T(lang, i.Key)
}

// Issues is an ordered list of failures. Order follows field order, then
// rule order within a field.
type Issues []Issue

// OK reports whether there are no issues.
func (is Issues) OK() bool {
	return len(is) == 0
}

// First returns the first issue, if any.
func (is Issues) First() (Issue, bool) {
	if len(is) == 0 {
		return Issue{}, false
	}
	return is[0], true
}

// FirstMessage returns the first issue's message or the fallback key's text.
func (is Issues) FirstMessage(lang, fallbackKey string) string {
	if first, ok := is.First(); ok {
		return first.Message(lang)
	}
	return i18n.T(lang, fallbackKey)
}

// Field returns the first issue for field.
func (is Issues) Field(field string) (Issue, bool) {
	for _, i := range is {
		if i.Field == field {
			return i, true
		}
	}
	return Issue{}, false
}

// Map returns the first localized message per field, for form rendering.
func (is Issues) Map(lang string) map[string]string {
	out := make(map[string]string, len(is))
	for _, i := range is {
		if _, seen := out[i.Field]; !seen {
			out[i.Field] = i.Message(lang)
		}
	}
	return out
}

func (is *Issues) add(field, key string) {
	*is = append(*is, Issue{Field: field, Key: key})
}
