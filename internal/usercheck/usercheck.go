// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package usercheck tracks the username availability hint shown on the
// registration form. The hint never blocks submission.
package usercheck

import (
	"strings"

	"github.com/olegiv/eduportal/internal/validation"
)

// Status is the displayed availability state.
type Status string

// Widget states.
const (
	Unchecked Status = "unchecked"
	Checking  Status = "checking"
	Available Status = "available"
	Taken     Status = "taken"
)

// ParseStatus maps a form value to a Status. Unknown values and Checking,
// which cannot survive a round trip, become Unchecked.
func ParseStatus(s string) Status {
	switch Status(s) {
	case Available, Taken:
		return Status(s)
	default:
		return Unchecked
	}
}

// Widget is the state of one username input.
type Widget struct {
	input   string
	checked string
	status  Status
}

// New returns a Widget for an empty input.
func New() *Widget {
	return &Widget{status: Unchecked}
}

// Restore rebuilds a Widget from the hidden form fields of a previous
// render, then applies the submitted input.
func Restore(checked string, status string, input string) *Widget {
	w := &Widget{input: checked, checked: checked, status: ParseStatus(status)}
	if w.status != Unchecked && checked == "" {
		w.status = Unchecked
	}
	w.Edit(input)
	return w
}

// Edit records a new input value. Any change drops the current result, and
// a check in flight for the old value will be discarded.
func (w *Widget) Edit(v string) {
	if v == w.input {
		return
	}
	w.input = v
	w.checked = ""
	w.status = Unchecked
}

// CanCheck reports whether the input is long enough to be worth checking.
func (w *Widget) CanCheck() bool {
	return validation.NeedsAvailabilityCheck(w.input)
}

// Begin starts a check and returns the value to look up. ok is false when the
// input is too short to check.
func (w *Widget) Begin() (value string, ok bool) {
	if !w.CanCheck() {
		return "", false
	}
	w.status = Checking
	return strings.TrimSpace(w.input), true
}

// Complete applies a lookup result. Results for a value that is no longer
// the current input are discarded and Complete returns false.
func (w *Widget) Complete(value string, taken bool) bool {
	if w.status != Checking || value != strings.TrimSpace(w.input) {
		return false
	}
	w.checked = w.input
	if taken {
		w.status = Taken
	} else {
		w.status = Available
	}
	return true
}

// Status returns the displayed state.
func (w *Widget) Status() Status {
	return w.status
}

// Input returns the current input value.
func (w *Widget) Input() string {
	return w.input
}

// Checked returns the input value the current result applies to, or "" when
// there is no result.
func (w *Widget) Checked() string {
	if w.status == Available || w.status == Taken {
		return w.checked
	}
	return ""
}

// MessageKey returns the i18n key of the hint to display, or "".
func (w *Widget) MessageKey() string {
	switch w.status {
	case Available:
		return "auth.username_available"
	case Taken:
		return "auth.username_taken"
	case Unchecked:
		if w.CanCheck() {
			return "auth.username_check_hint"
		}
	}
	return ""
}
