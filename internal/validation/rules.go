// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package validation

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field names as they appear in forms and error envelopes.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldPasswordConfirm = "passwordConfirm"
	FieldUsername        = "username"
	FieldTitle           = "title"
	FieldContent         = "content"
	FieldImageURL        = "imageURL"
	FieldDisplayName     = "displayName"
	FieldAvatarURL       = "avatarURL"
)

// Limits.
const (
	PasswordMinLength = 6
	UsernameMinLength = 2
	UsernameMaxLength = 20
	BlogTextMinLength = 2
)

// PasswordSpecialChars are the characters accepted as "special".
const PasswordSpecialChars = `!@#$%^&*(),.?":{}|<>`

// UnsplashHost is the only host accepted for blog images.
const UnsplashHost = "images.unsplash.com"

// checkEmail validates a bare address such as "a@b.com". Display-name
// forms like "A <a@b.com>" are rejected.
func checkEmail(is *Issues, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		is.add(field, "validation.email_required")
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		is.add(field, "validation.email_invalid")
		return
	}
	if at := strings.LastIndex(value, "@"); !strings.Contains(value[at+1:], ".") {
		is.add(field, "validation.email_invalid")
	}
}

// checkPassword applies the password rules in order: length, digit,
// special character, uppercase, lowercase.
func checkPassword(is *Issues, field, value string) {
	if utf8.RuneCountInString(value) < PasswordMinLength {
		is.add(field, "validation.password_min")
	}
	if !strings.ContainsFunc(value, func(r rune) bool { return r >= '0' && r <= '9' }) {
		is.add(field, "validation.password_digit")
	}
	if !strings.ContainsAny(value, PasswordSpecialChars) {
		is.add(field, "validation.password_special")
	}
	if !strings.ContainsFunc(value, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		is.add(field, "validation.password_upper")
	}
	if !strings.ContainsFunc(value, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		is.add(field, "validation.password_lower")
	}
}

func checkPasswordMatch(is *Issues, password, confirm string) {
	if password != confirm {
		is.add(FieldPasswordConfirm, "validation.password_mismatch")
	}
}

func checkUsername(is *Issues, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		is.add(field, "validation.username_required")
		return
	}
	n := utf8.RuneCountInString(value)
	if n < UsernameMinLength || n > UsernameMaxLength || strings.ContainsFunc(value, unicode.IsControl) {
		is.add(field, "validation.username_length")
	}
}

func checkMinRunes(is *Issues, field, value string, minLen int, key string) {
	if utf8.RuneCountInString(strings.TrimSpace(value)) < minLen {
		is.add(field, key)
	}
}

// parseAbsoluteURL returns the URL if raw is an absolute http(s) URL.
func parseAbsoluteURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, false
	}
	return u, true
}

// checkUnsplashImage accepts an empty value or an absolute URL on the
// unsplash image host.
func checkUnsplashImage(is *Issues, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	u, ok := parseAbsoluteURL(value)
	if !ok {
		is.add(field, "validation.image_invalid")
		return
	}
	if u.Hostname() != UnsplashHost {
		is.add(field, "validation.image_unsplash")
	}
}

// NeedsAvailabilityCheck reports whether a username is long enough for the
// "please check availability" hint to apply.
func NeedsAvailabilityCheck(username string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(username)) >= UsernameMinLength
}
