// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strings"

	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/render"
)

// formValues copies the named fields of a parsed form. Password fields are
// never echoed back.
func formValues(r *http.Request, fields ...string) map[string]string {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), "password") {
			continue
		}
		values[f] = r.PostFormValue(f)
	}
	return values
}

// formWithError attaches a failure to the form: to its field when it has
// one, otherwise as a form-level message.
func formWithError(values map[string]string, lang string, err *dal.Error) render.Form {
	form := render.Form{Values: values, Errors: map[string]string{}}
	msg := dal.ErrorMessage(lang, err)
	if err != nil && err.Field != "" {
		form.Errors[err.Field] = msg
	} else {
		form.Error = msg
	}
	return form
}

// checkbox reads an HTML checkbox.
func checkbox(r *http.Request, name string) bool {
	switch r.PostFormValue(name) {
	case "on", "true", "1":
		return true
	}
	return false
}

// optionalBool reads a tri-state form value: absent or empty means unchanged.
func optionalBool(r *http.Request, name string) *bool {
	var v bool
	switch r.PostFormValue(name) {
	case "true", "on", "1":
		v = true
	case "false", "off", "0":
		v = false
	default:
		return nil
	}
	return &v
}
