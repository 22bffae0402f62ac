// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dal

import "github.com/olegiv/eduportal/internal/i18n"

// ErrorMessage returns the localized user-facing text for err. An explicit
// Message on err wins.
func ErrorMessage(lang string, err *Error) string {
	if err == nil {
		return i18n.T(lang, "error.default")
	}
	if err.Message != "" {
		return err.Message
	}
	switch err.Kind {
	case KindNoUser:
		return i18n.T(lang, "error.no_user")
	case KindNoAccess:
		if err.RequiredRole != "" {
			return i18n.T(lang, "error.no_access", i18n.T(lang, "role."+err.RequiredRole))
		}
		return i18n.T(lang, "error.no_access_generic")
	case KindBackend:
		return i18n.T(lang, "error.backend")
	case KindUnknown:
		return i18n.T(lang, "error.unknown")
	case KindValidation:
		return i18n.T(lang, "validation.invalid_input")
	default:
		return i18n.T(lang, "error.default")
	}
}
