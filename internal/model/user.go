// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including Profile, BlogPost, NewsItem, University and Event.
package model

import (
	"database/sql"
	"time"
)

// Profile roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidRoles lists the roles a profile may hold.
var ValidRoles = []string{RoleAdmin, RoleUser}

// IsValidRole reports whether role is a known profile role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Profile is the application-side record of a backend identity.
// DisplayName is unique across all profiles.
type Profile struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"display_name"`
	Role        string         `json:"role"`
	AvatarURL   sql.NullString `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsAdmin returns true if the profile has admin role.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Avatar returns the avatar URL or an empty string.
func (p *Profile) Avatar() string {
	if p.AvatarURL.Valid {
		return p.AvatarURL.String
	}
	return ""
}
