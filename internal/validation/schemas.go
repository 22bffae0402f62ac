// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package validation

import "strings"

// SignIn is the sign-in form.
type SignIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the form.
func (f SignIn) Validate() Issues {
	var is Issues
	checkEmail(&is, FieldEmail, f.Email)
	checkPassword(&is, FieldPassword, f.Password)
	return is
}

// SignUp is the registration form.
type SignUp struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Username        string `json:"username"`
}

// Validate checks the form. A confirmation mismatch is reported on
// passwordConfirm even when the password itself is valid.
func (f SignUp) Validate() Issues {
	var is Issues
	checkEmail(&is, FieldEmail, f.Email)
	checkPassword(&is, FieldPassword, f.Password)
	checkPasswordMatch(&is, f.Password, f.PasswordConfirm)
	checkUsername(&is, FieldUsername, f.Username)
	return is
}

// ForgotPassword is the recovery request form.
type ForgotPassword struct {
	Email string `json:"email"`
}

// Validate checks the form.
func (f ForgotPassword) Validate() Issues {
	var is Issues
	checkEmail(&is, FieldEmail, f.Email)
	return is
}

// ResetPassword is the new-password form.
type ResetPassword struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// Validate checks the form.
func (f ResetPassword) Validate() Issues {
	var is Issues
	checkPassword(&is, FieldPassword, f.Password)
	checkPasswordMatch(&is, f.Password, f.PasswordConfirm)
	return is
}

// BlogForm is the admin blog editor form.
type BlogForm struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	ImageURL    string `json:"imageURL"`
	IsPublished bool   `json:"isPublished"`
	IsPremium   bool   `json:"isPremium"`
}

// Validate checks the form.
func (f BlogForm) Validate() Issues {
	var is Issues
	checkMinRunes(&is, FieldTitle, f.Title, BlogTextMinLength, "validation.title_min")
	checkMinRunes(&is, FieldContent, f.Content, BlogTextMinLength, "validation.content_min")
	checkUnsplashImage(&is, FieldImageURL, f.ImageURL)
	return is
}

// Normalize trims the text fields.
func (f BlogForm) Normalize() BlogForm {
	f.Title = strings.TrimSpace(f.Title)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	return f
}

// Profile is the account settings form.
type Profile struct {
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarURL"`
}

// Validate checks the form.
func (f Profile) Validate() Issues {
	var is Issues
	checkUsername(&is, FieldDisplayName, f.DisplayName)
	if v := strings.TrimSpace(f.AvatarURL); v != "" {
		if _, ok := parseAbsoluteURL(v); !ok {
			is.add(FieldAvatarURL, "validation.avatar_url")
		}
	}
	return is
}
