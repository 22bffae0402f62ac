// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON endpoints used by the browser scripts and
// other clients. Every response is a Result envelope.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/eduportal/internal/action"
	"github.com/olegiv/eduportal/internal/backend"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/handler"
	"github.com/olegiv/eduportal/internal/i18n"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// Handler serves the JSON API.
type Handler struct {
	actions  *action.Service
	sessions *scs.SessionManager
	lockout  handler.LoginGuard
	logger   *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(actions *action.Service, sessions *scs.SessionManager, lockout handler.LoginGuard, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{actions: actions, sessions: sessions, lockout: lockout, logger: logger}
}

// Envelope is the JSON form of a dal.Result.
type Envelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failure.
type ErrorBody struct {
	Type         string `json:"type"`
	Message      string `json:"message"`
	Code         string `json:"code,omitempty"`
	Field        string `json:"field,omitempty"`
	RequiredRole string `json:"requiredRole,omitempty"`
}

// StatusFor maps a failure to an HTTP status.
func StatusFor(err *dal.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.Kind {
	case dal.KindValidation:
		return http.StatusUnprocessableEntity
	case dal.KindNoUser:
		return http.StatusUnauthorized
	case dal.KindNoAccess:
		return http.StatusForbidden
	case dal.KindBackend:
		var be *backend.Error
		if errors.As(err, &be) {
			switch {
			case be.Status == http.StatusTooManyRequests:
				return http.StatusTooManyRequests
			case be.Status >= 400 && be.Status < 500:
				return http.StatusBadRequest
			}
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes a failure envelope.
func WriteError(w http.ResponseWriter, r *http.Request, err *dal.Error) {
	lang := i18n.FromContext(r.Context())
	body := &ErrorBody{Type: string(dal.KindUnknown), Message: dal.ErrorMessage(lang, err)}
	if err != nil {
		body.Type = string(err.Kind)
		body.Code = err.Code()
		body.Field = err.Field
		body.RequiredRole = err.RequiredRole
	}
	WriteJSON(w, StatusFor(err), Envelope{Success: false, Error: body})
}

// respond writes res, converting its data with view.
func respond[T any](w http.ResponseWriter, r *http.Request, res dal.Result[T], view func(T) any) {
	if !res.Success {
		WriteError(w, r, res.Err)
		return
	}
	var data any
	if view != nil {
		data = view(res.Data)
	}
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Message: res.Message, Data: data})
}

// decode reads a JSON body into v. A failure has been written when it
// returns false.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteError(w, r, dal.Invalid("", i18n.Tc(r.Context(), "validation.invalid_input")))
		return false
	}
	return true
}
