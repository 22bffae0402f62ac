// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package dal is the data-access boundary between actions and the backend.
// Every operation yields a Result: success with data, or a typed failure.
package dal

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

// Failure kinds.
const (
	KindNoUser     Kind = "no-user"
	KindNoAccess   Kind = "no-access"
	KindBackend    Kind = "supabase-error"
	KindUnknown    Kind = "unknown-error"
	KindValidation Kind = "validation-error"
)

// Error is a typed failure. Err holds the underlying cause for backend and
// unknown failures. Message, when set, is already localized and is shown to
// the user as-is.
type Error struct {
	Kind         Kind
	RequiredRole string
	Field        string
	Message      string
	Err          error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.RequiredRole != "":
		return fmt.Sprintf("%s: requires %s", e.Kind, e.RequiredRole)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the backend error code for backend failures.
func (e *Error) Code() string {
	var coded interface{ ErrorCode() string }
	if e.Err != nil && errors.As(e.Err, &coded) {
		return coded.ErrorCode()
	}
	return ""
}

// NoUser is returned when the caller is not signed in.
func NoUser() *Error {
	return &Error{Kind: KindNoUser}
}

// NoAccess is returned when the caller lacks role.
func NoAccess(role string) *Error {
	return &Error{Kind: KindNoAccess, RequiredRole: role}
}

// Backend wraps a backend or database failure carrying an error code.
func Backend(err error) *Error {
	return &Error{Kind: KindBackend, Err: err}
}

// Unknown wraps an unexpected failure.
func Unknown(err error) *Error {
	return &Error{Kind: KindUnknown, Err: err}
}

// Invalid is a validation failure attached to field.
func Invalid(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// WithMessage returns a copy of e with a user-facing message.
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

// Result is the outcome of a DAL operation. Exactly one of Data (when
// Success) or Err (otherwise) is meaningful.
type Result[T any] struct {
	Success bool
	Data    T
	Message string
	Err     *Error
}

// Ok wraps data as a success.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// OkMessage wraps data as a success with a user-facing message.
func OkMessage[T any](data T, msg string) Result[T] {
	return Result[T]{Success: true, Data: data, Message: msg}
}

// Fail wraps err as a failure. A nil err becomes an unknown failure so a
// Result is never both unsuccessful and error-free.
func Fail[T any](err *Error) Result[T] {
	if err == nil {
		err = Unknown(errors.New("unspecified failure"))
	}
	return Result[T]{Err: err}
}

// Forward re-types a failed result.
func Forward[T, U any](r Result[U]) Result[T] {
	return Fail[T](r.Err)
}

// Unwrap returns the data and the failure as an error.
func (r Result[T]) Unwrap() (T, error) {
	if r.Success {
		return r.Data, nil
	}
	var zero T
	return zero, r.Err
}

// Is reports whether r failed with kind.
func (r Result[T]) Is(kind Kind) bool {
	return !r.Success && r.Err != nil && r.Err.Kind == kind
}

// ThrowableError lets an operation abort with a specific failure. DbOperation
// unwraps it whether it is returned or panicked.
type ThrowableError struct {
	Err *Error
}

func (t *ThrowableError) Error() string {
	if t.Err == nil {
		return "dal: unspecified failure"
	}
	return "dal: " + t.Err.Error()
}

func (t *ThrowableError) Unwrap() error {
	if t.Err == nil {
		return nil
	}
	return t.Err
}

// Throw returns err as a ThrowableError.
func Throw(err *Error) error {
	return &ThrowableError{Err: err}
}
