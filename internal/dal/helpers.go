// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dal

import (
	"context"
	"errors"
	"fmt"
)

// Classify maps err to a typed failure: a ThrowableError yields its carried
// failure, an error exposing ErrorCode() is a backend failure, anything
// else is unknown.
func Classify(err error) *Error {
	var thrown *ThrowableError
	if errors.As(err, &thrown) && thrown.Err != nil {
		return thrown.Err
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return Backend(err)
	}
	return Unknown(err)
}

// DbOperation runs op and wraps its outcome. It never panics: a panic in op
// is recovered and classified like a returned error.
func DbOperation[T any](ctx context.Context, op func(ctx context.Context) (T, error)) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			switch v := p.(type) {
			case *ThrowableError:
				res = Fail[T](v.Err)
			case error:
				res = Fail[T](Classify(v))
			default:
				res = Fail[T](Unknown(fmt.Errorf("panic: %v", v)))
			}
		}
	}()

	data, err := op(ctx)
	if err != nil {
		return Fail[T](Classify(err))
	}
	return Ok(data)
}

// AuthOption restricts RequireAuth.
type AuthOption func(*authOptions)

type authOptions struct {
	role       string
	capability Capability
}

// WithRole requires the caller's profile role to equal role.
func WithRole(role string) AuthOption {
	return func(o *authOptions) { o.role = role }
}

// WithCapability requires the caller's role to hold c.
func WithCapability(c Capability) AuthOption {
	return func(o *authOptions) { o.capability = c }
}

// RequireAuth resolves the caller through g and runs op only for a signed-in
// caller passing the options. op's result is returned unchanged.
func RequireAuth[T any](ctx context.Context, g *Guard, op func(ctx context.Context, u *User) Result[T], opts ...AuthOption) Result[T] {
	var o authOptions
	for _, opt := range opts {
		opt(&o)
	}

	user, err := g.CurrentUser(ctx)
	if err != nil {
		return Fail[T](Classify(err))
	}
	if user == nil {
		return Fail[T](NoUser())
	}
	if o.role != "" && user.Role != o.role {
		return Fail[T](NoAccess(o.role))
	}
	if o.capability != "" && !g.policy.Allows(user.Role, o.capability) {
		return Fail[T](NoAccess(g.policy.RoleFor(o.capability)))
	}
	return op(ctx, user)
}
