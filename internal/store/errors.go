// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUniqueViolation is matched by errors.Is when an insert or update hit a
// UNIQUE constraint.
var ErrUniqueViolation = errors.New("unique constraint violation")

// CodeUniqueViolation is the SQLSTATE reported for unique violations. SQLite
// unique failures are normalised to the same code.
const CodeUniqueViolation = "23505"

// sqlite extended result codes for constraint failures.
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// DBError is a driver error annotated with the failing operation and a
// portable error code.
type DBError struct {
	Op   string
	Code string
	Err  error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// ErrorCode returns the driver error code.
func (e *DBError) ErrorCode() string {
	return e.Code
}

// Unwrap exposes both the driver error and ErrUniqueViolation when applicable.
func (e *DBError) Unwrap() []error {
	if e.Code == CodeUniqueViolation {
		return []error{e.Err, ErrUniqueViolation}
	}
	return []error{e.Err}
}

type sqliteCoder interface {
	Code() int
}

// wrapErr classifies a driver error. Sentinel errors from database/sql pass
// through with the operation prefix so errors.Is keeps working.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &DBError{Op: op, Code: pgErr.Code, Err: err}
	}

	var sqlErr sqliteCoder
	if errors.As(err, &sqlErr) {
		code := sqlErr.Code()
		if code == sqliteConstraintUnique || code == sqliteConstraintPrimaryKey {
			return &DBError{Op: op, Code: CodeUniqueViolation, Err: err}
		}
		return &DBError{Op: op, Code: fmt.Sprintf("SQLITE_%d", code), Err: err}
	}

	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &DBError{Op: op, Code: CodeUniqueViolation, Err: err}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// IsUniqueViolation reports whether err was caused by a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}
