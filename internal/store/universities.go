// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/olegiv/eduportal/internal/model"
)

const universityColumns = `unit_id, name, control, city, state, website, logo_url, acceptance_rate, retention_rate,
	undergrad_total, tuition_non_resident, application_deadline, has_early_decision, has_early_action`

// universitySortColumns whitelists ORDER BY targets.
var universitySortColumns = map[string]string{
	"name":       "name",
	"acceptance": "acceptance_rate",
	"tuition":    "tuition_non_resident",
	"retention":  "retention_rate",
	"size":       "undergrad_total",
}

// UniversityFilter narrows a university search. Zero values disable a filter.
type UniversityFilter struct {
	Query         string
	Control       string
	State         string
	MinAcceptance sql.NullFloat64
	MaxAcceptance sql.NullFloat64
	Sort          string
	Desc          bool
	Limit         int
	Offset        int
}

func scanUniversity(row interface{ Scan(...any) error }) (model.University, error) {
	var u model.University
	err := row.Scan(&u.UnitID, &u.Name, &u.Control, &u.City, &u.State, &u.Website, &u.LogoURL,
		&u.AcceptanceRate, &u.RetentionRate, &u.UndergradTotal, &u.TuitionNonResident,
		&u.ApplicationDeadline, &u.HasEarlyDecision, &u.HasEarlyAction)
	return u, err
}

// UpsertUniversity inserts or replaces a university row.
func (q *Queries) UpsertUniversity(ctx context.Context, u model.University) error {
	_, err := q.exec(ctx, `INSERT INTO universities (`+universityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (unit_id) DO UPDATE SET
			name = excluded.name, control = excluded.control, city = excluded.city, state = excluded.state,
			website = excluded.website, logo_url = excluded.logo_url, acceptance_rate = excluded.acceptance_rate,
			retention_rate = excluded.retention_rate, undergrad_total = excluded.undergrad_total,
			tuition_non_resident = excluded.tuition_non_resident, application_deadline = excluded.application_deadline,
			has_early_decision = excluded.has_early_decision, has_early_action = excluded.has_early_action`,
		u.UnitID, u.Name, u.Control, u.City, u.State, u.Website, u.LogoURL, u.AcceptanceRate, u.RetentionRate,
		u.UndergradTotal, u.TuitionNonResident, u.ApplicationDeadline, u.HasEarlyDecision, u.HasEarlyAction)
	return wrapErr("upserting university", err)
}

// GetUniversity returns a single university by unit id.
func (q *Queries) GetUniversity(ctx context.Context, unitID int64) (model.University, error) {
	u, err := scanUniversity(q.queryRow(ctx, `SELECT `+universityColumns+` FROM universities WHERE unit_id = ?`, unitID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.University{}, err
		}
		return model.University{}, wrapErr("getting university", err)
	}
	return u, nil
}

func (f UniversityFilter) where() (string, []any) {
	var clauses []string
	var args []any
	if f.Query != "" {
		clauses = append(clauses, "(LOWER(name) LIKE ? OR LOWER(city) LIKE ?)")
		pattern := "%" + strings.ToLower(f.Query) + "%"
		args = append(args, pattern, pattern)
	}
	if f.Control != "" {
		clauses = append(clauses, "control = ?")
		args = append(args, f.Control)
	}
	if f.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, strings.ToUpper(f.State))
	}
	if f.MinAcceptance.Valid {
		clauses = append(clauses, "acceptance_rate >= ?")
		args = append(args, f.MinAcceptance.Float64)
	}
	if f.MaxAcceptance.Valid {
		clauses = append(clauses, "acceptance_rate <= ?")
		args = append(args, f.MaxAcceptance.Float64)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// SearchUniversities returns one page of matching universities and the
// total number of matches.
func (q *Queries) SearchUniversities(ctx context.Context, f UniversityFilter) ([]model.University, int64, error) {
	where, args := f.where()

	var total int64
	if err := q.queryRow(ctx, `SELECT COUNT(*) FROM universities`+where, args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("counting universities", err)
	}

	col, ok := universitySortColumns[f.Sort]
	if !ok {
		col = "name"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	// NULL metrics always sort last
	order := fmt.Sprintf(" ORDER BY CASE WHEN %s IS NULL THEN 1 ELSE 0 END, %s %s, unit_id ASC", col, col, dir)

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	pageArgs := append(append([]any{}, args...), limit, f.Offset)
	rows, err := q.query(ctx, `SELECT `+universityColumns+` FROM universities`+where+order+` LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, wrapErr("searching universities", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.University
	for rows.Next() {
		u, err := scanUniversity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning university: %w", err)
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}
