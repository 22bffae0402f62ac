// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "database/sql"

// Institution control types.
const (
	ControlPublic      = "public"
	ControlPrivate     = "private"
	ControlProprietary = "proprietary"
)

// University is a row of the admissions dataset.
type University struct {
	UnitID              int64           `json:"unit_id"`
	Name                string          `json:"name"`
	Control             string          `json:"control"`
	City                string          `json:"city"`
	State               string          `json:"state"`
	Website             string          `json:"website"`
	LogoURL             string          `json:"logo_url"`
	AcceptanceRate      sql.NullFloat64 `json:"-"`
	RetentionRate       sql.NullFloat64 `json:"-"`
	UndergradTotal      sql.NullInt64   `json:"-"`
	TuitionNonResident  sql.NullInt64   `json:"-"`
	ApplicationDeadline string          `json:"application_deadline"`
	HasEarlyDecision    bool            `json:"has_early_decision"`
	HasEarlyAction      bool            `json:"has_early_action"`
}
