// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dal

import "github.com/olegiv/eduportal/internal/model"

// Capability names a permission checked by RequireAuth and the page gate.
type Capability string

// Capabilities.
const (
	CapBlogManage    Capability = "blog:manage"
	CapUsersManage   Capability = "users:manage"
	CapDashboardView Capability = "dashboard:view"
	CapPremiumRead   Capability = "premium:read"
	CapAccountManage Capability = "account:manage"
)

// Policy maps roles to capabilities. Roles listed in admins hold every
// capability.
type Policy struct {
	admins map[string]bool
	grants map[string]map[Capability]bool
	order  []string
}

// DefaultPolicy grants admins everything and members the reader set.
func DefaultPolicy() Policy {
	p := Policy{
		admins: map[string]bool{model.RoleAdmin: true},
		grants: map[string]map[Capability]bool{},
		order:  []string{model.RoleAdmin, model.RoleUser},
	}
	p.grant(model.RoleUser, CapDashboardView, CapPremiumRead, CapAccountManage)
	return p
}

func (p Policy) grant(role string, caps ...Capability) {
	set, ok := p.grants[role]
	if !ok {
		set = map[Capability]bool{}
		p.grants[role] = set
	}
	for _, c := range caps {
		set[c] = true
	}
}

// Allows reports whether role holds c. The empty role holds nothing.
func (p Policy) Allows(role string, c Capability) bool {
	if role == "" {
		return false
	}
	if p.admins[role] {
		return true
	}
	return p.grants[role][c]
}

// RoleFor returns the least privileged role holding c, for messages.
func (p Policy) RoleFor(c Capability) string {
	for i := len(p.order) - 1; i >= 0; i-- {
		if p.Allows(p.order[i], c) {
			return p.order[i]
		}
	}
	return model.RoleAdmin
}
