// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package action

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/olegiv/eduportal/internal/backend"
	"github.com/olegiv/eduportal/internal/cache"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/identity"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/store"
	"github.com/olegiv/eduportal/internal/util"
	"github.com/olegiv/eduportal/internal/validation"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// cachedProfile is the cache encoding of model.Profile, whose avatar field
// is not serialized.
type cachedProfile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toCached(p model.Profile) cachedProfile {
	return cachedProfile{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        p.Role,
		AvatarURL:   p.Avatar(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (c cachedProfile) profile() model.Profile {
	return model.Profile{
		ID:          c.ID,
		Email:       c.Email,
		DisplayName: c.DisplayName,
		Role:        c.Role,
		AvatarURL:   sql.NullString{String: c.AvatarURL, Valid: c.AvatarURL != ""},
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// ProfileReader loads profile rows.
type ProfileReader interface {
	GetProfile(ctx context.Context, id string) (model.Profile, error)
}

// Profiles is a read-through profile cache. It satisfies dal.ProfileSource.
// Missing profiles are not cached so a profile created later is seen at
// once.
type Profiles struct {
	src   ProfileReader
	cache *cache.Typed[cachedProfile]
}

// DefaultProfileTTL is used when no TTL is configured.
const DefaultProfileTTL = 5 * time.Minute

// NewProfiles creates a Profiles reader. A nil cache disables caching.
func NewProfiles(src ProfileReader, c cache.Cacher, ttl time.Duration) *Profiles {
	p := &Profiles{src: src}
	if c != nil {
		if ttl <= 0 {
			ttl = DefaultProfileTTL
		}
		p.cache = cache.NewTyped[cachedProfile](c, cache.NamespaceProfile, ttl)
	}
	return p
}

// GetProfile returns the profile for id or sql.ErrNoRows.
func (p *Profiles) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	if p.cache == nil {
		return p.src.GetProfile(ctx, id)
	}
	c, err := p.cache.GetOrLoad(ctx, id, func(ctx context.Context) (cachedProfile, error) {
		row, err := p.src.GetProfile(ctx, id)
		if err != nil {
			return cachedProfile{}, err
		}
		return toCached(row), nil
	})
	if err != nil {
		return model.Profile{}, err
	}
	return c.profile(), nil
}

// Forget drops the cached profile for id.
func (p *Profiles) Forget(ctx context.Context, id string) {
	if p.cache != nil {
		_ = p.cache.Delete(ctx, id)
	}
}

// CurrentProfile returns the caller's profile.
func (s *Service) CurrentProfile(ctx context.Context) dal.Result[model.Profile] {
	return dal.RequireAuth(ctx, s.guard, func(ctx context.Context, u *dal.User) dal.Result[model.Profile] {
		return dal.DbOperation(ctx, func(ctx context.Context) (model.Profile, error) {
			p, err := s.profiles.GetProfile(ctx, u.ID)
			if isNoRows(err) {
				return model.Profile{}, dal.Throw(dal.Invalid("", i18n.Tc(ctx, "user.not_found")))
			}
			return p, err
		})
	}, dal.WithCapability(dal.CapAccountManage))
}

// UpdateProfile changes the caller's display name and avatar.
func (s *Service) UpdateProfile(ctx context.Context, in validation.Profile) dal.Result[model.Profile] {
	return dal.RequireAuth(ctx, s.guard, func(ctx context.Context, u *dal.User) dal.Result[model.Profile] {
		lang := i18n.FromContext(ctx)
		if is := in.Validate(); !is.OK() {
			return invalid[model.Profile](lang, is, "validation.invalid_input")
		}
		name := strings.TrimSpace(in.DisplayName)
		avatar := strings.TrimSpace(in.AvatarURL)

		if name != u.DisplayName {
			taken, err := s.store.DisplayNameExists(ctx, name)
			if err != nil {
				return dal.Fail[model.Profile](dal.Classify(err))
			}
			if taken {
				return dal.Fail[model.Profile](dal.Invalid(validation.FieldDisplayName, i18n.T(lang, "auth.username_taken")))
			}
		}

		p, err := s.store.UpdateProfile(ctx, store.UpdateProfileParams{
			ID:          u.ID,
			DisplayName: name,
			AvatarURL:   util.NullStringFromValue(avatar),
			UpdatedAt:   s.now().UTC(),
		})
		switch {
		case store.IsUniqueViolation(err):
			return dal.Fail[model.Profile](dal.Invalid(validation.FieldDisplayName, i18n.T(lang, "auth.username_taken")))
		case isNoRows(err):
			return dal.Fail[model.Profile](dal.Invalid("", i18n.T(lang, "user.not_found")))
		case err != nil:
			return dal.Fail[model.Profile](dal.Classify(err))
		}

		s.profiles.Forget(ctx, u.ID)
		s.publish(ctx, identity.Event{Kind: identity.ProfileUpdated, UserID: u.ID, ActorID: u.ID})
		return dal.OkMessage(p, i18n.T(lang, "profile.updated"))
	}, dal.WithCapability(dal.CapAccountManage))
}

// UserList is a page of profiles.
type UserList struct {
	Profiles []model.Profile
	Total    int64
}

// ListUsers returns a page of profiles, newest first.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) dal.Result[UserList] {
	return dal.RequireAuth(ctx, s.guard, func(ctx context.Context, _ *dal.User) dal.Result[UserList] {
		return dal.DbOperation(ctx, func(ctx context.Context) (UserList, error) {
			profiles, err := s.store.ListProfiles(ctx, limit, offset)
			if err != nil {
				return UserList{}, err
			}
			total, err := s.store.CountProfiles(ctx)
			if err != nil {
				return UserList{}, err
			}
			return UserList{Profiles: profiles, Total: total}, nil
		})
	}, dal.WithCapability(dal.CapUsersManage))
}

// ChangeRole sets the role of another user.
func (s *Service) ChangeRole(ctx context.Context, userID, role string) dal.Result[struct{}] {
	return dal.RequireAuth(ctx, s.guard, func(ctx context.Context, u *dal.User) dal.Result[struct{}] {
		lang := i18n.FromContext(ctx)
		if !model.IsValidRole(role) {
			return dal.Fail[struct{}](dal.Invalid("role", i18n.T(lang, "user.invalid_role")))
		}
		if userID == u.ID {
			return dal.Fail[struct{}](dal.Invalid("", i18n.T(lang, "user.cannot_modify_self")))
		}

		err := s.store.UpdateProfileRole(ctx, userID, role)
		if isNoRows(err) {
			return dal.Fail[struct{}](dal.Invalid("", i18n.T(lang, "user.not_found")))
		}
		if err != nil {
			return dal.Fail[struct{}](dal.Classify(err))
		}

		s.profiles.Forget(ctx, userID)
		s.publish(ctx, identity.Event{Kind: identity.RoleChanged, UserID: userID, ActorID: u.ID,
			Attrs: map[string]string{"role": role}})
		return dal.OkMessage(struct{}{}, i18n.T(lang, "user.role_updated"))
	}, dal.WithCapability(dal.CapUsersManage))
}

// DeleteUser removes another user's backend account and profile. The
// backend account goes first so a failure leaves the profile in place.
func (s *Service) DeleteUser(ctx context.Context, userID string) dal.Result[struct{}] {
	return dal.RequireAuth(ctx, s.guard, func(ctx context.Context, u *dal.User) dal.Result[struct{}] {
		lang := i18n.FromContext(ctx)
		if userID == u.ID {
			return dal.Fail[struct{}](dal.Invalid("", i18n.T(lang, "user.cannot_modify_self")))
		}

		if s.admin != nil {
			err := s.admin.DeleteUser(ctx, userID)
			if err != nil && !backend.IsCode(err, backend.CodeUserNotFound) {
				return backendFailure[struct{}](lang, err, "error.backend")
			}
		}

		err := s.store.DeleteProfile(ctx, userID)
		if isNoRows(err) {
			return dal.Fail[struct{}](dal.Invalid("", i18n.T(lang, "user.not_found")))
		}
		if err != nil {
			return dal.Fail[struct{}](dal.Classify(err))
		}

		s.profiles.Forget(ctx, userID)
		s.publish(ctx, identity.Event{Kind: identity.UserDeleted, UserID: userID, ActorID: u.ID})
		return dal.OkMessage(struct{}{}, i18n.T(lang, "user.deleted"))
	}, dal.WithCapability(dal.CapUsersManage))
}
