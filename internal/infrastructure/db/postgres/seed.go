package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/logger"
)

type SeederUsers interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

type SeederRoles interface {
	AssignRole(ctx context.Context, userID int64, roleName string) error
}

type SeedUser struct {
	Email string
	Roles []string
}

// FixtureUsers is the dev data set: one admin, one plain member, one owner.
func FixtureUsers() []SeedUser {
	return []SeedUser{
		{Email: "admin@example.com", Roles: []string{domain.RoleAdmin, domain.RoleMember, domain.RoleOwner}},
		{Email: "member@example.com", Roles: []string{domain.RoleMember}},
		{Email: "user@example.com", Roles: []string{domain.RoleOwner, domain.RoleMember}},
	}
}

// SeedUsers creates the fixture users and their roles. It is restart safe:
// existing users are reused and existing grants are left alone.
func SeedUsers(ctx context.Context, users SeederUsers, roles SeederRoles) ([]domain.User, error) {
	out := make([]domain.User, 0, len(FixtureUsers()))

	for _, s := range FixtureUsers() {
		u, err := users.GetByEmail(ctx, s.Email)
		if domain.Is(err, "user_not_found") {
			u, err = users.Create(ctx, domain.User{UUID: uuid.NewString(), Email: s.Email})
		}
		if err != nil {
			return out, err
		}

		for _, role := range s.Roles {
			if err := roles.AssignRole(ctx, u.ID, role); err != nil {
				return out, err
			}
		}
		out = append(out, u)
	}

	logger.Logger.Info().Int("users", len(out)).Msg("fixture users seeded")
	return out, nil
}
