package identity

import (
	"context"
	"strconv"
	"strings"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

// ResolveSelf enriches the authenticated principal with its roles.
// There is no authorization check: a caller may always see itself.
func (s *Service) ResolveSelf(ctx context.Context, principal domain.User) (domain.Identity, error) {
	roles, err := s.roles.RolesForUser(ctx, principal.ID)
	if err != nil {
		return domain.Identity{}, err
	}
	if roles == nil {
		roles = []string{}
	}
	return domain.Identity{User: principal, Roles: roles}, nil
}

func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.roles.IsAdmin(ctx, userID)
}

// ResolveByID returns another user's identity. Only admins may call it;
// for anyone else the target is never queried.
//
// A target holding no roles is reported as not found, because the
// aggregate is an inner join over user roles.
func (s *Service) ResolveByID(ctx context.Context, principal domain.User, targetID int64) (domain.Identity, error) {
	const action = "identity.lookup"

	audit := func(result string, err error) {
		fields := map[string]string{
			"actor_id":  strconv.FormatInt(principal.ID, 10),
			"target_id": strconv.FormatInt(targetID, 10),
			"result":    result,
		}
		if err != nil {
			fields["error_code"] = domainCode(err)
		}
		s.audit(ctx, action, fields)
	}

	admin, err := s.roles.IsAdmin(ctx, principal.ID)
	if err != nil {
		audit("error", err)
		return domain.Identity{}, err
	}
	if !admin {
		err := domain.ErrUnauthorized()
		audit("denied", err)
		return domain.Identity{}, err
	}

	agg, err := s.roles.RoleAggregateForUser(ctx, targetID)
	if err != nil {
		audit("error", err)
		return domain.Identity{}, err
	}

	audit("allowed", nil)
	return domain.Identity{User: agg.User, Roles: SplitRoleAggregate(agg.RoleNames)}, nil
}

// SplitRoleAggregate turns "admin, member,owner" into [admin member owner].
func SplitRoleAggregate(agg string) []string {
	parts := strings.Split(agg, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
