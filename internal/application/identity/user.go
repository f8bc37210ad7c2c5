package identity

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

// CreateUser validates the email, assigns a fresh external id and stores the user.
// The user.created event is best effort: a publish failure is audited but
// does not undo the creation.
func (s *Service) CreateUser(ctx context.Context, email string) (domain.User, error) {
	const action = "identity.create_user"

	email = domain.NormalizeEmail(email)

	if err := domain.ValidateEmail(email).Err(); err != nil {
		s.audit(ctx, action, map[string]string{"email": email, "result": "error", "error_code": domainCode(err)})
		return domain.User{}, err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return domain.User{}, domain.ErrRandomFailed(err)
	}

	created, err := s.users.Create(ctx, domain.User{UUID: id.String(), Email: email})
	if err != nil {
		s.audit(ctx, action, map[string]string{"email": email, "result": "error", "error_code": domainCode(err)})
		return domain.User{}, err
	}

	fields := map[string]string{
		"user_id": strconv.FormatInt(created.ID, 10),
		"email":   created.Email,
		"result":  "ok",
	}
	if perr := s.pub.PublishUserCreated(ctx, UserCreatedEvent{
		UserID:    created.ID,
		UserUUID:  created.UUID,
		Email:     created.Email,
		CreatedAt: created.CreatedAt,
	}); perr != nil {
		fields["publish_error"] = domainCode(perr)
	}
	s.audit(ctx, action, fields)

	return created, nil
}

// GrantRole attaches a role to an existing user. Granting a role the user
// already holds is a no-op.
func (s *Service) GrantRole(ctx context.Context, userID int64, roleName string) error {
	const action = "identity.grant_role"

	roleName = strings.ToLower(strings.TrimSpace(roleName))
	audit := func(result string, err error) {
		fields := map[string]string{
			"user_id": strconv.FormatInt(userID, 10),
			"role":    roleName,
			"result":  result,
		}
		if err != nil {
			fields["error_code"] = domainCode(err)
		}
		s.audit(ctx, action, fields)
	}

	if s.granter == nil {
		err := domain.ErrInternal(nil)
		audit("error", err)
		return err
	}
	if !domain.IsValidRole(roleName) {
		err := domain.ErrInvalidRole(roleName)
		audit("error", err)
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		audit("error", err)
		return err
	}
	if err := s.granter.AssignRole(ctx, userID, roleName); err != nil {
		audit("error", err)
		return err
	}

	audit("ok", nil)
	return nil
}
