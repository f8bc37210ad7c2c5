package identity

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

/*
UserRepo
--------
Persistence port for users.
Only describes WHAT the identity service needs, not HOW it's stored.
*/
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

/*
RoleStore
---------
Read-only view over the user -> role mapping.

  - RolesForUser: role names joined for one user, in natural join order.
    A roleless user yields an empty slice, never an error.
  - IsAdmin: true iff the user holds role code 1.
  - RoleAggregateForUser: the user row plus its role names joined by ","
    (inner join, so a roleless user is reported as not found).
*/
type RoleStore interface {
	RolesForUser(ctx context.Context, userID int64) ([]string, error)
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	RoleAggregateForUser(ctx context.Context, userID int64) (RoleAggregate, error)
}

// RoleAggregate is one row of the grouped user/role query.
type RoleAggregate struct {
	User      domain.User
	RoleNames string
}

// RoleGranter writes user/role rows. Only operator tooling uses it.
type RoleGranter interface {
	AssignRole(ctx context.Context, userID int64, roleName string) error
}

/*
TokenIssuer / TokenVerifier
---------------------------
Access tokens are RS256 JWTs. The issuer holds the private key,
the verifier only the public one.
*/
type TokenClaims struct {
	UserID   int64
	UserUUID string
}

type TokenIssuer interface {
	IssueAccessToken(u domain.User) (string, error)
}

type TokenVerifier interface {
	VerifyAccessToken(token string) (TokenClaims, error)
}

/*
EventPublisher
--------------
Publishes identity lifecycle events.
*/
type EventPublisher interface {
	PublishUserCreated(ctx context.Context, evt UserCreatedEvent) error
}

type UserCreatedEvent struct {
	UserID    int64
	UserUUID  string
	Email     string
	CreatedAt time.Time
}
