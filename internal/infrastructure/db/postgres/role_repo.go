package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/identity"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

type RoleRepo struct {
	db *sql.DB
}

func NewRoleRepo(db *sql.DB) *RoleRepo {
	return &RoleRepo{db: db}
}

// RolesForUser returns role names in whatever order the join yields them.
func (r *RoleRepo) RolesForUser(ctx context.Context, userID int64) ([]string, error) {
	const q = `
SELECT r.name
FROM "Roles" r
JOIN "UserRoles" ur ON r.id = ur.role_id
WHERE ur.user_id = $1;
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

func (r *RoleRepo) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	const q = `
SELECT EXISTS (
    SELECT 1 FROM "UserRoles" WHERE user_id = $1 AND role_id = $2
);
`
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, userID, domain.RoleIDAdmin).Scan(&ok); err != nil {
		return false, domain.ErrDBUnavailable(err)
	}
	return ok, nil
}

// RoleAggregateForUser joins the user to its roles and folds the names into
// one comma separated column. Inner joins: no role rows means no result row.
func (r *RoleRepo) RoleAggregateForUser(ctx context.Context, userID int64) (identity.RoleAggregate, error) {
	const q = `
SELECT u.id, u.uuid, u.email, u.created_at, u.updated_at, string_agg(r.name, ',') AS role_names
FROM "Users" u
INNER JOIN "UserRoles" ur ON ur.user_id = u.id
INNER JOIN "Roles" r ON r.id = ur.role_id
WHERE u.id = $1
GROUP BY u.id;
`
	var (
		ur    userRow
		names string
	)
	err := r.db.QueryRowContext(ctx, q, userID).Scan(append(ur.dest(), &names)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.RoleAggregate{}, domain.ErrUserNotFound()
		}
		return identity.RoleAggregate{}, domain.ErrDBUnavailable(err)
	}
	return identity.RoleAggregate{User: toDomainUser(ur), RoleNames: names}, nil
}

// AssignRole is idempotent: an existing grant is left untouched.
func (r *RoleRepo) AssignRole(ctx context.Context, userID int64, roleName string) error {
	roleID, ok := domain.RoleIDByName(roleName)
	if !ok {
		return domain.ErrInvalidRole(roleName)
	}

	const q = `
INSERT INTO "UserRoles" (user_id, role_id)
VALUES ($1, $2)
ON CONFLICT (user_id, role_id) DO NOTHING;
`
	if _, err := r.db.ExecContext(ctx, q, userID, roleID); err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound()
		}
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
