package postgres

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

type userRow struct {
	ID        int64
	UUID      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (ur *userRow) dest() []any {
	return []any{&ur.ID, &ur.UUID, &ur.Email, &ur.CreatedAt, &ur.UpdatedAt}
}

func toDomainUser(ur userRow) domain.User {
	return domain.User{
		ID:        ur.ID,
		UUID:      ur.UUID,
		Email:     ur.Email,
		CreatedAt: ur.CreatedAt,
		UpdatedAt: ur.UpdatedAt,
	}
}
