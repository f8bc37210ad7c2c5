package dto

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

// -------- Self --------

// SelfView is what a caller sees about itself. The numeric id and
// updatedAt stay server side.
type SelfView struct {
	UUID      string    `json:"uuid"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	Roles     []string  `json:"roles"`
}

func NewSelfView(id domain.Identity) SelfView {
	return SelfView{
		UUID:      id.UUID,
		Email:     id.Email,
		CreatedAt: id.CreatedAt,
		Roles:     nonNil(id.Roles),
	}
}

// -------- Lookup (admin) --------

type UserView struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Roles     []string  `json:"roles"`
}

func NewUserView(id domain.Identity) UserView {
	return UserView{
		ID:        id.ID,
		UUID:      id.UUID,
		Email:     id.Email,
		CreatedAt: id.CreatedAt,
		UpdatedAt: id.UpdatedAt,
		Roles:     nonNil(id.Roles),
	}
}

func nonNil(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
