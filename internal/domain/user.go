package domain

import (
	"strings"
	"time"
)

type User struct {
	ID        int64
	UUID      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity is a user together with the role names resolved for it.
type Identity struct {
	User
	Roles []string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
