package dto

import (
	"strconv"
	"strings"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

// ParseUserID validates the {userId} path segment.
func ParseUserID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, domain.ErrMissingField("userId")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidField("userId", "must be a positive integer")
	}
	return id, nil
}
