package middleware

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

type ctxKey string

const ctxPrincipal ctxKey = "principal"

func WithPrincipal(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, ctxPrincipal, u)
}

// PrincipalFromContext returns the user attached by Auth.
func PrincipalFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxPrincipal).(domain.User)
	return u, ok && u.ID > 0
}
