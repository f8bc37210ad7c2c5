package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/identity"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/metrics"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (identity.TokenClaims, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// UserReader loads the principal named by a verified token.
type UserReader interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
}

// Auth verifies Authorization: Bearer <access_token>, loads the user the
// token names and injects it into the request context as the principal.
// The stored uuid must match the token's, so a recycled id cannot reuse
// an old token.
func Auth(verifier TokenVerifier, users UserReader, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fail := func(err error) {
				metrics.AuthResultsTotal.WithLabelValues(authResult(err)).Inc()
				writeErr(w, r, err)
			}

			h := r.Header.Get("Authorization")
			if h == "" {
				fail(domain.ErrTokenMissing())
				return
			}

			parts := strings.SplitN(h, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				fail(domain.ErrTokenInvalid())
				return
			}

			raw := strings.TrimSpace(parts[1])
			if raw == "" {
				fail(domain.ErrTokenInvalid())
				return
			}

			claims, err := verifier.VerifyAccessToken(raw)
			if err != nil {
				fail(err)
				return
			}
			if claims.UserID <= 0 || claims.UserUUID == "" {
				fail(domain.ErrTokenInvalid())
				return
			}

			u, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if domain.KindOf(err) == domain.KindNotFound {
					// the subject is gone; the token is no longer meaningful
					fail(domain.ErrTokenInvalid())
					return
				}
				fail(err)
				return
			}
			if u.UUID != claims.UserUUID {
				fail(domain.ErrTokenInvalid())
				return
			}

			metrics.AuthResultsTotal.WithLabelValues("ok").Inc()
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), u)))
		})
	}
}

func authResult(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Kind == domain.KindAuth {
		return de.Code
	}
	return "error"
}
