package response

import (
	"net/http"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/pkg/reqctx"
)

// RequestIDFromContext extracts the id set by the RequestID middleware.
func RequestIDFromContext(r *http.Request) string {
	return reqctx.RequestID(r.Context())
}
