package http_handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/identity"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/metrics"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/response"
)

type UsersHandler struct {
	svc *identity.Service
}

func NewUsersHandler(svc *identity.Service) *UsersHandler {
	return &UsersHandler{svc: svc}
}

// Self handles GET /v0/users/self
func (h *UsersHandler) Self(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	id, err := h.svc.ResolveSelf(r.Context(), principal)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.NewSelfView(id))
}

// ByID handles GET /v0/users/{userId}. Admins only.
func (h *UsersHandler) ByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	targetID, err := dto.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		// a malformed id is only reported back to admins
		err = h.gateInvalidID(r, principal, err)
		metrics.LookupDecisionsTotal.WithLabelValues(lookupDecision(err)).Inc()
		response.WriteError(w, r, err)
		return
	}

	id, err := h.svc.ResolveByID(r.Context(), principal, targetID)
	metrics.LookupDecisionsTotal.WithLabelValues(lookupDecision(err)).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.NewUserView(id))
}

func (h *UsersHandler) gateInvalidID(r *http.Request, principal domain.User, parseErr error) error {
	admin, err := h.svc.IsAdmin(r.Context(), principal.ID)
	if err != nil {
		return err
	}
	if !admin {
		return domain.ErrUnauthorized()
	}
	return parseErr
}

// not_found and validation errors are only raised once the gate has let the caller through
func lookupDecision(err error) string {
	if err == nil {
		return "allowed"
	}
	switch domain.KindOf(err) {
	case domain.KindUnauthorized:
		return "denied"
	case domain.KindNotFound, domain.KindValidation:
		return "allowed"
	default:
		return "error"
	}
}
