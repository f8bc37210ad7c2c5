package http_handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/identity"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/middleware"
)

// mustReadJSON decodes JSON from r into out.
// If the body is a {"data": ...} envelope, out receives the inner value.
func mustReadJSON(t *testing.T, r io.Reader, out any) {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	wrapped := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 {
		if err := json.Unmarshal(wrapped.Data, out); err != nil {
			t.Fatalf("decode wrapped.data failed; body=%s err=%v", string(raw), err)
		}
		return
	}

	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode json failed; body=%s", string(raw))
	}
}

// withPrincipal does what the Auth middleware would.
func withPrincipal(req *http.Request, u domain.User) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), u))
}

// withURLParam injects chi URL param (e.g. /users/{userId}) into request context.
func withURLParam(req *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)

	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

type fixture struct {
	store                          *memory.Store
	svc                            *identity.Service
	admin, member, owner, roleless domain.User
}

// newFixture seeds admin{admin,member,owner}, member{member},
// owner{owner,member} and a user without roles.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	mk := func(uuid, email string, roles ...string) domain.User {
		u, err := store.Create(ctx, domain.User{UUID: uuid, Email: email})
		if err != nil {
			t.Fatalf("create %s: %v", email, err)
		}
		for _, r := range roles {
			if err := store.AssignRole(ctx, u.ID, r); err != nil {
				t.Fatalf("assign %s to %s: %v", r, email, err)
			}
		}
		return u
	}

	f := &fixture{store: store}
	f.admin = mk("uuid-admin", "admin@example.com", domain.RoleAdmin, domain.RoleMember, domain.RoleOwner)
	f.member = mk("uuid-member", "member@example.com", domain.RoleMember)
	f.owner = mk("uuid-owner", "user@example.com", domain.RoleOwner, domain.RoleMember)
	f.roleless = mk("uuid-none", "nobody@example.com")

	f.svc = identity.NewService(store, store, nil, memory.NewNoopPublisher())
	return f
}
