package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

func TestResolveSelf_ReturnsAllRoles(t *testing.T) {
	t.Parallel()

	env := newSvcForTest()
	seedScenario(env)

	me, _ := env.users.GetByID(context.Background(), 3)
	id, err := env.svc.ResolveSelf(context.Background(), me)
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", id.Email)
	assert.ElementsMatch(t, []string{"owner", "member"}, id.Roles)
	assert.Zero(t, env.roles.isAdminCalls, "self lookup must not run the admin gate")
}

func TestResolveSelf_NoRoles_EmptyNotNil(t *testing.T) {
	t.Parallel()

	env := newSvcForTest()
	u := domain.User{ID: 9, UUID: "u9", Email: "lonely@example.com"}
	env.users.put(u)

	id, err := env.svc.ResolveSelf(context.Background(), u)
	require.NoError(t, err)
	require.NotNil(t, id.Roles)
	assert.Empty(t, id.Roles)
}

func TestResolveSelf_IsIdempotent(t *testing.T) {
	t.Parallel()

	env := newSvcForTest()
	seedScenario(env)
	me, _ := env.users.GetByID(context.Background(), 1)

	a, err := env.svc.ResolveSelf(context.Background(), me)
	require.NoError(t, err)
	b, err := env.svc.ResolveSelf(context.Background(), me)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestResolveSelf_StoreError_Propagates(t *testing.T) {
	t.Parallel()

	env := newSvcForTest()
	env.roles.rolesErr = domain.ErrDBUnavailable(errors.New("down"))

	_, err := env.svc.ResolveSelf(context.Background(), domain.User{ID: 1})
	requireErrCode(t, err, "db_unavailable")
}

func TestResolveByID_AdminSeesTarget(t *testing.T) {
	t.Parallel()

	env := newSvcForTest()
	seedScenario(env)
	admin, _ := env.users.GetByID(context.Background(), 1)

	id, err := env.svc.ResolveByID(context.Background(), admin, 2)
	require.NoError(t, err)

	assert.Equal(t, int64(2), id.ID)
	assert.Equal(t, "uuid-member", id.UUID)
	assert.Equal(t, "member@example.com", id.Email)
	assert.Equal(t, t0, id.CreatedAt)
	assert.Equal(t, t0, id.UpdatedAt)
	assert.Equal(t, []string{"member"}, id.Roles)

	last := env.audit.last()
	assert.Equal(t, "identity.lookup", last.action)
	assert.Equal(t, "allowed", last.fields["result"])
}

func TestResolveByID_AdminSeesMultiRoleTarget(t *testing.T) {
	t.Parallel()

	env := newSvcForTest()
	seedScenario(env)
	admin, _ := env.users.GetByID(context.Background(), 1)

	id, err := env.svc.ResolveByID(context.Background(), admin, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"owner", "member"}, id.Roles)
}

func TestResolveByID_NonAdminDenied_TargetNeverQueried(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		target int64
	}{
		{"existing target", 1},
		{"self", 2},
		{"missing target", 404},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := newSvcForTest()
			seedScenario(env)
			member, _ := env.users.GetByID(context.Background(), 2)

			_, err := env.svc.ResolveByID(context.Background(), member, c.target)
			requireErrCode(t, err, "unauthorized")
			assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
			assert.Empty(t, env.roles.aggCalls)
			assert.Equal(t, "denied", env.audit.last().fields["result"])
		})
	}
}

func TestResolveByID_UnknownTarget_NotFound(t *testing.T) {
	t.Parallel()

	env := newSvcForTest()
	seedScenario(env)
	admin, _ := env.users.GetByID(context.Background(), 1)

	_, err := env.svc.ResolveByID(context.Background(), admin, 999)
	requireErrCode(t, err, "user_not_found")
}

// A user with no role rows drops out of the inner join and reads as missing.
func TestResolveByID_RolelessTarget_NotFound(t *testing.T) {
	t.Parallel()

	env := newSvcForTest()
	seedScenario(env)
	env.users.put(domain.User{ID: 4, UUID: "uuid-bare", Email: "bare@example.com"})
	admin, _ := env.users.GetByID(context.Background(), 1)

	_, err := env.svc.ResolveByID(context.Background(), admin, 4)
	requireErrCode(t, err, "user_not_found")
}

func TestResolveByID_GateError_Propagates(t *testing.T) {
	t.Parallel()

	env := newSvcForTest()
	seedScenario(env)
	env.roles.isAdminErr = domain.ErrDBUnavailable(errors.New("down"))

	_, err := env.svc.ResolveByID(context.Background(), domain.User{ID: 1}, 2)
	requireErrCode(t, err, "db_unavailable")
	assert.Empty(t, env.roles.aggCalls)
}

func TestSplitRoleAggregate(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"admin":                {"admin"},
		"admin, member, owner": {"admin", "member", "owner"},
		"owner,member":         {"owner", "member"},
		"":                     {},
		" , member,":           {"member"},
	}
	for in, want := range cases {
		assert.Equal(t, want, SplitRoleAggregate(in), "input %q", in)
	}
}
