package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

type auditSink struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *auditSink) fn(_ context.Context, action string, fields map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action: action, fields: fields})
}

func (a *auditSink) last() auditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return auditEntry{}
	}
	return a.entries[len(a.entries)-1]
}

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID   map[int64]domain.User
	nextID int64

	getByIDErr error
	createErr  error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[int64]domain.User{}}
}

func (f *fakeUserRepo) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	if u.ID > f.nextID {
		f.nextID = u.ID
	}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.User{}, f.getByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Create(_ context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
	}
	f.nextID++
	u.ID = f.nextID
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	u.CreatedAt, u.UpdatedAt = now, now
	f.byID[u.ID] = u
	return u, nil
}

// fakeRoleStore behaves like the SQL queries: the aggregate is an inner join.
type fakeRoleStore struct {
	mu sync.Mutex

	users *fakeUserRepo
	roles map[int64][]string

	rolesErr   error
	isAdminErr error
	aggErr     error

	isAdminCalls int
	aggCalls     []int64
	assigned     []struct {
		userID int64
		role   string
	}
}

func newFakeRoleStore(users *fakeUserRepo) *fakeRoleStore {
	return &fakeRoleStore{users: users, roles: map[int64][]string{}}
}

func (f *fakeRoleStore) RolesForUser(_ context.Context, userID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rolesErr != nil {
		return nil, f.rolesErr
	}
	return append([]string{}, f.roles[userID]...), nil
}

func (f *fakeRoleStore) IsAdmin(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.isAdminCalls++
	if f.isAdminErr != nil {
		return false, f.isAdminErr
	}
	for _, r := range f.roles[userID] {
		if r == domain.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoleStore) RoleAggregateForUser(ctx context.Context, userID int64) (RoleAggregate, error) {
	f.mu.Lock()
	f.aggCalls = append(f.aggCalls, userID)
	aggErr := f.aggErr
	names := append([]string{}, f.roles[userID]...)
	f.mu.Unlock()

	if aggErr != nil {
		return RoleAggregate{}, aggErr
	}
	if len(names) == 0 {
		return RoleAggregate{}, domain.ErrUserNotFound()
	}
	u, err := f.users.GetByID(ctx, userID)
	if err != nil {
		return RoleAggregate{}, err
	}
	return RoleAggregate{User: u, RoleNames: strings.Join(names, ", ")}, nil
}

func (f *fakeRoleStore) AssignRole(_ context.Context, userID int64, roleName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.roles[userID] {
		if r == roleName {
			return nil
		}
	}
	f.roles[userID] = append(f.roles[userID], roleName)
	f.assigned = append(f.assigned, struct {
		userID int64
		role   string
	}{userID, roleName})
	return nil
}

type fakeIssuer struct {
	err    error
	issued []domain.User
}

func (f *fakeIssuer) IssueAccessToken(u domain.User) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.issued = append(f.issued, u)
	return "token-for-" + u.UUID, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []UserCreatedEvent
}

func (f *fakePublisher) PublishUserCreated(_ context.Context, evt UserCreatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}

type testEnv struct {
	svc    *Service
	users  *fakeUserRepo
	roles  *fakeRoleStore
	issuer *fakeIssuer
	pub    *fakePublisher
	audit  *auditSink
}

func newSvcForTest() testEnv {
	users := newFakeUserRepo()
	roles := newFakeRoleStore(users)
	issuer := &fakeIssuer{}
	pub := &fakePublisher{}
	sink := &auditSink{}

	svc := NewService(users, roles, issuer, pub).
		WithAudit(sink.fn).
		WithRoleGranter(roles)

	return testEnv{svc: svc, users: users, roles: roles, issuer: issuer, pub: pub, audit: sink}
}

var t0 = time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

// seedScenario stores the three fixture users:
// 1 admin{admin,member,owner}, 2 member{member}, 3 user{owner,member}.
func seedScenario(env testEnv) {
	env.users.put(domain.User{ID: 1, UUID: "uuid-admin", Email: "admin@example.com", CreatedAt: t0, UpdatedAt: t0})
	env.users.put(domain.User{ID: 2, UUID: "uuid-member", Email: "member@example.com", CreatedAt: t0, UpdatedAt: t0})
	env.users.put(domain.User{ID: 3, UUID: "uuid-user", Email: "user@example.com", CreatedAt: t0, UpdatedAt: t0})

	env.roles.roles[1] = []string{domain.RoleAdmin, domain.RoleMember, domain.RoleOwner}
	env.roles.roles[2] = []string{domain.RoleMember}
	env.roles.roles[3] = []string{domain.RoleOwner, domain.RoleMember}
}
