package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/identity"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

// Store keeps users and role grants in process. It answers the same queries
// as the postgres repos, including the inner-join behaviour of the aggregate.
type Store struct {
	mu      sync.RWMutex
	byID    map[int64]domain.User
	byEmail map[string]int64
	grants  map[int64][]int64 // user id -> role ids in grant order
	nextID  int64

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		byID:    make(map[int64]domain.User),
		byEmail: make(map[string]int64),
		grants:  make(map[int64][]int64),
		now:     time.Now,
	}
}

// ---------- users ----------

func (s *Store) GetByID(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return s.byID[id], nil
}

func (s *Store) Create(_ context.Context, u domain.User) (domain.User, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.UUID == "" {
		return domain.User{}, domain.ErrMissingField("uuid")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}

	s.nextID++
	now := s.now().UTC()
	u.ID = s.nextID
	u.CreatedAt, u.UpdatedAt = now, now

	s.byID[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

// ---------- roles ----------

func (s *Store) roleNames(userID int64) []string {
	out := []string{}
	for _, rid := range s.grants[userID] {
		for _, r := range domain.SeededRoles() {
			if r.ID == rid {
				out = append(out, r.Name)
			}
		}
	}
	return out
}

func (s *Store) RolesForUser(_ context.Context, userID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roleNames(userID), nil
}

func (s *Store) IsAdmin(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rid := range s.grants[userID] {
		if rid == domain.RoleIDAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) RoleAggregateForUser(_ context.Context, userID int64) (identity.RoleAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	names := s.roleNames(userID)
	if !ok || len(names) == 0 {
		return identity.RoleAggregate{}, domain.ErrUserNotFound()
	}
	return identity.RoleAggregate{User: u, RoleNames: strings.Join(names, ",")}, nil
}

func (s *Store) AssignRole(_ context.Context, userID int64, roleName string) error {
	roleID, ok := domain.RoleIDByName(roleName)
	if !ok {
		return domain.ErrInvalidRole(roleName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[userID]; !ok {
		return domain.ErrUserNotFound()
	}
	for _, rid := range s.grants[userID] {
		if rid == roleID {
			return nil
		}
	}
	s.grants[userID] = append(s.grants[userID], roleID)
	return nil
}
