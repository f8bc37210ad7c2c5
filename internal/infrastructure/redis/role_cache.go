package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/identity"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/metrics"
)

// CachedRoleStore decorates an identity.RoleStore with a Redis cache for
// RolesForUser only.
//   - Read path: Redis -> store fallback -> Redis set
//   - IsAdmin and RoleAggregateForUser always hit the store, so an
//     authorization decision never reads cached data.
type CachedRoleStore struct {
	inner   identity.RoleStore
	rdb     *goredis.Client
	ttl     time.Duration
	keyPref string
}

func NewCachedRoleStore(inner identity.RoleStore, client *Client, ttl time.Duration) *CachedRoleStore {
	var rdb *goredis.Client
	if client != nil {
		rdb = client.rdb
	}
	return &CachedRoleStore{
		inner:   inner,
		rdb:     rdb,
		ttl:     ttl,
		keyPref: "identity:roles:",
	}
}

func (c *CachedRoleStore) key(userID int64) string {
	return c.keyPref + strconv.FormatInt(userID, 10)
}

func (c *CachedRoleStore) RolesForUser(ctx context.Context, userID int64) ([]string, error) {
	// 1) Try Redis
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, c.key(userID)).Bytes()
		switch {
		case err == nil:
			var roles []string
			if jerr := json.Unmarshal(raw, &roles); jerr == nil && roles != nil {
				metrics.RoleCacheTotal.WithLabelValues("hit").Inc()
				return roles, nil
			}
			// corrupt entry -> fall back to store
			metrics.RoleCacheTotal.WithLabelValues("error").Inc()
		case errors.Is(err, goredis.Nil):
			metrics.RoleCacheTotal.WithLabelValues("miss").Inc()
		default:
			// redis error -> fall back to store (do NOT fail the request)
			metrics.RoleCacheTotal.WithLabelValues("error").Inc()
		}
	}

	// 2) store is the source of truth
	roles, err := c.inner.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 3) best-effort cache fill
	if c.rdb != nil {
		if b, jerr := json.Marshal(roles); jerr == nil {
			_ = c.rdb.Set(ctx, c.key(userID), b, c.ttl).Err()
		}
	}

	return roles, nil
}

// AssignRole writes through to the inner store and drops the cached entry.
func (c *CachedRoleStore) AssignRole(ctx context.Context, userID int64, roleName string) error {
	g, ok := c.inner.(identity.RoleGranter)
	if !ok {
		return domain.ErrInternal(errors.New("role store is read-only"))
	}
	if err := g.AssignRole(ctx, userID, roleName); err != nil {
		return err
	}
	if c.rdb != nil {
		_ = c.rdb.Del(ctx, c.key(userID)).Err()
	}
	return nil
}

func (c *CachedRoleStore) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return c.inner.IsAdmin(ctx, userID)
}

func (c *CachedRoleStore) RoleAggregateForUser(ctx context.Context, userID int64) (identity.RoleAggregate, error) {
	return c.inner.RoleAggregateForUser(ctx, userID)
}
