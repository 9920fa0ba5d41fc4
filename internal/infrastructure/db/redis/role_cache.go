package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apilogin/auth-api/internal/core/domain"
	"github.com/apilogin/auth-api/internal/core/ports"
)

// cacheClient is the subset of *redis.Client used by RoleCache.
type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RoleCache is a read-through cache over a RoleLookup.
// Key format: role:name:<role_name>
// Only found roles are cached. Redis failures fall through to the next lookup.
type RoleCache struct {
	client cacheClient
	next   ports.RoleLookup
	ttl    time.Duration
	log    zerolog.Logger
}

func NewRoleCache(client cacheClient, next ports.RoleLookup, ttl time.Duration, log zerolog.Logger) *RoleCache {
	return &RoleCache{client: client, next: next, ttl: ttl, log: log}
}

func (c *RoleCache) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	key := c.key(name)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var role domain.Role
		if jsonErr := json.Unmarshal(raw, &role); jsonErr == nil {
			return &role, nil
		}
		c.log.Warn().Str("key", key).Msg("discarding malformed cached role")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("key", key).Msg("role cache read failed")
	}

	role, err := c.next.FindRoleByName(ctx, name)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(role)
	if err == nil {
		err = c.client.Set(ctx, key, payload, c.ttl).Err()
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("role cache write failed")
	}
	return role, nil
}

func (c *RoleCache) key(name string) string {
	return "role:name:" + name
}
