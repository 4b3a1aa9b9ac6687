package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
)

// DefaultTeamCacheTTL bounds how long a cached team selection survives
// without re-confirmation from a durable source.
const DefaultTeamCacheTTL = 24 * time.Hour

// TeamCache remembers the last team a user selected. It is advisory only:
// entries expire and a resolution served from here is never marked durable.
type TeamCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewTeamCache creates a team cache with the default prefix and TTL.
func NewTeamCache(client redis.UniversalClient) *TeamCache {
	return &TeamCache{client: client, prefix: "teamsel:", ttl: DefaultTeamCacheTTL}
}

// NewTeamCacheWithTTL creates a team cache with a custom TTL.
func NewTeamCacheWithTTL(client redis.UniversalClient, ttl time.Duration) *TeamCache {
	if ttl <= 0 {
		ttl = DefaultTeamCacheTTL
	}
	return &TeamCache{client: client, prefix: "teamsel:", ttl: ttl}
}

// Get returns the cached selection, or nil when none is cached.
func (c *TeamCache) Get(ctx context.Context, userID string) (*domainauth.Team, error) {
	if userID == "" {
		return nil, nil
	}

	data, err := c.client.Get(ctx, c.prefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var team domainauth.Team
	if unmarshalErr := json.Unmarshal([]byte(data), &team); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal team: %w", unmarshalErr)
	}
	return &team, nil
}

func (c *TeamCache) Set(ctx context.Context, userID string, team domainauth.Team) error {
	if userID == "" {
		return errors.New("user ID cannot be empty")
	}

	data, err := json.Marshal(team)
	if err != nil {
		return fmt.Errorf("marshal team: %w", err)
	}
	return c.client.Set(ctx, c.prefix+userID, data, c.ttl).Err()
}

func (c *TeamCache) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return c.client.Del(ctx, c.prefix+userID).Err()
}
