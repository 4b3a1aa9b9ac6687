package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
)

func TestTeamCache_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewTeamCache(client)
	ctx := context.Background()

	team := domainauth.Team{ID: "team-1", Name: "Platform"}
	require.NoError(t, cache.Set(ctx, "user-1", team))

	got, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, team, *got)
}

func TestTeamCache_GetMissingIsNil(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewTeamCache(client)

	got, err := cache.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTeamCache_Clear(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewTeamCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "user-1", domainauth.Team{ID: "team-1"}))
	require.NoError(t, cache.Clear(ctx, "user-1"))

	got, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTeamCache_EntriesExpire(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewTeamCacheWithTTL(client, 100*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "user-1", domainauth.Team{ID: "team-1"}))
	time.Sleep(200 * time.Millisecond)

	got, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTeamCache_SetEmptyUserID(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewTeamCache(client)
	assert.Error(t, cache.Set(context.Background(), "", domainauth.Team{ID: "team-1"}))
}
