package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/concierge"
)

func setupRedis(t *testing.T, opts ...RedisOption) (*RedisAdapter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisAdapter(client, opts...), mr
}

func TestRedisAdapter(t *testing.T) {
	repo, _ := setupRedis(t)
	testRepository(t, repo)
}

func TestRedisAdapter_Prefix(t *testing.T) {
	repo, mr := setupRedis(t, WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "profile/u1", []byte(`{}`)))
	assert.True(t, mr.Exists("test:profile/u1"))

	keys, err := repo.List(ctx, "profile/")
	require.NoError(t, err)
	assert.Equal(t, []string{"profile/u1"}, keys)
}

func TestRedisAdapter_TTL(t *testing.T) {
	repo, mr := setupRedis(t, WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "k", []byte(`1`)))
	assert.Equal(t, time.Minute, mr.TTL("concierge:k"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAdapter_ServerDown(t *testing.T) {
	repo, mr := setupRedis(t)
	mr.Close()

	_, _, err := repo.Get(context.Background(), "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, concierge.ErrStorage)
	assert.True(t, concierge.IsTransient(err))
}
