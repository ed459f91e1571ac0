package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/marutilai/open-deep-research/internal/cache/redis"
	"github.com/marutilai/open-deep-research/internal/config"
	"github.com/marutilai/open-deep-research/internal/domain"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleResult() *domain.AngleResult {
	return &domain.AngleResult{
		CompanyName:     "Acme",
		ResearchAngle:   domain.AngleWatchFactors,
		Summary:         "summary",
		Findings:        []domain.Finding{{Category: "Risk", Severity: "High", Title: "t", Sources: []string{}}},
		ResearchQuality: domain.QualityGood,
	}
}

func TestResultCache(t *testing.T) {
	ctx := context.Background()

	t.Run("should round-trip a result", func(t *testing.T) {
		mr, client := setupRedis(t)
		cache := redis.NewResultCache(client, time.Hour)

		require.NoError(t, cache.Set(ctx, "k1", sampleResult()))

		got, err := cache.Get(ctx, "k1")
		require.NoError(t, err)
		require.Equal(t, "Acme", got.CompanyName)
		require.Equal(t, domain.QualityGood, got.ResearchQuality)
		require.Len(t, got.Findings, 1)

		require.True(t, mr.Exists(redis.KeyPrefix+"k1"))
		require.Equal(t, time.Hour, mr.TTL(redis.KeyPrefix+"k1"))
	})

	t.Run("should miss unknown keys", func(t *testing.T) {
		_, client := setupRedis(t)
		cache := redis.NewResultCache(client, 0)

		_, err := cache.Get(ctx, "absent")
		require.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("should expire entries after the ttl", func(t *testing.T) {
		mr, client := setupRedis(t)
		cache := redis.NewResultCache(client, time.Minute)

		require.NoError(t, cache.Set(ctx, "k1", sampleResult()))
		mr.FastForward(2 * time.Minute)

		_, err := cache.Get(ctx, "k1")
		require.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("should keep entries without a ttl", func(t *testing.T) {
		mr, client := setupRedis(t)
		cache := redis.NewResultCache(client, 0)

		require.NoError(t, cache.Set(ctx, "k1", sampleResult()))
		require.Equal(t, time.Duration(0), mr.TTL(redis.KeyPrefix+"k1"))
	})

	t.Run("should treat corrupt entries as a miss", func(t *testing.T) {
		mr, client := setupRedis(t)
		cache := redis.NewResultCache(client, 0)

		mr.HSet(redis.KeyPrefix+"bad", "data", "{not json")

		_, err := cache.Get(ctx, "bad")
		require.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("should report connection errors", func(t *testing.T) {
		mr, client := setupRedis(t)
		cache := redis.NewResultCache(client, 0)
		mr.Close()

		_, err := cache.Get(ctx, "k1")
		require.Error(t, err)
		require.NotErrorIs(t, err, domain.ErrCacheMiss)
	})
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := redis.NewClient(context.Background(), &config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = redis.NewClient(context.Background(), &config.RedisConfig{Addr: addr})
	require.Error(t, err)
}
