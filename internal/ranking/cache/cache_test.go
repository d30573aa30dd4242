package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"supplier-ranking/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *RankingCache) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, New(client, "supplier-ranking", 10*time.Minute)
}

func ranked() []models.ScoreSnapshot {
	return []models.ScoreSnapshot{
		{ID: "s1", SupplierID: "A", RegionID: "north", TotalScore: decimal.RequireFromString("82.5"), Rank: 1, IsCurrent: true},
		{ID: "s2", SupplierID: "B", RegionID: "north", TotalScore: decimal.RequireFromString("60"), Rank: 2, IsCurrent: true},
	}
}

func TestRankingCache_SetGet(t *testing.T) {
	mr, c := setupMiniredis(t)
	ctx := context.Background()

	_, hit, err := c.Get(ctx, "north")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "north", ranked()))
	assert.True(t, mr.Exists("supplier-ranking:rankings:north"))
	assert.Equal(t, 10*time.Minute, mr.TTL("supplier-ranking:rankings:north"))

	got, hit, err := c.Get(ctx, "north")
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].SupplierID)
	assert.True(t, decimal.RequireFromString("82.5").Equal(got[0].TotalScore))

	mr.FastForward(11 * time.Minute)
	_, hit, err = c.Get(ctx, "north")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRankingCache_InvalidateRegions(t *testing.T) {
	mr, c := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "north", ranked()))
	require.NoError(t, c.Set(ctx, "south", nil))
	require.NoError(t, c.Set(ctx, "", ranked()))

	require.NoError(t, c.InvalidateRegions(ctx, []string{"north"}))

	assert.False(t, mr.Exists("supplier-ranking:rankings:north"))
	assert.False(t, mr.Exists("supplier-ranking:rankings:_all"))
	assert.True(t, mr.Exists("supplier-ranking:rankings:south"))
}

func TestRankingCache_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("get failure surfaces", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		c := New(client, "supplier-ranking", time.Minute)
		mock.ExpectGet("supplier-ranking:rankings:north").SetErr(errors.New("connection refused"))

		_, hit, err := c.Get(ctx, "north")
		assert.Error(t, err)
		assert.False(t, hit)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt payload", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		c := New(client, "supplier-ranking", time.Minute)
		mock.ExpectGet("supplier-ranking:rankings:north").SetVal("{not json")

		_, hit, err := c.Get(ctx, "north")
		assert.ErrorContains(t, err, "decode cached rankings")
		assert.False(t, hit)
	})

	t.Run("set writes ttl", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		c := New(client, "supplier-ranking", time.Minute)
		data, err := json.Marshal(ranked())
		require.NoError(t, err)
		mock.ExpectSet("supplier-ranking:rankings:north", data, time.Minute).SetErr(errors.New("OOM"))

		assert.Error(t, c.Set(ctx, "north", ranked()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalidate failure surfaces", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		c := New(client, "supplier-ranking", time.Minute)
		mock.ExpectDel("supplier-ranking:rankings:north", "supplier-ranking:rankings:_all").SetErr(errors.New("READONLY"))

		assert.Error(t, c.InvalidateRegions(ctx, []string{"north"}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
