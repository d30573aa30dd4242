package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"supplier-ranking/internal/common/config"
	"supplier-ranking/internal/common/logger"
	"supplier-ranking/internal/models"
	"supplier-ranking/internal/ranking/cache"
	"supplier-ranking/internal/ranking/recompute"
	"supplier-ranking/internal/ranking/scoring"
	"supplier-ranking/internal/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runDay = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Defaults()
	require.NoError(t, err)
	cfg.Ranking.Timezone = "UTC"
	return cfg
}

func seededStore() *memory.Store {
	store := memory.New()
	for _, s := range []struct{ id, price string }{{"A", "40"}, {"B", "50"}, {"C", "60"}} {
		store.AddSuppliers(models.Supplier{ID: s.id, Name: "Farmer " + s.id, RegionID: "north", Active: true})
		for i := 0; i < 10; i++ {
			date := scoring.DateOf(runDay).AddDate(0, 0, -i)
			store.AddSubmissions(models.PriceSubmission{
				ID:          fmt.Sprintf("%s-%d", s.id, i),
				SupplierID:  s.id,
				ProductID:   "tomato",
				RegionID:    "north",
				Date:        date,
				SubmittedAt: date.Add(7 * time.Hour),
				UnitPrice:   decimal.RequireFromString(s.price),
			})
		}
	}
	return store
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(testConfig(t), Backends{}, logger.NewTestLogger(t))
	assert.Error(t, err)
}

func TestNew_RejectsUnknownTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ranking.Timezone = "Mars/Olympus"
	_, err := New(cfg, Backends{Store: memory.New()}, logger.NewTestLogger(t))
	assert.Error(t, err)
}

func TestNew_RunAndQueryThroughCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test", time.Minute)

	svc, err := New(testConfig(t), Backends{Store: seededStore(), Cache: rc}, logger.NewTestLogger(t),
		recompute.WithClock(func() time.Time { return runDay }))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, svc.Location)

	report, err := svc.Orchestrator.Run(ctx, recompute.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Updated)
	assert.Equal(t, []string{"north"}, report.Regions)

	rankings, err := svc.Query.GetCurrentRankings(ctx, "north", 0)
	require.NoError(t, err)
	require.Len(t, rankings, 3)
	assert.Equal(t, "A", rankings[0].SupplierID)
	assert.Equal(t, 1, rankings[0].Rank)
	assert.True(t, mr.Exists(rc.Key("north")))

	// a guarded second run leaves the cache alone
	report, err = svc.Orchestrator.Run(ctx, recompute.Options{})
	require.NoError(t, err)
	assert.True(t, report.GuardBlocked)
	assert.True(t, mr.Exists(rc.Key("north")))

	// a forced run invalidates it
	_, err = svc.Orchestrator.Run(ctx, recompute.Options{Force: true})
	require.NoError(t, err)
	assert.False(t, mr.Exists(rc.Key("north")))
}

func TestServices_WithoutConnections(t *testing.T) {
	svc, err := New(testConfig(t), Backends{Store: memory.New()}, logger.NewTestLogger(t))
	require.NoError(t, err)

	assert.Empty(t, svc.Ping(context.Background()))
	assert.Error(t, svc.Migrate(context.Background()))
	svc.Close()
}

func TestRetryWithBackoff(t *testing.T) {
	log := logger.NewTestLogger(t)

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		}, 5, time.Millisecond, log, "dial")
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		cause := errors.New("connection refused")
		err := RetryWithBackoff(context.Background(), func() error {
			calls++
			return cause
		}, 3, time.Millisecond, log, "dial")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := RetryWithBackoff(ctx, func() error { return errors.New("down") }, 5, time.Hour, log, "dial")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
