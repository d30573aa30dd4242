// test/e2e/e2e_test.go
package e2e

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplier-ranking/internal/app"
	"supplier-ranking/internal/common/config"
	"supplier-ranking/internal/common/logger"
	"supplier-ranking/internal/common/validation"
	"supplier-ranking/internal/models"
	"supplier-ranking/internal/ranking/cache"
	"supplier-ranking/internal/ranking/publish"
	"supplier-ranking/internal/ranking/recompute"
	"supplier-ranking/internal/repository/memory"
	"supplier-ranking/pkg/registry"

	gcr "supplier-ranking/internal/workers/ranking/get-current-rankings"
	gst "supplier-ranking/internal/workers/ranking/get-supplier-trend"
	rcr "supplier-ranking/internal/workers/ranking/recompute-rankings"
)

// bulkSink stands in for Elasticsearch and records indexed supplier ids.
type bulkSink struct {
	mu      sync.Mutex
	indexed map[string]int
}

func (b *bulkSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	b.mu.Lock()
	defer b.mu.Unlock()
	scanner := bufio.NewScanner(r.Body)
	for scanner.Scan() {
		var doc struct {
			SupplierID string `json:"supplier_id"`
		}
		if json.Unmarshal(scanner.Bytes(), &doc) == nil && doc.SupplierID != "" {
			b.indexed[doc.SupplierID]++
		}
	}
	_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
}

type pipeline struct {
	svc       *app.Services
	store     *memory.Store
	redis     *miniredis.Miniredis
	cache     *cache.RankingCache
	sink      *bulkSink
	recompute *rcr.Handler
	rankings  *gcr.Handler
	trend     *gst.Handler
}

func newPipeline(t *testing.T, store *memory.Store) *pipeline {
	t.Helper()
	log := logger.NewTestLogger(t)

	cfg, err := config.Defaults()
	require.NoError(t, err)
	cfg.Ranking.Timezone = "UTC"

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	rc := cache.New(rdb, cfg.Ranking.CacheKeyPrefix, time.Minute)

	sink := &bulkSink{indexed: map[string]int{}}
	srv := httptest.NewServer(sink)
	t.Cleanup(srv.Close)
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	svc, err := app.New(cfg, app.Backends{
		Store:     store,
		Cache:     rc,
		Publisher: publish.NewIndexPublisher(es, cfg.Ranking.SearchIndex),
	}, log)
	require.NoError(t, err)

	reg, err := registry.Default()
	require.NoError(t, err)
	require.NoError(t, reg.Validate())
	schema := func(taskType string) *validation.Schema {
		s, err := reg.InputSchema(taskType)
		require.NoError(t, err)
		return s
	}

	return &pipeline{
		svc:       svc,
		store:     store,
		redis:     mr,
		cache:     rc,
		sink:      sink,
		recompute: rcr.NewHandler(rcr.LoadConfig(config.GetWorkerConfig(cfg, rcr.TaskType)), svc.Orchestrator, schema(rcr.TaskType), nil, log),
		rankings:  gcr.NewHandler(gcr.LoadConfig(config.GetWorkerConfig(cfg, gcr.TaskType)), svc.Query, schema(gcr.TaskType), nil, log),
		trend:     gst.NewHandler(gst.LoadConfig(config.GetWorkerConfig(cfg, gst.TaskType)), svc.Query, schema(gst.TaskType), nil, log),
	}
}

// marketStore seeds two regions. In north A undercuts B and C, and A also
// has an older snapshot far below its new score.
func marketStore(now time.Time) *memory.Store {
	store := memory.New()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	seed := func(id, region, price string, hour int) {
		store.AddSuppliers(models.Supplier{ID: id, Name: "Farmer " + id, RegionID: region, Active: true})
		for i := 0; i < 14; i++ {
			date := today.AddDate(0, 0, -i)
			store.AddSubmissions(models.PriceSubmission{
				ID:          fmt.Sprintf("%s-%d", id, i),
				SupplierID:  id,
				ProductID:   "tomato",
				RegionID:    region,
				Date:        date,
				SubmittedAt: date.Add(time.Duration(hour) * time.Hour),
				UnitPrice:   decimal.RequireFromString(price),
			})
		}
	}
	seed("A", "north", "40", 7)
	seed("B", "north", "50", 7)
	seed("C", "north", "60", 11)
	seed("D", "south", "30", 8)

	delivered := today.AddDate(0, 0, -5)
	store.AddOrders(models.OrderRecord{
		ID:                   "o-1",
		SupplierID:           "A",
		RegionID:             "north",
		OrderedOn:            today.AddDate(0, 0, -8),
		OrderedQuantity:      decimal.NewFromInt(100),
		DeliveredQuantity:    decimal.NewNullDecimal(decimal.NewFromInt(100)),
		ExpectedDeliveryDate: delivered,
		ActualDeliveryDate:   &delivered,
		Status:               models.OrderStatusDelivered,
	})

	old := today.AddDate(0, 0, -10)
	store.PutSnapshot(models.ScoreSnapshot{
		ID:          "old-a",
		SupplierID:  "A",
		RegionID:    "north",
		WindowStart: old.AddDate(0, 0, -30),
		WindowEnd:   old,
		TotalScore:  decimal.NewFromInt(20),
		ComputedAt:  old.Add(time.Hour),
		IsCurrent:   true,
		Rank:        3,
		RegionSize:  3,
	})
	return store
}

func TestRankingPipeline(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, marketStore(time.Now().UTC()))

	// 1. first run scores everyone
	out, err := p.recompute.Execute(ctx, &rcr.Input{})
	require.NoError(t, err)
	assert.False(t, out.GuardBlocked)
	assert.Equal(t, 4, out.Updated)
	assert.Zero(t, out.Errors)
	assert.ElementsMatch(t, []string{"north", "south"}, out.Regions)

	// 2. both regions reached the index
	for _, id := range []string{"A", "B", "C", "D"} {
		assert.Equal(t, 1, p.sink.indexed[id], id)
	}

	// 3. rankings come back ordered and fill the cache
	north, err := p.rankings.Execute(ctx, &gcr.Input{RegionID: "north"})
	require.NoError(t, err)
	require.Equal(t, 3, north.Count)
	assert.Equal(t, "A", north.Rankings[0].SupplierID)
	for i, e := range north.Rankings {
		assert.Equal(t, i+1, e.Rank)
		assert.Equal(t, 3, e.RegionSize)
	}
	assert.Equal(t, "top_10", north.Rankings[0].Badge)
	assert.True(t, p.redis.Exists(p.cache.Key("north")))

	south, err := p.rankings.Execute(ctx, &gcr.Input{RegionID: "south", Limit: 5})
	require.NoError(t, err)
	require.Equal(t, 1, south.Count)
	assert.Equal(t, 100.0, south.Rankings[0].Percentile)

	// 4. A climbed from its old snapshot
	trend, err := p.trend.Execute(ctx, &gst.Input{SupplierID: "A"})
	require.NoError(t, err)
	assert.Equal(t, "rising", trend.Trend)
	require.NotNil(t, trend.Difference)
	assert.Greater(t, *trend.Difference, 5.0)
	assert.Equal(t, 1, trend.CurrentRank)

	trend, err = p.trend.Execute(ctx, &gst.Input{SupplierID: "D"})
	require.NoError(t, err)
	assert.Equal(t, "new", trend.Trend)

	// 5. a second run inside the guard window changes nothing
	out, err = p.recompute.Execute(ctx, &rcr.Input{})
	require.NoError(t, err)
	assert.True(t, out.GuardBlocked)
	assert.True(t, p.redis.Exists(p.cache.Key("north")))

	// 6. a forced single-region run refreshes only that region
	out, err = p.recompute.Execute(ctx, &rcr.Input{RegionID: "south", Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Updated)
	assert.Equal(t, 2, p.sink.indexed["D"])
	assert.Equal(t, 1, p.sink.indexed["A"])
	assert.True(t, p.redis.Exists(p.cache.Key("north")))

	// 7. history is recorded per supplier and day
	entries, err := p.svc.Query.GetHistory(ctx, "A", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, 1, entries[0].RankInRegion)
	assert.Equal(t, 3, entries[0].TotalSuppliersInRegion)
}

func TestRankingPipeline_DryRunLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	store := marketStore(time.Now().UTC())
	p := newPipeline(t, store)

	out, err := p.recompute.Execute(ctx, &rcr.Input{DryRun: true})
	require.NoError(t, err)
	assert.True(t, out.DryRun)
	assert.Zero(t, out.Updated)
	assert.Empty(t, p.sink.indexed)
	assert.Len(t, store.AllSnapshots(), 1)
}

func TestRankingPipeline_FeatureDisabled(t *testing.T) {
	ctx := context.Background()
	store := marketStore(time.Now().UTC())

	cfg, err := config.Defaults()
	require.NoError(t, err)
	cfg.Ranking.Timezone = "UTC"
	cfg.Ranking.Enabled = false
	svc, err := app.New(cfg, app.Backends{Store: store}, logger.NewTestLogger(t))
	require.NoError(t, err)

	report, err := svc.Orchestrator.Run(ctx, recompute.Options{Force: true})
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, "skipped", recompute.OutcomeOf(report, err))
	assert.Len(t, store.AllSnapshots(), 1)
}

// TestLiveBackends runs against the services in docker-compose. Set
// E2E_LIVE=1 to enable it.
func TestLiveBackends(t *testing.T) {
	if testing.Short() || os.Getenv("E2E_LIVE") == "" {
		t.Skip("set E2E_LIVE=1 to run against live backends")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)

	svc, err := app.Connect(ctx, cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer svc.Close()

	for name, err := range svc.Ping(ctx) {
		assert.NoError(t, err, name)
	}
	require.NoError(t, svc.Migrate(ctx))

	report, err := svc.Orchestrator.Run(ctx, recompute.Options{DryRun: true, Force: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
}
