package publish

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"supplier-ranking/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeES struct {
	lines    []map[string]interface{}
	response string
	status   int
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path != "/supplier-rankings/_bulk" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	scanner := bufio.NewScanner(r.Body)
	for scanner.Scan() {
		var line map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &line); err == nil {
			f.lines = append(f.lines, line)
		}
	}

	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	_, _ = w.Write([]byte(f.response))
}

func newPublisher(t *testing.T, fake *fakeES) *IndexPublisher {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewIndexPublisher(client, "supplier-rankings")
}

func snapshots() []models.ScoreSnapshot {
	end := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	return []models.ScoreSnapshot{
		{
			ID: "s1", SupplierID: "A", RegionID: "north",
			WindowStart: end.AddDate(0, 0, -30), WindowEnd: end,
			TotalScore: decimal.RequireFromString("82.5"),
			Percentile: decimal.RequireFromString("100"),
			Badge:      models.BadgeTop10, Rank: 1, RegionSize: 2,
		},
		{
			ID: "s2", SupplierID: "B", RegionID: "north",
			WindowStart: end.AddDate(0, 0, -30), WindowEnd: end,
			TotalScore: decimal.RequireFromString("60"),
			Percentile: decimal.RequireFromString("50"),
			Badge:      models.BadgeGood, Rank: 2, RegionSize: 2,
		},
	}
}

func TestPublishRegion_BulkIndexesEverySupplier(t *testing.T) {
	fake := &fakeES{response: `{"took":3,"errors":false,"items":[{"index":{"_id":"A","status":201}},{"index":{"_id":"B","status":201}}]}`}
	p := newPublisher(t, fake)

	require.NoError(t, p.PublishRegion(context.Background(), "north", snapshots()))

	require.Len(t, fake.lines, 4)
	meta := fake.lines[0]["index"].(map[string]interface{})
	assert.Equal(t, "A", meta["_id"])
	assert.Equal(t, "supplier-rankings", meta["_index"])

	doc := fake.lines[1]
	assert.Equal(t, "north", doc["region_id"])
	assert.Equal(t, 82.5, doc["total_score"])
	assert.Equal(t, "top_10", doc["badge"])
	assert.Equal(t, "2024-02-19", doc["window_start"])
	assert.Equal(t, float64(1), doc["rank"])
}

func TestPublishRegion_ItemFailures(t *testing.T) {
	fake := &fakeES{response: `{"errors":true,"items":[{"index":{"_id":"A","status":201}},{"index":{"_id":"B","status":400,"error":{"type":"mapper_parsing_exception","reason":"failed to parse field [rank]"}}}]}`}
	p := newPublisher(t, fake)

	err := p.PublishRegion(context.Background(), "north", snapshots())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 documents failed")
	assert.Contains(t, err.Error(), "B: failed to parse field [rank]")
}

func TestPublishRegion_HTTPError(t *testing.T) {
	fake := &fakeES{status: http.StatusServiceUnavailable, response: `{"error":"cluster_block_exception"}`}
	p := newPublisher(t, fake)

	err := p.PublishRegion(context.Background(), "north", snapshots())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestPublishRegion_EmptyIsNoop(t *testing.T) {
	fake := &fakeES{}
	p := newPublisher(t, fake)

	require.NoError(t, p.PublishRegion(context.Background(), "north", nil))
	assert.Empty(t, fake.lines)
}
