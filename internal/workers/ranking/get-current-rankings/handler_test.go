// internal/workers/ranking/get-current-rankings/handler_test.go
package getcurrentrankings

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"supplier-ranking/internal/common/config"
	"supplier-ranking/internal/common/errors"
	"supplier-ranking/internal/common/logger"
	"supplier-ranking/internal/models"
	"supplier-ranking/internal/ranking/query"
	"supplier-ranking/internal/repository/memory"
	"supplier-ranking/pkg/registry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var computed = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func rankedSnapshot(id, supplierID, region string, rank int, total string) models.ScoreSnapshot {
	return models.ScoreSnapshot{
		ID:         id,
		SupplierID: supplierID,
		RegionID:   region,
		WindowEnd:  computed,
		Scores: models.SubScores{
			Price:       decimal.NewFromInt(85),
			Consistency: decimal.NewFromInt(100),
			Reliability: decimal.NewFromInt(50),
			Fill:        decimal.NewFromInt(50),
		},
		TotalScore: decimal.RequireFromString(total),
		Percentile: decimal.NewFromInt(100),
		Badge:      models.BadgeTop10,
		RegionSize: 2,
		ComputedAt: computed,
		IsCurrent:  true,
		Rank:       rank,
	}
}

func newTestHandler(t *testing.T, reader RankingReader) *Handler {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	schema, err := reg.InputSchema(TaskType)
	require.NoError(t, err)
	return NewHandler(LoadConfig(config.WorkerConfig{}), reader, schema, nil, logger.NewTestLogger(t))
}

func seededService() *query.Service {
	store := memory.New()
	store.PutSnapshot(rankedSnapshot("n1", "A", "north", 1, "76.5"))
	store.PutSnapshot(rankedSnapshot("n2", "B", "north", 2, "60"))
	store.PutSnapshot(rankedSnapshot("s1", "C", "south", 1, "55"))
	return query.NewService(store, time.UTC, 7, nil)
}

type failingReader struct{}

func (failingReader) GetCurrentRankings(context.Context, string, int) ([]models.ScoreSnapshot, error) {
	return nil, stderrors.New("connection refused")
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name      string
		input     Input
		wantCount int
		wantFirst string
	}{
		{name: "one region", input: Input{RegionID: "north"}, wantCount: 2, wantFirst: "A"},
		{name: "limited", input: Input{RegionID: "north", Limit: 1}, wantCount: 1, wantFirst: "A"},
		{name: "all regions", input: Input{}, wantCount: 3, wantFirst: "A"},
		{name: "unknown region", input: Input{RegionID: "east"}, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, seededService())
			out, err := h.Execute(context.Background(), &tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, out.Count)
			require.Len(t, out.Rankings, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, tt.wantFirst, out.Rankings[0].SupplierID)
			}
		})
	}
}

func TestHandler_Execute_EntryFields(t *testing.T) {
	h := newTestHandler(t, seededService())
	out, err := h.Execute(context.Background(), &Input{RegionID: "north", Limit: 1})
	require.NoError(t, err)

	e := out.Rankings[0]
	assert.Equal(t, 1, e.Rank)
	assert.Equal(t, 2, e.RegionSize)
	assert.Equal(t, 76.5, e.TotalScore)
	assert.Equal(t, 85.0, e.PriceScore)
	assert.Equal(t, "top_10", e.Badge)
	assert.Equal(t, computed, e.ComputedAt)
}

func TestHandler_Execute_Errors(t *testing.T) {
	h := newTestHandler(t, seededService())
	_, err := h.Execute(context.Background(), &Input{Limit: query.MaxLimit + 1})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))

	h = newTestHandler(t, failingReader{})
	_, err = h.Execute(context.Background(), &Input{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataSourceFailed))
}

func TestInputSchema_RejectsBadLimit(t *testing.T) {
	h := newTestHandler(t, seededService())
	assert.False(t, h.schema.ValidateJSON(`{"limit":-5}`).Valid)
	assert.False(t, h.schema.ValidateJSON(`{"limit":"ten"}`).Valid)
	assert.True(t, h.schema.ValidateJSON(`{"regionId":"north","limit":10}`).Valid)
}
