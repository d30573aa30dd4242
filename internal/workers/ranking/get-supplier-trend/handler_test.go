// internal/workers/ranking/get-supplier-trend/handler_test.go
package getsuppliertrend

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

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func snapshot(id string, total string, computed time.Time, current bool) models.ScoreSnapshot {
	return models.ScoreSnapshot{
		ID:          id,
		SupplierID:  "A",
		RegionID:    "north",
		WindowStart: computed.AddDate(0, 0, -30),
		WindowEnd:   computed,
		TotalScore:  decimal.RequireFromString(total),
		ComputedAt:  computed,
		IsCurrent:   current,
		Rank:        1,
	}
}

func serviceWith(snapshots ...models.ScoreSnapshot) *query.Service {
	store := memory.New()
	for _, s := range snapshots {
		store.PutSnapshot(s)
	}
	return query.NewService(store, time.UTC, 7, nil, query.WithClock(func() time.Time { return now }))
}

func newTestHandler(t *testing.T, reader TrendReader) *Handler {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	schema, err := reg.InputSchema(TaskType)
	require.NoError(t, err)
	return NewHandler(LoadConfig(config.WorkerConfig{}), reader, schema, nil, logger.NewTestLogger(t))
}

type failingReader struct{}

func (failingReader) GetTrend(context.Context, string, int) (*query.TrendResult, error) {
	return nil, stderrors.New("connection refused")
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Classifies(t *testing.T) {
	tests := []struct {
		name      string
		prior     string
		current   string
		wantTrend string
		wantDiff  float64
	}{
		{name: "rising", prior: "60", current: "72.5", wantTrend: "rising", wantDiff: 12.5},
		{name: "falling", prior: "80", current: "70", wantTrend: "falling", wantDiff: -10},
		{name: "stable at threshold", prior: "70", current: "75", wantTrend: "stable", wantDiff: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := serviceWith(
				snapshot("old", tt.prior, now.AddDate(0, 0, -9), false),
				snapshot("cur", tt.current, now, true),
			)
			out, err := newTestHandler(t, svc).Execute(context.Background(), &Input{SupplierID: "A"})
			require.NoError(t, err)

			assert.Equal(t, tt.wantTrend, out.Trend)
			assert.Equal(t, 7, out.WindowDays)
			require.NotNil(t, out.Difference)
			assert.InDelta(t, tt.wantDiff, *out.Difference, 0.001)
			assert.Equal(t, 1, out.CurrentRank)
			require.NotNil(t, out.PriorComputedAt)
		})
	}
}

func TestHandler_Execute_NewSupplier(t *testing.T) {
	out, err := newTestHandler(t, serviceWith(snapshot("cur", "50", now, true))).
		Execute(context.Background(), &Input{SupplierID: "A", WindowDays: 3})
	require.NoError(t, err)

	assert.Equal(t, "new", out.Trend)
	assert.Equal(t, 3, out.WindowDays)
	require.NotNil(t, out.CurrentScore)
	assert.Equal(t, 50.0, *out.CurrentScore)
	assert.Nil(t, out.PriorScore)
	assert.Nil(t, out.Difference)
}

func TestHandler_Execute_Errors(t *testing.T) {
	h := newTestHandler(t, failingReader{})

	_, err := h.Execute(context.Background(), &Input{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))

	_, err = h.Execute(context.Background(), &Input{SupplierID: "A"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataSourceFailed))
}

func TestHandler_Process_ValidatesVariables(t *testing.T) {
	h := newTestHandler(t, serviceWith())
	job := func(vars string) entities.Job {
		return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7, Type: TaskType, Variables: vars}}
	}

	_, err := h.process(context.Background(), job(`{}`))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))

	_, err = h.process(context.Background(), job(`{"supplierId":"A","windowDays":-1}`))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))

	out, err := h.process(context.Background(), job(`{"supplierId":"ghost"}`))
	require.NoError(t, err)
	assert.Equal(t, "new", out.Trend)
	assert.Nil(t, out.CurrentScore)
}
