package history

import (
	"testing"
	"time"

	"supplier-ranking/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(total string, computed time.Time) *models.ScoreSnapshot {
	return &models.ScoreSnapshot{
		ID:         "s-" + computed.Format("20060102"),
		SupplierID: "A",
		RegionID:   "north",
		TotalScore: decimal.RequireFromString(total),
		ComputedAt: computed,
	}
}

func TestClassifyTrend(t *testing.T) {
	now := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		current string
		prior   string
		want    models.Trend
	}{
		{"rising above threshold", "80", "74.99", models.TrendRising},
		{"exactly five up is stable", "80", "75", models.TrendStable},
		{"exactly five down is stable", "70", "75", models.TrendStable},
		{"falling below threshold", "69.99", "75", models.TrendFalling},
		{"no movement", "50", "50", models.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyTrend(at(tt.current, now), at(tt.prior, now.AddDate(0, 0, -10)))
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, models.TrendNew, ClassifyTrend(at("50", now), nil))
	assert.Equal(t, models.TrendNew, ClassifyTrend(nil, at("50", now)))
}

func TestTrendCutoff_UsesLocalDate(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 20:00 UTC on the 19th is already the 20th in Kolkata.
	now := time.Date(2024, 3, 19, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), TrendCutoff(now, kolkata, 7))
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), TrendCutoff(now, time.UTC, 7))
	assert.Equal(t, TrendCutoff(now, time.UTC, 7), TrendCutoff(now, nil, 0))
}

func TestSelectPrior_StrictlyBeforeCutoff(t *testing.T) {
	now := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	cutoff := TrendCutoff(now, time.UTC, 7) // 2024-03-13

	snapshots := []models.ScoreSnapshot{
		*at("40", time.Date(2024, 3, 13, 1, 0, 0, 0, time.UTC)), // on the cutoff date, excluded
		*at("30", time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC)),
		*at("35", time.Date(2024, 3, 12, 23, 0, 0, 0, time.UTC)),
		*at("90", time.Date(2024, 3, 19, 1, 0, 0, 0, time.UTC)),
	}

	prior := SelectPrior(snapshots, cutoff, time.UTC)
	require.NotNil(t, prior)
	assert.Equal(t, "35", prior.TotalScore.String())

	assert.Nil(t, SelectPrior(snapshots[3:], cutoff, time.UTC))
}

func TestBuildEntries(t *testing.T) {
	snapshots := []models.ScoreSnapshot{
		{ID: "s1", SupplierID: "A", RegionID: "north", TotalScore: decimal.RequireFromString("60")},
		{ID: "s2", SupplierID: "B", RegionID: "north", TotalScore: decimal.RequireFromString("82")},
		{ID: "s3", SupplierID: "C", RegionID: "north", TotalScore: decimal.RequireFromString("10")},
	}
	placements := []models.Placement{
		{SnapshotID: "s2", SupplierID: "B", Rank: 1, RegionSize: 2},
		{SnapshotID: "s1", SupplierID: "A", Rank: 2, RegionSize: 2},
	}

	entries := BuildEntries(time.Date(2024, 3, 20, 18, 30, 0, 0, time.UTC), snapshots, placements)
	require.Len(t, entries, 2)

	assert.Equal(t, "B", entries[0].SupplierID)
	assert.Equal(t, 1, entries[0].RankInRegion)
	assert.Equal(t, 2, entries[0].TotalSuppliersInRegion)
	assert.Equal(t, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), entries[0].Date)
	assert.Equal(t, "A", entries[1].SupplierID)
	assert.True(t, decimal.RequireFromString("60").Equal(entries[1].TotalScore))
}
