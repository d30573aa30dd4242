// Package history builds the daily score history and classifies trends
// against an earlier snapshot.
package history

import (
	"sort"
	"time"

	"supplier-ranking/internal/models"
	"supplier-ranking/internal/ranking/scoring"

	"github.com/shopspring/decimal"
)

const DefaultTrendWindowDays = 7

// TrendThreshold is the score movement needed to leave "stable".
var TrendThreshold = decimal.NewFromInt(5)

// TrendCutoff is the date a prior snapshot must be strictly older than.
func TrendCutoff(now time.Time, loc *time.Location, days int) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if days <= 0 {
		days = DefaultTrendWindowDays
	}
	return scoring.DateOf(now.In(loc)).AddDate(0, 0, -days)
}

// Qualifies reports whether s was computed on a date before cutoff.
func Qualifies(s models.ScoreSnapshot, cutoff time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	return scoring.DateOf(s.ComputedAt.In(loc)).Before(cutoff)
}

// SelectPrior returns the newest snapshot computed before cutoff, or nil.
func SelectPrior(snapshots []models.ScoreSnapshot, cutoff time.Time, loc *time.Location) *models.ScoreSnapshot {
	var prior *models.ScoreSnapshot
	for i := range snapshots {
		s := snapshots[i]
		if !Qualifies(s, cutoff, loc) {
			continue
		}
		if prior == nil || s.ComputedAt.After(prior.ComputedAt) {
			prior = &snapshots[i]
		}
	}
	return prior
}

// ClassifyTrend compares the current total with the prior one.
func ClassifyTrend(current, prior *models.ScoreSnapshot) models.Trend {
	if current == nil || prior == nil {
		return models.TrendNew
	}
	diff := current.TotalScore.Sub(prior.TotalScore)
	switch {
	case diff.GreaterThan(TrendThreshold):
		return models.TrendRising
	case diff.LessThan(TrendThreshold.Neg()):
		return models.TrendFalling
	default:
		return models.TrendStable
	}
}

// BuildEntries produces one history row per ranked snapshot for date.
// Snapshots without a placement are skipped.
func BuildEntries(date time.Time, snapshots []models.ScoreSnapshot, placements []models.Placement) []models.ScoreHistoryEntry {
	byID := make(map[string]models.Placement, len(placements))
	for _, p := range placements {
		byID[p.SnapshotID] = p
	}

	day := scoring.DateOf(date)
	entries := make([]models.ScoreHistoryEntry, 0, len(placements))
	for _, s := range snapshots {
		p, ok := byID[s.ID]
		if !ok {
			continue
		}
		entries = append(entries, models.ScoreHistoryEntry{
			SupplierID:             s.SupplierID,
			RegionID:               s.RegionID,
			Date:                   day,
			TotalScore:             s.TotalScore,
			RankInRegion:           p.Rank,
			TotalSuppliersInRegion: p.RegionSize,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RankInRegion < entries[j].RankInRegion })
	return entries
}
