// Package assign orders the current snapshots of a region and derives
// rank, percentile and badge for each.
package assign

import (
	"errors"
	"fmt"
	"sort"

	"supplier-ranking/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrMixedRegions      = errors.New("snapshots span more than one region")
	ErrDuplicateSupplier = errors.New("supplier has more than one current snapshot")
	ErrNotCurrent        = errors.New("snapshot is not current")
)

var hundred = decimal.NewFromInt(100)

// Less orders a before b: higher total first, then supplier id ascending.
func Less(a, b models.ScoreSnapshot) bool {
	if c := a.TotalScore.Cmp(b.TotalScore); c != 0 {
		return c > 0
	}
	return a.SupplierID < b.SupplierID
}

// Assign ranks every snapshot of one region. The supplier id tie-break
// makes the order total, so each supplier gets a distinct rank and equal
// inputs always produce equal output. The input slice is not modified.
func Assign(snapshots []models.ScoreSnapshot) ([]models.Placement, error) {
	if len(snapshots) == 0 {
		return nil, nil
	}

	region := snapshots[0].RegionID
	seen := make(map[string]bool, len(snapshots))
	for _, s := range snapshots {
		if s.RegionID != region {
			return nil, fmt.Errorf("%w: %s and %s", ErrMixedRegions, region, s.RegionID)
		}
		if !s.IsCurrent {
			return nil, fmt.Errorf("%w: %s", ErrNotCurrent, s.ID)
		}
		if seen[s.SupplierID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSupplier, s.SupplierID)
		}
		seen[s.SupplierID] = true
	}

	ordered := make([]models.ScoreSnapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.SliceStable(ordered, func(i, j int) bool { return Less(ordered[i], ordered[j]) })

	n := len(ordered)
	placements := make([]models.Placement, n)
	for i, s := range ordered {
		rank := i + 1
		pct := Percentile(rank, n)
		placements[i] = models.Placement{
			SnapshotID: s.ID,
			SupplierID: s.SupplierID,
			Rank:       rank,
			Percentile: pct,
			Badge:      BadgeFor(pct),
			RegionSize: n,
		}
	}
	return placements, nil
}

// Percentile is (n - rank + 1) / n * 100, rounded to two places.
func Percentile(rank, n int) decimal.Decimal {
	if n <= 0 || rank <= 0 || rank > n {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(n - rank + 1)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(n))).
		Round(2)
}

var badgeThresholds = []struct {
	min   decimal.Decimal
	badge models.Badge
}{
	{decimal.NewFromInt(90), models.BadgeTop10},
	{decimal.NewFromInt(75), models.BadgeExcellent},
	{decimal.NewFromInt(50), models.BadgeGood},
	{decimal.NewFromInt(25), models.BadgeAverage},
}

func BadgeFor(percentile decimal.Decimal) models.Badge {
	for _, t := range badgeThresholds {
		if percentile.GreaterThanOrEqual(t.min) {
			return t.badge
		}
	}
	return models.BadgeNeedsImprovement
}

// Apply copies placements onto the matching snapshots by id.
func Apply(snapshots []models.ScoreSnapshot, placements []models.Placement) []models.ScoreSnapshot {
	byID := make(map[string]models.Placement, len(placements))
	for _, p := range placements {
		byID[p.SnapshotID] = p
	}

	out := make([]models.ScoreSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if p, ok := byID[s.ID]; ok {
			s.Rank = p.Rank
			s.Percentile = p.Percentile
			s.Badge = p.Badge
			s.RegionSize = p.RegionSize
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}
