// internal/workers/ranking/get-current-rankings/models.go
package getcurrentrankings

import (
	"time"

	"supplier-ranking/internal/models"
)

type Input struct {
	RegionID string `json:"regionId,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type Output struct {
	RegionID string         `json:"regionId,omitempty"`
	Count    int            `json:"count"`
	Rankings []RankingEntry `json:"rankings"`
}

type RankingEntry struct {
	SupplierID       string    `json:"supplierId"`
	RegionID         string    `json:"regionId"`
	Rank             int       `json:"rank"`
	RegionSize       int       `json:"regionSize"`
	TotalScore       float64   `json:"totalScore"`
	Percentile       float64   `json:"percentile"`
	Badge            string    `json:"badge"`
	PriceScore       float64   `json:"priceScore"`
	ConsistencyScore float64   `json:"consistencyScore"`
	ReliabilityScore float64   `json:"reliabilityScore"`
	FillScore        float64   `json:"fillScore"`
	InsufficientData bool      `json:"insufficientData"`
	ComputedAt       time.Time `json:"computedAt"`
}

func newEntry(s models.ScoreSnapshot) RankingEntry {
	return RankingEntry{
		SupplierID:       s.SupplierID,
		RegionID:         s.RegionID,
		Rank:             s.Rank,
		RegionSize:       s.RegionSize,
		TotalScore:       s.TotalScore.InexactFloat64(),
		Percentile:       s.Percentile.InexactFloat64(),
		Badge:            string(s.Badge),
		PriceScore:       s.Scores.Price.InexactFloat64(),
		ConsistencyScore: s.Scores.Consistency.InexactFloat64(),
		ReliabilityScore: s.Scores.Reliability.InexactFloat64(),
		FillScore:        s.Scores.Fill.InexactFloat64(),
		InsufficientData: s.InsufficientData,
		ComputedAt:       s.ComputedAt,
	}
}
