// internal/workers/ranking/get-supplier-trend/models.go
package getsuppliertrend

import (
	"time"

	"supplier-ranking/internal/ranking/query"
)

type Input struct {
	SupplierID string `json:"supplierId"`
	WindowDays int    `json:"windowDays,omitempty"`
}

type Output struct {
	SupplierID        string     `json:"supplierId"`
	Trend             string     `json:"trend"`
	WindowDays        int        `json:"windowDays"`
	CurrentScore      *float64   `json:"currentScore,omitempty"`
	CurrentRank       int        `json:"currentRank,omitempty"`
	CurrentComputedAt *time.Time `json:"currentComputedAt,omitempty"`
	PriorScore        *float64   `json:"priorScore,omitempty"`
	PriorComputedAt   *time.Time `json:"priorComputedAt,omitempty"`
	Difference        *float64   `json:"difference,omitempty"`
}

func newOutput(r *query.TrendResult) *Output {
	out := &Output{
		SupplierID: r.SupplierID,
		Trend:      string(r.Trend),
		WindowDays: r.WindowDays,
	}
	if r.Current != nil {
		score := r.Current.TotalScore.InexactFloat64()
		at := r.Current.ComputedAt
		out.CurrentScore, out.CurrentRank, out.CurrentComputedAt = &score, r.Current.Rank, &at
	}
	if r.Prior != nil {
		score := r.Prior.TotalScore.InexactFloat64()
		at := r.Prior.ComputedAt
		out.PriorScore, out.PriorComputedAt = &score, &at
	}
	if r.Current != nil && r.Prior != nil {
		diff := r.Current.TotalScore.Sub(r.Prior.TotalScore).Round(2).InexactFloat64()
		out.Difference = &diff
	}
	return out
}
