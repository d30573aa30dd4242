// internal/workers/ranking/recompute-rankings/models.go
package recomputerankings

import (
	"time"

	"supplier-ranking/internal/models"
)

type Input struct {
	RegionID        string `json:"regionId,omitempty"`
	SupplierID      string `json:"supplierId,omitempty"`
	Force           bool   `json:"force,omitempty"`
	DryRun          bool   `json:"dryRun,omitempty"`
	FailWhenBlocked bool   `json:"failWhenBlocked,omitempty"`
}

type Output struct {
	RunID          string                   `json:"runId"`
	Updated        int                      `json:"updated"`
	Errors         int                      `json:"errors"`
	Insufficient   int                      `json:"insufficient"`
	GuardBlocked   bool                     `json:"guardBlocked"`
	LastComputedAt *time.Time               `json:"lastComputedAt,omitempty"`
	Skipped        bool                     `json:"skipped"`
	DryRun         bool                     `json:"dryRun"`
	WindowStart    string                   `json:"windowStart,omitempty"`
	WindowEnd      string                   `json:"windowEnd,omitempty"`
	Configuration  string                   `json:"configuration,omitempty"`
	Regions        []string                 `json:"regions,omitempty"`
	Failures       []models.SupplierFailure `json:"failures,omitempty"`
	DurationMs     int64                    `json:"durationMs"`
}

func newOutput(r *models.RunReport) *Output {
	out := &Output{
		RunID:          r.RunID,
		Updated:        r.Updated,
		Errors:         r.Errors,
		Insufficient:   r.Insufficient,
		GuardBlocked:   r.GuardBlocked,
		LastComputedAt: r.LastComputedAt,
		Skipped:        r.Skipped,
		DryRun:         r.DryRun,
		Configuration:  r.Configuration,
		Regions:        r.Regions,
		Failures:       r.Failures,
		DurationMs:     r.Duration.Milliseconds(),
	}
	if !r.WindowStart.IsZero() {
		out.WindowStart = r.WindowStart.Format(time.DateOnly)
		out.WindowEnd = r.WindowEnd.Format(time.DateOnly)
	}
	return out
}
