package models

import "time"

// SupplierFailure records one isolated per-supplier computation failure.
type SupplierFailure struct {
	SupplierID string `json:"supplierId"`
	RegionID   string `json:"regionId"`
	Error      string `json:"error"`
}

// RunReport summarises a recompute run. A run always yields a report, even
// when it was blocked, skipped or aborted.
type RunReport struct {
	RunID          string            `json:"runId"`
	StartedAt      time.Time         `json:"startedAt"`
	Duration       time.Duration     `json:"duration"`
	Updated        int               `json:"updated"`
	Errors         int               `json:"errors"`
	Insufficient   int               `json:"insufficient"`
	GuardBlocked   bool              `json:"guardBlocked"`
	LastComputedAt *time.Time        `json:"lastComputedAt,omitempty"`
	Skipped        bool              `json:"skipped"`
	DryRun         bool              `json:"dryRun"`
	Forced         bool              `json:"forced"`
	WindowStart    time.Time         `json:"windowStart"`
	WindowEnd      time.Time         `json:"windowEnd"`
	Configuration  string            `json:"configuration,omitempty"`
	Regions        []string          `json:"regions,omitempty"`
	Failures       []SupplierFailure `json:"failures,omitempty"`
	Results        []ScoreSnapshot   `json:"results,omitempty"`
}
