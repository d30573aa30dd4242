// Package repository defines the read sources and the snapshot store the
// ranking core depends on.
package repository

import (
	"context"
	"time"

	"supplier-ranking/internal/models"
)

// SupplierDirectory lists suppliers eligible for ranking.
type SupplierDirectory interface {
	ListActiveSuppliers(ctx context.Context, filter models.PopulationFilter) ([]models.Supplier, error)
}

// SubmissionSource reads price submissions.
type SubmissionSource interface {
	ListPriceSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.PriceSubmission, error)
}

// OrderSource reads purchase orders.
type OrderSource interface {
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.OrderRecord, error)
}

// ConfigurationSource returns the active ranking configuration.
// Returns ErrNotFound when none is active.
type ConfigurationSource interface {
	ActiveConfiguration(ctx context.Context) (*models.RankingConfiguration, error)
}

// SnapshotStore owns score snapshots and the daily history.
type SnapshotStore interface {
	// LatestCurrentComputedAt returns the newest computed_at among current
	// snapshots, or nil when there are none.
	LatestCurrentComputedAt(ctx context.Context) (*time.Time, error)

	// CommitBatch makes every snapshot current, superseding the prior current
	// snapshot of each supplier. It is all-or-nothing. A snapshot for a
	// window that already exists replaces that row and keeps its id.
	CommitBatch(ctx context.Context, snapshots []models.ScoreSnapshot) (CommitResult, error)

	// CurrentSnapshots returns current snapshots ordered by rank, then
	// supplier id. An empty regionID returns every region.
	CurrentSnapshots(ctx context.Context, regionID string) ([]models.ScoreSnapshot, error)

	// ApplyRanks stores placements and appends history entries for one region
	// atomically. Existing (supplier, date) history rows are kept.
	ApplyRanks(ctx context.Context, regionID string, placements []models.Placement, entries []models.ScoreHistoryEntry) error

	// CurrentSnapshot returns the supplier's current snapshot or ErrNotFound.
	CurrentSnapshot(ctx context.Context, supplierID string) (*models.ScoreSnapshot, error)

	// LatestSnapshotBefore returns the supplier's newest snapshot, current or
	// superseded, computed strictly before the instant, or ErrNotFound.
	LatestSnapshotBefore(ctx context.Context, supplierID string, before time.Time) (*models.ScoreSnapshot, error)

	// History returns entries with from <= date <= to, newest first.
	History(ctx context.Context, supplierID string, from, to time.Time) ([]models.ScoreHistoryEntry, error)
}

// CommitResult is what a batch commit persisted.
type CommitResult struct {
	// Snapshots carry the ids they were stored under.
	Snapshots []models.ScoreSnapshot
	// Regions whose current set changed, including regions a supplier left.
	Regions []string
}

// Store is a backend serving every source and the snapshot store.
type Store interface {
	SupplierDirectory
	SubmissionSource
	OrderSource
	ConfigurationSource
	SnapshotStore
}
