package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"supplier-ranking/internal/common/database"
	"supplier-ranking/internal/models"
	"supplier-ranking/internal/repository"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const snapshotColumns = `id, supplier_id, region_id, window_start, window_end,
	price_score, consistency_score, reliability_score, fill_score, total_score, insufficient_data,
	total_submissions, on_time_submissions, total_orders, delivered_orders, on_time_deliveries,
	ordered_quantity, delivered_quantity, COALESCE(configuration_id, ''), run_id, computed_at, is_current,
	rank, percentile, badge, region_size`

const supersedeQuery = `UPDATE supplier_score_snapshots SET is_current = FALSE
	WHERE is_current = TRUE AND supplier_id = ANY($1)
	RETURNING region_id`

const upsertSnapshotQuery = `INSERT INTO supplier_score_snapshots (
	id, supplier_id, region_id, window_start, window_end,
	price_score, consistency_score, reliability_score, fill_score, total_score, insufficient_data,
	total_submissions, on_time_submissions, total_orders, delivered_orders, on_time_deliveries,
	ordered_quantity, delivered_quantity, configuration_id, run_id, computed_at, is_current
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NULLIF($19, ''), $20, $21, TRUE)
ON CONFLICT (supplier_id, region_id, window_start, window_end) DO UPDATE SET
	price_score = EXCLUDED.price_score,
	consistency_score = EXCLUDED.consistency_score,
	reliability_score = EXCLUDED.reliability_score,
	fill_score = EXCLUDED.fill_score,
	total_score = EXCLUDED.total_score,
	insufficient_data = EXCLUDED.insufficient_data,
	total_submissions = EXCLUDED.total_submissions,
	on_time_submissions = EXCLUDED.on_time_submissions,
	total_orders = EXCLUDED.total_orders,
	delivered_orders = EXCLUDED.delivered_orders,
	on_time_deliveries = EXCLUDED.on_time_deliveries,
	ordered_quantity = EXCLUDED.ordered_quantity,
	delivered_quantity = EXCLUDED.delivered_quantity,
	configuration_id = EXCLUDED.configuration_id,
	run_id = EXCLUDED.run_id,
	computed_at = EXCLUDED.computed_at,
	is_current = TRUE,
	rank = NULL,
	percentile = NULL,
	badge = NULL,
	region_size = NULL
RETURNING id`

const applyRankQuery = `UPDATE supplier_score_snapshots
	SET rank = $2, percentile = $3, badge = $4, region_size = $5
	WHERE id = $1 AND region_id = $6 AND is_current = TRUE`

const insertHistoryQuery = `INSERT INTO supplier_score_history (
	supplier_id, region_id, history_date, total_score, rank_in_region, total_suppliers_in_region
) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (supplier_id, history_date) DO NOTHING`

func (s *Store) LatestCurrentComputedAt(ctx context.Context) (*time.Time, error) {
	var latest sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(computed_at) FROM supplier_score_snapshots WHERE is_current = TRUE`,
	).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("latest computed_at: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

// CommitBatch supersedes and upserts the whole batch in one transaction.
func (s *Store) CommitBatch(ctx context.Context, batch []models.ScoreSnapshot) (repository.CommitResult, error) {
	var result repository.CommitResult
	if len(batch) == 0 {
		return result, nil
	}

	supplierIDs := make([]string, 0, len(batch))
	for _, snap := range batch {
		supplierIDs = append(supplierIDs, snap.SupplierID)
	}

	regions := make(map[string]bool)
	err := database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, supersedeQuery, pq.Array(supplierIDs))
		if err != nil {
			return fmt.Errorf("supersede current snapshots: %w", err)
		}
		for rows.Next() {
			var region string
			if err := rows.Scan(&region); err != nil {
				rows.Close()
				return fmt.Errorf("scan superseded region: %w", err)
			}
			regions[region] = true
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		committed := make([]models.ScoreSnapshot, 0, len(batch))
		for _, snap := range batch {
			var id string
			err := tx.QueryRowContext(ctx, upsertSnapshotQuery,
				snap.ID, snap.SupplierID, snap.RegionID, snap.WindowStart, snap.WindowEnd,
				snap.Scores.Price, snap.Scores.Consistency, snap.Scores.Reliability, snap.Scores.Fill,
				snap.TotalScore, snap.InsufficientData,
				snap.Counters.TotalSubmissions, snap.Counters.OnTimeSubmissions, snap.Counters.TotalOrders,
				snap.Counters.DeliveredOrders, snap.Counters.OnTimeDeliveries,
				snap.Counters.OrderedQuantity, snap.Counters.DeliveredQuantity,
				snap.ConfigurationID, snap.RunID, snap.ComputedAt,
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("upsert snapshot for %s: %w", snap.SupplierID, err)
			}

			snap.ID = id
			snap.IsCurrent = true
			snap.Rank, snap.RegionSize, snap.Badge = 0, 0, ""
			snap.Percentile = decimal.Zero
			committed = append(committed, snap)
			regions[snap.RegionID] = true
		}
		result.Snapshots = committed
		return nil
	})
	if err != nil {
		return repository.CommitResult{}, err
	}

	for r := range regions {
		result.Regions = append(result.Regions, r)
	}
	sort.Strings(result.Regions)
	return result, nil
}

func (s *Store) CurrentSnapshots(ctx context.Context, regionID string) ([]models.ScoreSnapshot, error) {
	var c conditions
	c.fixed("is_current = TRUE")
	if regionID != "" {
		c.add("region_id = $%d", regionID)
	}

	query := `SELECT ` + snapshotColumns + ` FROM supplier_score_snapshots` + c.where() +
		` ORDER BY rank ASC NULLS LAST, region_id, supplier_id`
	return s.querySnapshots(ctx, query, c.args...)
}

// ApplyRanks writes placements and history for one region. A placement
// that no longer matches a current snapshot of the region rolls back the
// whole region.
func (s *Store) ApplyRanks(ctx context.Context, regionID string, placements []models.Placement, entries []models.ScoreHistoryEntry) error {
	return database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		for _, p := range placements {
			res, err := tx.ExecContext(ctx, applyRankQuery,
				p.SnapshotID, p.Rank, p.Percentile, string(p.Badge), p.RegionSize, regionID)
			if err != nil {
				return fmt.Errorf("apply rank to %s: %w", p.SnapshotID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n != 1 {
				return fmt.Errorf("%w: %s", repository.ErrStalePlacement, p.SnapshotID)
			}
		}

		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, insertHistoryQuery,
				e.SupplierID, e.RegionID, e.Date, e.TotalScore, e.RankInRegion, e.TotalSuppliersInRegion,
			); err != nil {
				return fmt.Errorf("append history for %s: %w", e.SupplierID, err)
			}
		}
		return nil
	})
}

func (s *Store) CurrentSnapshot(ctx context.Context, supplierID string) (*models.ScoreSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM supplier_score_snapshots
		WHERE supplier_id = $1 AND is_current = TRUE`
	return s.querySnapshot(ctx, query, supplierID)
}

func (s *Store) LatestSnapshotBefore(ctx context.Context, supplierID string, before time.Time) (*models.ScoreSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM supplier_score_snapshots
		WHERE supplier_id = $1 AND computed_at < $2
		ORDER BY computed_at DESC LIMIT 1`
	return s.querySnapshot(ctx, query, supplierID, before)
}

func (s *Store) History(ctx context.Context, supplierID string, from, to time.Time) ([]models.ScoreHistoryEntry, error) {
	var c conditions
	c.add("supplier_id = $%d", supplierID)
	if !from.IsZero() {
		c.add("history_date >= $%d", from)
	}
	if !to.IsZero() {
		c.add("history_date <= $%d", to)
	}

	query := `SELECT supplier_id, region_id, history_date, total_score, rank_in_region, total_suppliers_in_region
		FROM supplier_score_history` + c.where() + ` ORDER BY history_date DESC`
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("score history: %w", err)
	}
	defer rows.Close()

	var out []models.ScoreHistoryEntry
	for rows.Next() {
		var e models.ScoreHistoryEntry
		if err := rows.Scan(&e.SupplierID, &e.RegionID, &e.Date, &e.TotalScore, &e.RankInRegion, &e.TotalSuppliersInRegion); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) querySnapshot(ctx context.Context, query string, args ...interface{}) (*models.ScoreSnapshot, error) {
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) querySnapshots(ctx context.Context, query string, args ...interface{}) ([]models.ScoreSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.ScoreSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

func scanSnapshot(row rowScanner) (*models.ScoreSnapshot, error) {
	var (
		snap       models.ScoreSnapshot
		rank       sql.NullInt64
		percentile decimal.NullDecimal
		badge      sql.NullString
		regionSize sql.NullInt64
	)
	err := row.Scan(
		&snap.ID, &snap.SupplierID, &snap.RegionID, &snap.WindowStart, &snap.WindowEnd,
		&snap.Scores.Price, &snap.Scores.Consistency, &snap.Scores.Reliability, &snap.Scores.Fill,
		&snap.TotalScore, &snap.InsufficientData,
		&snap.Counters.TotalSubmissions, &snap.Counters.OnTimeSubmissions, &snap.Counters.TotalOrders,
		&snap.Counters.DeliveredOrders, &snap.Counters.OnTimeDeliveries,
		&snap.Counters.OrderedQuantity, &snap.Counters.DeliveredQuantity,
		&snap.ConfigurationID, &snap.RunID, &snap.ComputedAt, &snap.IsCurrent,
		&rank, &percentile, &badge, &regionSize,
	)
	if err != nil {
		return nil, err
	}

	snap.Rank = int(rank.Int64)
	if percentile.Valid {
		snap.Percentile = percentile.Decimal
	}
	snap.Badge = models.Badge(badge.String)
	snap.RegionSize = int(regionSize.Int64)
	return &snap, nil
}
