package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"supplier-ranking/internal/models"
	"supplier-ranking/internal/repository"
)

func (s *Store) ListActiveSuppliers(ctx context.Context, filter models.PopulationFilter) ([]models.Supplier, error) {
	var c conditions
	c.fixed("is_active = TRUE")
	if filter.RegionID != "" {
		c.add("region_id = $%d", filter.RegionID)
	}
	if filter.SupplierID != "" {
		c.add("id = $%d", filter.SupplierID)
	}

	query := `SELECT id, name, region_id, COALESCE(region_code, ''), is_active FROM suppliers` +
		c.where() + ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var out []models.Supplier
	for rows.Next() {
		var sup models.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.RegionID, &sup.RegionCode, &sup.Active); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		out = append(out, sup)
	}
	return out, rows.Err()
}

func (s *Store) ListPriceSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.PriceSubmission, error) {
	var c conditions
	if filter.SupplierID != "" {
		c.add("supplier_id = $%d", filter.SupplierID)
	}
	if filter.RegionID != "" {
		c.add("region_id = $%d", filter.RegionID)
	}
	if filter.ProductID != "" {
		c.add("product_id = $%d", filter.ProductID)
	}
	if !filter.From.IsZero() {
		c.add("submission_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		c.add("submission_date <= $%d", filter.To)
	}

	query := `SELECT id, supplier_id, product_id, region_id, submission_date, submitted_at, unit_price, available_quantity
		FROM price_submissions` + c.where() + ` ORDER BY submission_date, id`
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list price submissions: %w", err)
	}
	defer rows.Close()

	var out []models.PriceSubmission
	for rows.Next() {
		var p models.PriceSubmission
		if err := rows.Scan(&p.ID, &p.SupplierID, &p.ProductID, &p.RegionID, &p.Date, &p.SubmittedAt, &p.UnitPrice, &p.AvailableQuantity); err != nil {
			return nil, fmt.Errorf("scan price submission: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.OrderRecord, error) {
	var c conditions
	if filter.SupplierID != "" {
		c.add("supplier_id = $%d", filter.SupplierID)
	}
	if !filter.From.IsZero() {
		c.add("ordered_on >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		c.add("ordered_on <= $%d", filter.To)
	}
	if filter.Status != "" {
		c.add("status = $%d", string(filter.Status))
	}

	query := `SELECT id, supplier_id, region_id, ordered_on, ordered_quantity, delivered_quantity,
		expected_delivery_date, actual_delivery_date, status
		FROM purchase_orders` + c.where() + ` ORDER BY ordered_on, id`
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []models.OrderRecord
	for rows.Next() {
		var (
			o      models.OrderRecord
			actual sql.NullTime
			status string
		)
		if err := rows.Scan(&o.ID, &o.SupplierID, &o.RegionID, &o.OrderedOn, &o.OrderedQuantity, &o.DeliveredQuantity,
			&o.ExpectedDeliveryDate, &actual, &status); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if actual.Valid {
			t := actual.Time
			o.ActualDeliveryDate = &t
		}
		o.Status = models.OrderStatus(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) ActiveConfiguration(ctx context.Context) (*models.RankingConfiguration, error) {
	query := `SELECT id, name, version, price_weight, consistency_weight, reliability_weight, fill_weight,
		evaluation_window_days, min_submissions, is_active, updated_at
		FROM ranking_configurations WHERE is_active = TRUE ORDER BY updated_at DESC LIMIT 1`

	var cfg models.RankingConfiguration
	err := s.db.QueryRowContext(ctx, query).Scan(
		&cfg.ID, &cfg.Name, &cfg.Version,
		&cfg.Weights.Price, &cfg.Weights.Consistency, &cfg.Weights.Reliability, &cfg.Weights.Fill,
		&cfg.EvaluationWindowDays, &cfg.MinSubmissions, &cfg.Active, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("active configuration: %w", err)
	}
	return &cfg, nil
}
