package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates the ranking tables. Suppliers, submissions, orders and
// configurations are owned by the procurement application; they are listed
// so a fresh database can run the service end to end.
const Schema = `
CREATE TABLE IF NOT EXISTS suppliers (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    region_id   TEXT NOT NULL,
    region_code TEXT,
    is_active   BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS price_submissions (
    id                 TEXT PRIMARY KEY,
    supplier_id        TEXT NOT NULL REFERENCES suppliers(id),
    product_id         TEXT NOT NULL,
    region_id          TEXT NOT NULL,
    submission_date    DATE NOT NULL,
    submitted_at       TIMESTAMPTZ NOT NULL,
    unit_price         NUMERIC(12,2) NOT NULL CHECK (unit_price > 0),
    available_quantity NUMERIC(12,2) NOT NULL DEFAULT 0,
    UNIQUE (supplier_id, product_id, submission_date)
);
CREATE INDEX IF NOT EXISTS idx_price_submissions_group
    ON price_submissions (product_id, region_id, submission_date);

CREATE TABLE IF NOT EXISTS purchase_orders (
    id                     TEXT PRIMARY KEY,
    supplier_id            TEXT NOT NULL REFERENCES suppliers(id),
    region_id              TEXT NOT NULL,
    ordered_on             DATE NOT NULL,
    ordered_quantity       NUMERIC(12,2) NOT NULL,
    delivered_quantity     NUMERIC(12,2),
    expected_delivery_date DATE NOT NULL,
    actual_delivery_date   DATE,
    status                 TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_purchase_orders_supplier
    ON purchase_orders (supplier_id, ordered_on);

CREATE TABLE IF NOT EXISTS ranking_configurations (
    id                     TEXT PRIMARY KEY,
    name                   TEXT NOT NULL,
    version                INT NOT NULL DEFAULT 1,
    price_weight           NUMERIC(4,3) NOT NULL,
    consistency_weight     NUMERIC(4,3) NOT NULL,
    reliability_weight     NUMERIC(4,3) NOT NULL,
    fill_weight            NUMERIC(4,3) NOT NULL,
    evaluation_window_days INT NOT NULL DEFAULT 30,
    min_submissions        INT NOT NULL DEFAULT 5,
    is_active              BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_ranking_configurations_active
    ON ranking_configurations (is_active) WHERE is_active;

CREATE TABLE IF NOT EXISTS supplier_score_snapshots (
    id                  TEXT PRIMARY KEY,
    supplier_id         TEXT NOT NULL,
    region_id           TEXT NOT NULL,
    window_start        DATE NOT NULL,
    window_end          DATE NOT NULL,
    price_score         NUMERIC(5,2) NOT NULL,
    consistency_score   NUMERIC(5,2) NOT NULL,
    reliability_score   NUMERIC(5,2) NOT NULL,
    fill_score          NUMERIC(5,2) NOT NULL,
    total_score         NUMERIC(5,2) NOT NULL,
    insufficient_data   BOOLEAN NOT NULL DEFAULT FALSE,
    total_submissions   INT NOT NULL DEFAULT 0,
    on_time_submissions INT NOT NULL DEFAULT 0,
    total_orders        INT NOT NULL DEFAULT 0,
    delivered_orders    INT NOT NULL DEFAULT 0,
    on_time_deliveries  INT NOT NULL DEFAULT 0,
    ordered_quantity    NUMERIC(14,2) NOT NULL DEFAULT 0,
    delivered_quantity  NUMERIC(14,2) NOT NULL DEFAULT 0,
    configuration_id    TEXT,
    run_id              TEXT NOT NULL,
    computed_at         TIMESTAMPTZ NOT NULL,
    is_current          BOOLEAN NOT NULL DEFAULT TRUE,
    rank                INT,
    percentile          NUMERIC(5,2),
    badge               TEXT,
    region_size         INT,
    UNIQUE (supplier_id, region_id, window_start, window_end)
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_supplier_score_snapshots_current
    ON supplier_score_snapshots (supplier_id) WHERE is_current;
CREATE INDEX IF NOT EXISTS idx_supplier_score_snapshots_region
    ON supplier_score_snapshots (region_id, rank) WHERE is_current;

CREATE TABLE IF NOT EXISTS supplier_score_history (
    supplier_id               TEXT NOT NULL,
    region_id                 TEXT NOT NULL,
    history_date              DATE NOT NULL,
    total_score               NUMERIC(5,2) NOT NULL,
    rank_in_region            INT NOT NULL,
    total_suppliers_in_region INT NOT NULL,
    PRIMARY KEY (supplier_id, history_date)
);
`

// Migrate applies Schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
