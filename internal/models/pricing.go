package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSubmission is one daily price quote. At most one exists per
// (supplier, product, date).
type PriceSubmission struct {
	ID                string          `json:"id"`
	SupplierID        string          `json:"supplierId"`
	ProductID         string          `json:"productId"`
	RegionID          string          `json:"regionId"`
	Date              time.Time       `json:"date"`
	SubmittedAt       time.Time       `json:"submittedAt"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	AvailableQuantity decimal.Decimal `json:"availableQuantity"`
}

// SubmissionFilter selects submissions in the inclusive date range [From, To].
// Empty ids match everything.
type SubmissionFilter struct {
	SupplierID string
	RegionID   string
	ProductID  string
	From       time.Time
	To         time.Time
}

// PriceGroup keys the price benchmark of one product in one region.
type PriceGroup struct {
	ProductID string `json:"productId"`
	RegionID  string `json:"regionId"`
}

// PriceBenchmark summarises every submission of a group inside a window.
type PriceBenchmark struct {
	PriceGroup
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
	Mean   decimal.Decimal `json:"mean"`
	Median decimal.Decimal `json:"median"`
	Count  int             `json:"count"`
}
