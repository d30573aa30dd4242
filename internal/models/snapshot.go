package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubScores holds the four factor scores, each within [0, 100].
type SubScores struct {
	Price       decimal.Decimal `json:"price"`
	Consistency decimal.Decimal `json:"consistency"`
	Reliability decimal.Decimal `json:"reliability"`
	Fill        decimal.Decimal `json:"fill"`
}

// Counters are the raw figures behind a snapshot.
type Counters struct {
	TotalSubmissions  int             `json:"totalSubmissions"`
	OnTimeSubmissions int             `json:"onTimeSubmissions"`
	TotalOrders       int             `json:"totalOrders"`
	DeliveredOrders   int             `json:"deliveredOrders"`
	OnTimeDeliveries  int             `json:"onTimeDeliveries"`
	OrderedQuantity   decimal.Decimal `json:"orderedQuantity"`
	DeliveredQuantity decimal.Decimal `json:"deliveredQuantity"`
}

type Badge string

const (
	BadgeTop10            Badge = "top_10"
	BadgeExcellent        Badge = "excellent"
	BadgeGood             Badge = "good"
	BadgeAverage          Badge = "average"
	BadgeNeedsImprovement Badge = "needs_improvement"
)

// ScoreSnapshot is one supplier score for one window. At most one snapshot
// per supplier is current; superseded snapshots stay as history.
type ScoreSnapshot struct {
	ID               string          `json:"id"`
	SupplierID       string          `json:"supplierId"`
	RegionID         string          `json:"regionId"`
	WindowStart      time.Time       `json:"windowStart"`
	WindowEnd        time.Time       `json:"windowEnd"`
	Scores           SubScores       `json:"scores"`
	TotalScore       decimal.Decimal `json:"totalScore"`
	InsufficientData bool            `json:"insufficientData"`
	Counters         Counters        `json:"counters"`
	ConfigurationID  string          `json:"configurationId,omitempty"`
	RunID            string          `json:"runId,omitempty"`
	ComputedAt       time.Time       `json:"computedAt"`
	IsCurrent        bool            `json:"isCurrent"`

	// Set by the ranking pass; zero until the region has been ranked.
	Rank       int             `json:"rank,omitempty"`
	Percentile decimal.Decimal `json:"percentile"`
	Badge      Badge           `json:"badge,omitempty"`
	RegionSize int             `json:"regionSize,omitempty"`
}

// Placement is the ranking pass result for one current snapshot.
type Placement struct {
	SnapshotID string          `json:"snapshotId"`
	SupplierID string          `json:"supplierId"`
	Rank       int             `json:"rank"`
	Percentile decimal.Decimal `json:"percentile"`
	Badge      Badge           `json:"badge"`
	RegionSize int             `json:"regionSize"`
}

// ScoreHistoryEntry is the append-only daily record, one per (supplier, date).
type ScoreHistoryEntry struct {
	SupplierID             string          `json:"supplierId"`
	RegionID               string          `json:"regionId"`
	Date                   time.Time       `json:"date"`
	TotalScore             decimal.Decimal `json:"totalScore"`
	RankInRegion           int             `json:"rankInRegion"`
	TotalSuppliersInRegion int             `json:"totalSuppliersInRegion"`
}

type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
	TrendNew     Trend = "new"
)
