// Package query answers ranking read requests: current rankings, trend and
// score history.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"supplier-ranking/internal/common/logger"
	"supplier-ranking/internal/common/metrics"
	"supplier-ranking/internal/models"
	"supplier-ranking/internal/ranking/history"
	"supplier-ranking/internal/repository"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

var ErrInvalidLimit = errors.New("invalid rankings limit")

// Cache is the read-through cache of ranked regions.
type Cache interface {
	Get(ctx context.Context, regionID string) ([]models.ScoreSnapshot, bool, error)
	Set(ctx context.Context, regionID string, snapshots []models.ScoreSnapshot) error
}

type Service struct {
	store     repository.SnapshotStore
	cache     Cache
	location  *time.Location
	trendDays int
	log       logger.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store repository.SnapshotStore, loc *time.Location, trendDays int, log logger.Logger, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if trendDays <= 0 {
		trendDays = history.DefaultTrendWindowDays
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	s := &Service{
		store:     store,
		location:  loc,
		trendDays: trendDays,
		log:       logger.Component(log, "query"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCurrentRankings returns current snapshots ordered by rank. A zero
// limit means DefaultLimit. Cache failures fall back to the store.
func (s *Service) GetCurrentRankings(ctx context.Context, regionID string, limit int) ([]models.ScoreSnapshot, error) {
	if limit < 0 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if limit == 0 {
		limit = DefaultLimit
	}

	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, regionID)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			s.log.Warn("ranking cache read failed", map[string]interface{}{"regionId": regionID, "error": err.Error()})
		case hit:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return truncate(cached, limit), nil
		default:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	snapshots, err := s.store.CurrentSnapshots(ctx, regionID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, regionID, snapshots); err != nil {
			s.log.Warn("ranking cache write failed", map[string]interface{}{"regionId": regionID, "error": err.Error()})
		}
	}
	return truncate(snapshots, limit), nil
}

// TrendResult explains a trend classification.
type TrendResult struct {
	SupplierID string                `json:"supplierId"`
	Trend      models.Trend          `json:"trend"`
	WindowDays int                   `json:"windowDays"`
	Current    *models.ScoreSnapshot `json:"current,omitempty"`
	Prior      *models.ScoreSnapshot `json:"prior,omitempty"`
}

// GetTrend compares the current snapshot with the newest one computed on a
// date before today minus days. A zero days uses the configured window.
func (s *Service) GetTrend(ctx context.Context, supplierID string, days int) (*TrendResult, error) {
	if days <= 0 {
		days = s.trendDays
	}
	result := &TrendResult{SupplierID: supplierID, Trend: models.TrendNew, WindowDays: days}

	current, err := s.store.CurrentSnapshot(ctx, supplierID)
	if errors.Is(err, repository.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Current = current

	cutoff := history.TrendCutoff(s.now(), s.location, days)
	before := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, s.location)

	prior, err := s.store.LatestSnapshotBefore(ctx, supplierID, before)
	if errors.Is(err, repository.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Prior = prior
	result.Trend = history.ClassifyTrend(current, prior)
	return result, nil
}

// GetHistory returns history entries in [from, to], newest first. Zero
// bounds are open.
func (s *Service) GetHistory(ctx context.Context, supplierID string, from, to time.Time) ([]models.ScoreHistoryEntry, error) {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, fmt.Errorf("history range starts after it ends")
	}
	return s.store.History(ctx, supplierID, from, to)
}

func truncate(snapshots []models.ScoreSnapshot, limit int) []models.ScoreSnapshot {
	if len(snapshots) > limit {
		return snapshots[:limit]
	}
	return snapshots
}
