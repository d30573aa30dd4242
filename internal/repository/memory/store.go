// Package memory is an in-process implementation of every repository
// interface. It backs the CLI's --memory mode and the ranking tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"supplier-ranking/internal/models"
	"supplier-ranking/internal/ranking/scoring"
	"supplier-ranking/internal/repository"

	"github.com/shopspring/decimal"
)

type windowKey struct {
	supplierID string
	regionID   string
	start      time.Time
	end        time.Time
}

type historyKey struct {
	supplierID string
	date       time.Time
}

// Store keeps all state behind one RWMutex. Every read returns copies.
type Store struct {
	mu sync.RWMutex

	suppliers   map[string]models.Supplier
	submissions []models.PriceSubmission
	orders      []models.OrderRecord
	configs     []models.RankingConfiguration

	snapshots []models.ScoreSnapshot
	byWindow  map[windowKey]int
	history   map[historyKey]models.ScoreHistoryEntry
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		suppliers: make(map[string]models.Supplier),
		byWindow:  make(map[windowKey]int),
		history:   make(map[historyKey]models.ScoreHistoryEntry),
	}
}

// ---------------------------------------------------------------------------
// Seeding
// ---------------------------------------------------------------------------

func (s *Store) AddSuppliers(suppliers ...models.Supplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sup := range suppliers {
		s.suppliers[sup.ID] = sup
	}
}

func (s *Store) AddSubmissions(subs ...models.PriceSubmission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, subs...)
}

func (s *Store) AddOrders(orders ...models.OrderRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, orders...)
}

// PutConfiguration stores cfg. An active cfg deactivates the others.
func (s *Store) PutConfiguration(cfg models.RankingConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Active {
		for i := range s.configs {
			s.configs[i].Active = false
		}
	}
	s.configs = append(s.configs, cfg)
}

// PutSnapshot stores a snapshot as is, bypassing the batch rules. Used to
// seed history.
func (s *Store) PutSnapshot(snap models.ScoreSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byWindow[keyOf(snap)] = len(s.snapshots)
	s.snapshots = append(s.snapshots, snap)
}

// AllSnapshots returns every snapshot, current or superseded.
func (s *Store) AllSnapshots() []models.ScoreSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ScoreSnapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

func (s *Store) ListActiveSuppliers(ctx context.Context, filter models.PopulationFilter) ([]models.Supplier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Supplier
	for _, sup := range s.suppliers {
		if !sup.Active {
			continue
		}
		if filter.RegionID != "" && sup.RegionID != filter.RegionID {
			continue
		}
		if filter.SupplierID != "" && sup.ID != filter.SupplierID {
			continue
		}
		out = append(out, sup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListPriceSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.PriceSubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.PriceSubmission
	for _, sub := range s.submissions {
		if filter.SupplierID != "" && sub.SupplierID != filter.SupplierID {
			continue
		}
		if filter.RegionID != "" && sub.RegionID != filter.RegionID {
			continue
		}
		if filter.ProductID != "" && sub.ProductID != filter.ProductID {
			continue
		}
		if !inRange(sub.Date, filter.From, filter.To) {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.OrderRecord
	for _, o := range s.orders {
		if filter.SupplierID != "" && o.SupplierID != filter.SupplierID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if !inRange(o.OrderedOn, filter.From, filter.To) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) ActiveConfiguration(ctx context.Context) (*models.RankingConfiguration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.configs) - 1; i >= 0; i-- {
		if s.configs[i].Active {
			cfg := s.configs[i]
			return &cfg, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

func (s *Store) LatestCurrentComputedAt(ctx context.Context) (*time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *time.Time
	for _, snap := range s.snapshots {
		if !snap.IsCurrent {
			continue
		}
		if latest == nil || snap.ComputedAt.After(*latest) {
			t := snap.ComputedAt
			latest = &t
		}
	}
	return latest, nil
}

func (s *Store) CommitBatch(ctx context.Context, batch []models.ScoreSnapshot) (repository.CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return repository.CommitResult{}, err
	}
	seen := make(map[string]bool, len(batch))
	for _, snap := range batch {
		if seen[snap.SupplierID] {
			return repository.CommitResult{}, fmt.Errorf("supplier %s appears twice in batch", snap.SupplierID)
		}
		seen[snap.SupplierID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	regions := make(map[string]bool)
	for i := range s.snapshots {
		if s.snapshots[i].IsCurrent && seen[s.snapshots[i].SupplierID] {
			s.snapshots[i].IsCurrent = false
			regions[s.snapshots[i].RegionID] = true
		}
	}

	committed := make([]models.ScoreSnapshot, 0, len(batch))
	for _, snap := range batch {
		snap.IsCurrent = true
		snap.Rank, snap.RegionSize, snap.Badge = 0, 0, ""
		snap.Percentile = decimal.Zero

		key := keyOf(snap)
		if idx, ok := s.byWindow[key]; ok {
			snap.ID = s.snapshots[idx].ID
			s.snapshots[idx] = snap
		} else {
			s.byWindow[key] = len(s.snapshots)
			s.snapshots = append(s.snapshots, snap)
		}
		regions[snap.RegionID] = true
		committed = append(committed, snap)
	}

	return repository.CommitResult{Snapshots: committed, Regions: sortedKeys(regions)}, nil
}

func (s *Store) CurrentSnapshots(ctx context.Context, regionID string) ([]models.ScoreSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ScoreSnapshot
	for _, snap := range s.snapshots {
		if !snap.IsCurrent {
			continue
		}
		if regionID != "" && snap.RegionID != regionID {
			continue
		}
		out = append(out, snap)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rankKey(out[i].Rank), rankKey(out[j].Rank)
		if ri != rj {
			return ri < rj
		}
		if out[i].RegionID != out[j].RegionID {
			return out[i].RegionID < out[j].RegionID
		}
		return out[i].SupplierID < out[j].SupplierID
	})
	return out, nil
}

func (s *Store) ApplyRanks(ctx context.Context, regionID string, placements []models.Placement, entries []models.ScoreHistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	index := make(map[string]int, len(s.snapshots))
	for i, snap := range s.snapshots {
		index[snap.ID] = i
	}

	// Validate everything before the first write.
	for _, p := range placements {
		idx, ok := index[p.SnapshotID]
		if !ok || !s.snapshots[idx].IsCurrent || s.snapshots[idx].RegionID != regionID {
			return fmt.Errorf("%w: %s", repository.ErrStalePlacement, p.SnapshotID)
		}
	}

	for _, p := range placements {
		snap := &s.snapshots[index[p.SnapshotID]]
		snap.Rank = p.Rank
		snap.Percentile = p.Percentile
		snap.Badge = p.Badge
		snap.RegionSize = p.RegionSize
	}
	for _, e := range entries {
		key := historyKey{supplierID: e.SupplierID, date: scoring.DateOf(e.Date)}
		if _, exists := s.history[key]; exists {
			continue
		}
		s.history[key] = e
	}
	return nil
}

func (s *Store) CurrentSnapshot(ctx context.Context, supplierID string) (*models.ScoreSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, snap := range s.snapshots {
		if snap.IsCurrent && snap.SupplierID == supplierID {
			out := snap
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) LatestSnapshotBefore(ctx context.Context, supplierID string, before time.Time) (*models.ScoreSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.ScoreSnapshot
	for i := range s.snapshots {
		snap := s.snapshots[i]
		if snap.SupplierID != supplierID || !snap.ComputedAt.Before(before) {
			continue
		}
		if found == nil || snap.ComputedAt.After(found.ComputedAt) {
			found = &snap
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (s *Store) History(ctx context.Context, supplierID string, from, to time.Time) ([]models.ScoreHistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ScoreHistoryEntry
	for key, e := range s.history {
		if key.supplierID != supplierID || !inRange(key.date, from, to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func keyOf(snap models.ScoreSnapshot) windowKey {
	return windowKey{
		supplierID: snap.SupplierID,
		regionID:   snap.RegionID,
		start:      scoring.DateOf(snap.WindowStart),
		end:        scoring.DateOf(snap.WindowEnd),
	}
}

// inRange compares calendar dates; zero bounds are open.
func inRange(t, from, to time.Time) bool {
	d := scoring.DateOf(t)
	if !from.IsZero() && d.Before(scoring.DateOf(from)) {
		return false
	}
	if !to.IsZero() && d.After(scoring.DateOf(to)) {
		return false
	}
	return true
}

// rankKey sorts unranked snapshots last.
func rankKey(rank int) int {
	if rank <= 0 {
		return int(^uint(0) >> 1)
	}
	return rank
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
