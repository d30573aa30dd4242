// Package recompute drives a batch ranking run: select suppliers, guard
// against duplicate runs, score every supplier in parallel, commit the
// batch atomically and re-rank the affected regions.
package recompute

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"supplier-ranking/internal/common/logger"
	"supplier-ranking/internal/common/metrics"
	"supplier-ranking/internal/models"
	"supplier-ranking/internal/ranking/assign"
	"supplier-ranking/internal/ranking/history"
	"supplier-ranking/internal/ranking/scoring"
	"supplier-ranking/internal/repository"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrSupplierComputationFailed = errors.New("supplier computation failed")
	ErrRankingInconsistent       = errors.New("current snapshot set changed before ranking")
	ErrCommitFailed              = errors.New("snapshot batch commit failed")
	ErrDataSource                = errors.New("data source failed")
)

// Outcome labels for metrics and logs.
const (
	OutcomeCompleted    = "completed"
	OutcomeSkipped      = "skipped"
	OutcomeGuardBlocked = "guard_blocked"
	OutcomeDryRun       = "dry_run"
	OutcomeFailed       = "failed"
)

// OutcomeOf labels a finished run.
func OutcomeOf(report *models.RunReport, err error) string {
	switch {
	case err != nil || report == nil:
		return OutcomeFailed
	case report.Skipped:
		return OutcomeSkipped
	case report.GuardBlocked:
		return OutcomeGuardBlocked
	case report.DryRun:
		return OutcomeDryRun
	default:
		return OutcomeCompleted
	}
}

// Options narrow and steer one run.
type Options struct {
	RegionID   string
	SupplierID string
	Force      bool
	DryRun     bool
}

// Settings are the process-wide knobs of the orchestrator.
type Settings struct {
	Enabled               bool
	GuardWindow           time.Duration
	Parallelism           int
	DefaultWeights        string
	DefaultWindowDays     int
	DefaultMinSubmissions int
	Location              *time.Location
}

// Sources groups the read and write dependencies.
type Sources struct {
	Suppliers      repository.SupplierDirectory
	Submissions    repository.SubmissionSource
	Orders         repository.OrderSource
	Configurations repository.ConfigurationSource
	Snapshots      repository.SnapshotStore
}

// SourcesFrom uses one backend for every source.
func SourcesFrom(store repository.Store) Sources {
	return Sources{
		Suppliers:      store,
		Submissions:    store,
		Orders:         store,
		Configurations: store,
		Snapshots:      store,
	}
}

// CacheInvalidator drops cached rankings of the given regions.
type CacheInvalidator interface {
	InvalidateRegions(ctx context.Context, regions []string) error
}

// Publisher pushes a region's ranked snapshots to downstream readers.
type Publisher interface {
	PublishRegion(ctx context.Context, regionID string, snapshots []models.ScoreSnapshot) error
}

type Orchestrator struct {
	src      Sources
	engine   *scoring.Engine
	settings Settings
	log      logger.Logger

	cache     CacheInvalidator
	publisher Publisher
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithCache(c CacheInvalidator) Option {
	return func(o *Orchestrator) { o.cache = c }
}

func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

func New(src Sources, engine *scoring.Engine, settings Settings, log logger.Logger, opts ...Option) *Orchestrator {
	if settings.Parallelism <= 0 {
		settings.Parallelism = 1
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	o := &Orchestrator{
		src:      src,
		engine:   engine,
		settings: settings,
		log:      logger.Component(log, "recompute"),
		tracer:   otel.Tracer("supplier-ranking/recompute"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one batch. It always returns a report; err is non-nil only
// when the run aborted.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (report *models.RunReport, err error) {
	started := o.now()
	report = &models.RunReport{
		RunID:     o.newID(),
		StartedAt: started,
		DryRun:    opts.DryRun,
		Forced:    opts.Force,
	}

	ctx, span := o.tracer.Start(ctx, "recompute.Run", trace.WithAttributes(
		attribute.String("run.id", report.RunID),
		attribute.String("filter.region", opts.RegionID),
		attribute.String("filter.supplier", opts.SupplierID),
		attribute.Bool("force", opts.Force),
		attribute.Bool("dry_run", opts.DryRun),
	))
	log := o.log.WithFields(map[string]interface{}{"runId": report.RunID})

	defer func() {
		report.Duration = o.now().Sub(started)
		outcome := OutcomeOf(report, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.String("outcome", outcome),
			attribute.Int("updated", report.Updated),
			attribute.Int("errors", report.Errors),
		)
		span.End()

		metrics.RankingRuns.WithLabelValues(outcome).Inc()
		metrics.RankingRunDuration.WithLabelValues(outcome).Observe(report.Duration.Seconds())
		log.Info("recompute finished", map[string]interface{}{
			"outcome":      outcome,
			"updated":      report.Updated,
			"errors":       report.Errors,
			"insufficient": report.Insufficient,
			"durationMs":   report.Duration.Milliseconds(),
		})
	}()

	if !o.settings.Enabled {
		report.Skipped = true
		return report, nil
	}

	cfg, err := o.configuration(ctx)
	if err != nil {
		return report, err
	}
	report.Configuration = cfg.Name

	suppliers, err := o.src.Suppliers.ListActiveSuppliers(ctx, models.PopulationFilter{
		RegionID:   opts.RegionID,
		SupplierID: opts.SupplierID,
	})
	if err != nil {
		return report, fmt.Errorf("%w: list suppliers: %v", ErrDataSource, err)
	}

	if !opts.Force {
		blocked, last, err := o.guard(ctx, started)
		if err != nil {
			return report, err
		}
		if blocked {
			report.GuardBlocked = true
			report.LastComputedAt = last
			log.Info("recent scores exist, run skipped", map[string]interface{}{
				"lastComputedAt": last.UTC().Format(time.RFC3339),
			})
			return report, nil
		}
	}

	window := scoring.EvaluationWindow(started, o.settings.Location, cfg.EvaluationWindowDays)
	report.WindowStart, report.WindowEnd = window.Start, window.End

	benchmarks, err := o.benchmarks(ctx, window)
	if err != nil {
		return report, err
	}

	snapshots, failures := o.computeAll(ctx, suppliers, window, benchmarks, cfg, report.RunID, started)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	report.Failures = failures
	report.Errors = len(failures)
	for _, s := range snapshots {
		if s.InsufficientData {
			report.Insufficient++
		}
	}

	if opts.DryRun {
		report.Results = snapshots
		report.Regions = regionsOf(snapshots)
		return report, nil
	}
	if len(snapshots) == 0 {
		return report, nil
	}

	committed, err := o.src.Snapshots.CommitBatch(ctx, snapshots)
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	report.Updated = len(committed.Snapshots)
	report.Regions = committed.Regions
	for _, s := range committed.Snapshots {
		metrics.SuppliersScored.WithLabelValues(s.RegionID).Inc()
		if s.InsufficientData {
			metrics.InsufficientData.WithLabelValues(s.RegionID).Inc()
		}
	}

	ranked, err := o.rerank(ctx, committed, window.End)
	report.Results = ranked
	if err != nil {
		o.invalidate(ctx, committed.Regions)
		return report, err
	}

	o.afterCommit(ctx, committed.Regions)
	return report, nil
}

// configuration loads the active configuration or builds the default one.
// Either way it is validated before any score uses it.
func (o *Orchestrator) configuration(ctx context.Context) (*models.RankingConfiguration, error) {
	cfg, err := o.src.Configurations.ActiveConfiguration(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		cfg, err = scoring.DefaultConfiguration(o.settings.DefaultWeights, o.settings.DefaultWindowDays, o.settings.DefaultMinSubmissions)
		if err != nil {
			return nil, err
		}
		o.log.Warn("no active configuration, using defaults", map[string]interface{}{
			"weights": o.settings.DefaultWeights,
		})
	case err != nil:
		return nil, fmt.Errorf("%w: active configuration: %v", ErrDataSource, err)
	}

	if err := scoring.ValidateConfiguration(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *Orchestrator) guard(ctx context.Context, now time.Time) (bool, *time.Time, error) {
	last, err := o.src.Snapshots.LatestCurrentComputedAt(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("%w: latest computed-at: %v", ErrDataSource, err)
	}
	if last == nil {
		return false, nil, nil
	}
	return now.Sub(*last) < o.settings.GuardWindow, last, nil
}

// benchmarks groups every submission of the window once per run. The
// population filter never applies here: a supplier's quotes outside the
// filtered region are still priced against that region's median.
func (o *Orchestrator) benchmarks(ctx context.Context, window scoring.Window) (map[models.PriceGroup]models.PriceBenchmark, error) {
	all, err := o.src.Submissions.ListPriceSubmissions(ctx, models.SubmissionFilter{
		From: window.Start,
		To:   window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: window submissions: %v", ErrDataSource, err)
	}
	return scoring.Benchmarks(all), nil
}

type supplierResult struct {
	snapshot *models.ScoreSnapshot
	failure  *models.SupplierFailure
}

// computeAll scores suppliers concurrently. A failing supplier is recorded
// and the rest continue; nothing is persisted here.
func (o *Orchestrator) computeAll(
	ctx context.Context,
	suppliers []models.Supplier,
	window scoring.Window,
	benchmarks map[models.PriceGroup]models.PriceBenchmark,
	cfg *models.RankingConfiguration,
	runID string,
	computedAt time.Time,
) ([]models.ScoreSnapshot, []models.SupplierFailure) {
	p := pool.NewWithResults[supplierResult]().WithMaxGoroutines(o.settings.Parallelism)
	for _, sup := range suppliers {
		p.Go(func() supplierResult {
			snap, err := o.computeOne(ctx, sup, window, benchmarks, cfg, runID, computedAt)
			if err != nil {
				o.log.Error("supplier computation failed", map[string]interface{}{
					"supplierId": sup.ID,
					"regionId":   sup.RegionID,
					"error":      err.Error(),
				})
				metrics.SupplierFailures.WithLabelValues(sup.RegionID).Inc()
				return supplierResult{failure: &models.SupplierFailure{
					SupplierID: sup.ID,
					RegionID:   sup.RegionID,
					Error:      err.Error(),
				}}
			}
			return supplierResult{snapshot: snap}
		})
	}

	var (
		snapshots []models.ScoreSnapshot
		failures  []models.SupplierFailure
	)
	for _, r := range p.Wait() {
		if r.failure != nil {
			failures = append(failures, *r.failure)
			continue
		}
		snapshots = append(snapshots, *r.snapshot)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].SupplierID < snapshots[j].SupplierID })
	sort.Slice(failures, func(i, j int) bool { return failures[i].SupplierID < failures[j].SupplierID })
	return snapshots, failures
}

func (o *Orchestrator) computeOne(
	ctx context.Context,
	sup models.Supplier,
	window scoring.Window,
	benchmarks map[models.PriceGroup]models.PriceBenchmark,
	cfg *models.RankingConfiguration,
	runID string,
	computedAt time.Time,
) (snap *models.ScoreSnapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrSupplierComputationFailed, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sup.RegionID == "" {
		return nil, fmt.Errorf("%w: supplier has no region", ErrSupplierComputationFailed)
	}

	subs, err := o.src.Submissions.ListPriceSubmissions(ctx, models.SubmissionFilter{
		SupplierID: sup.ID,
		From:       window.Start,
		To:         window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: submissions: %v", ErrSupplierComputationFailed, err)
	}

	span := scoring.TrailingSpan(window.End, o.engine.LookbackDays)
	orders, err := o.src.Orders.ListOrders(ctx, models.OrderFilter{
		SupplierID: sup.ID,
		From:       span.Start,
		To:         span.End,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: orders: %v", ErrSupplierComputationFailed, err)
	}

	res, err := o.engine.Evaluate(scoring.Input{
		Supplier:    sup,
		Window:      window,
		Submissions: subs,
		Orders:      orders,
		Benchmarks:  benchmarks,
	}, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSupplierComputationFailed, err)
	}

	return &models.ScoreSnapshot{
		ID:               o.newID(),
		SupplierID:       sup.ID,
		RegionID:         sup.RegionID,
		WindowStart:      window.Start,
		WindowEnd:        window.End,
		Scores:           res.Scores,
		TotalScore:       res.Total,
		InsufficientData: res.InsufficientData,
		Counters:         res.Counters,
		ConfigurationID:  cfg.ID,
		RunID:            runID,
		ComputedAt:       computedAt,
		IsCurrent:        true,
	}, nil
}

// rerank assigns ranks per affected region after the commit. A region is
// ranked completely or not at all.
func (o *Orchestrator) rerank(ctx context.Context, committed repository.CommitResult, day time.Time) ([]models.ScoreSnapshot, error) {
	expected := make(map[string][]string)
	for _, s := range committed.Snapshots {
		expected[s.RegionID] = append(expected[s.RegionID], s.ID)
	}

	placed := make(map[string]models.Placement, len(committed.Snapshots))
	for _, region := range committed.Regions {
		current, err := o.src.Snapshots.CurrentSnapshots(ctx, region)
		if err != nil {
			return committed.Snapshots, fmt.Errorf("%w: current snapshots of %s: %v", ErrDataSource, region, err)
		}

		present := make(map[string]bool, len(current))
		for _, s := range current {
			present[s.ID] = true
		}
		for _, id := range expected[region] {
			if !present[id] {
				return committed.Snapshots, fmt.Errorf("%w: region %s is missing snapshot %s", ErrRankingInconsistent, region, id)
			}
		}

		placements, err := assign.Assign(current)
		if err != nil {
			return committed.Snapshots, fmt.Errorf("%w: region %s: %v", ErrRankingInconsistent, region, err)
		}
		entries := history.BuildEntries(day, current, placements)

		if err := o.src.Snapshots.ApplyRanks(ctx, region, placements, entries); err != nil {
			if errors.Is(err, repository.ErrStalePlacement) {
				return committed.Snapshots, fmt.Errorf("%w: region %s: %v", ErrRankingInconsistent, region, err)
			}
			return committed.Snapshots, fmt.Errorf("%w: apply ranks for %s: %v", ErrCommitFailed, region, err)
		}

		metrics.RegionSuppliers.WithLabelValues(region).Set(float64(len(placements)))
		for _, p := range placements {
			placed[p.SnapshotID] = p
		}
	}

	out := make([]models.ScoreSnapshot, len(committed.Snapshots))
	for i, s := range committed.Snapshots {
		if p, ok := placed[s.ID]; ok {
			s.Rank, s.Percentile, s.Badge, s.RegionSize = p.Rank, p.Percentile, p.Badge, p.RegionSize
		}
		out[i] = s
	}
	return out, nil
}

// afterCommit refreshes downstream readers. Failures are logged only; the
// relational store stays authoritative.
func (o *Orchestrator) afterCommit(ctx context.Context, regions []string) {
	o.invalidate(ctx, regions)
	if o.publisher == nil {
		return
	}
	for _, region := range regions {
		current, err := o.src.Snapshots.CurrentSnapshots(ctx, region)
		if err != nil {
			o.log.Warn("reading rankings for publish failed", map[string]interface{}{"regionId": region, "error": err.Error()})
			continue
		}
		if err := o.publisher.PublishRegion(ctx, region, current); err != nil {
			o.log.Warn("publishing rankings failed", map[string]interface{}{"regionId": region, "error": err.Error()})
		}
	}
}

// invalidate drops the cached lists of regions.
func (o *Orchestrator) invalidate(ctx context.Context, regions []string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.InvalidateRegions(ctx, regions); err != nil {
		o.log.Warn("cache invalidation failed", map[string]interface{}{"error": err.Error(), "regions": regions})
	}
}

func regionsOf(snapshots []models.ScoreSnapshot) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range snapshots {
		if !seen[s.RegionID] {
			seen[s.RegionID] = true
			out = append(out, s.RegionID)
		}
	}
	sort.Strings(out)
	return out
}
