package scoring

import (
	"time"

	"supplier-ranking/internal/models"

	"github.com/shopspring/decimal"
)

// ScorePrecision is the number of decimal places stored for every score.
const ScorePrecision = 2

// Engine evaluates suppliers. It holds settings only and is safe for
// concurrent use.
type Engine struct {
	CutoffHour   int
	Location     *time.Location
	LookbackDays int
}

func NewEngine(cutoffHour int, loc *time.Location, lookbackDays int) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{CutoffHour: cutoffHour, Location: loc, LookbackDays: lookbackDays}
}

// Input is everything needed to score one supplier for one window.
type Input struct {
	Supplier    models.Supplier
	Window      Window
	Submissions []models.PriceSubmission
	Orders      []models.OrderRecord
	Benchmarks  map[models.PriceGroup]models.PriceBenchmark
}

// Result is a scored supplier before it becomes a snapshot.
type Result struct {
	Aggregation
	Counters models.Counters
}

// Evaluate runs the four metrics and the aggregator. Records outside the
// window or the trailing span are ignored.
func (e *Engine) Evaluate(in Input, cfg *models.RankingConfiguration) (Result, error) {
	own := make([]models.PriceSubmission, 0, len(in.Submissions))
	for _, s := range in.Submissions {
		if s.SupplierID == in.Supplier.ID && in.Window.Contains(s.Date) {
			own = append(own, s)
		}
	}
	span := TrailingSpan(in.Window.End, e.LookbackDays)

	sub := models.SubScores{
		Price:       PriceCompetitiveness(own, in.Benchmarks),
		Consistency: Consistency(own, e.CutoffHour, e.Location),
		Reliability: Reliability(in.Orders, span),
		Fill:        FillRate(in.Orders, span),
	}

	agg, err := Aggregate(sub, len(own), cfg)
	if err != nil {
		return Result{}, err
	}

	agg.Scores = models.SubScores{
		Price:       round(agg.Scores.Price),
		Consistency: round(agg.Scores.Consistency),
		Reliability: round(agg.Scores.Reliability),
		Fill:        round(agg.Scores.Fill),
	}
	agg.Total = round(agg.Total)

	return Result{
		Aggregation: agg,
		Counters:    SupportingCounters(own, in.Orders, span, e.CutoffHour, e.Location),
	}, nil
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(ScorePrecision)
}
