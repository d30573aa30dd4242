package scoring

import (
	"supplier-ranking/internal/models"

	"github.com/shopspring/decimal"
)

// Aggregation is the weighted outcome for one supplier.
type Aggregation struct {
	Scores           models.SubScores
	Total            decimal.Decimal
	InsufficientData bool
}

// Aggregate validates cfg, then weights the sub-scores into a total clamped
// to [0, 100]. Fewer than cfg.MinSubmissions submissions zero everything
// and set InsufficientData.
func Aggregate(sub models.SubScores, submissions int, cfg *models.RankingConfiguration) (Aggregation, error) {
	if err := ValidateConfiguration(cfg); err != nil {
		return Aggregation{}, err
	}

	if submissions < cfg.MinSubmissions {
		return Aggregation{
			Scores: models.SubScores{
				Price:       decimal.Zero,
				Consistency: decimal.Zero,
				Reliability: decimal.Zero,
				Fill:        decimal.Zero,
			},
			Total:            decimal.Zero,
			InsufficientData: true,
		}, nil
	}

	w := cfg.Weights
	total := sub.Price.Mul(w.Price).
		Add(sub.Consistency.Mul(w.Consistency)).
		Add(sub.Reliability.Mul(w.Reliability)).
		Add(sub.Fill.Mul(w.Fill))

	return Aggregation{
		Scores: sub,
		Total:  clamp(total, decimal.Zero, hundred),
	}, nil
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Max(lo, decimal.Min(hi, v))
}
