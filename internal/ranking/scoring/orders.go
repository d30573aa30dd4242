package scoring

import (
	"supplier-ranking/internal/models"

	"github.com/shopspring/decimal"
)

// NeutralScore is given to reliability and fill when there is no history.
var NeutralScore = decimal.NewFromInt(50)

func inSpan(orders []models.OrderRecord, span Window) []models.OrderRecord {
	out := make([]models.OrderRecord, 0, len(orders))
	for _, o := range orders {
		if span.Contains(o.OrderedOn) {
			out = append(out, o)
		}
	}
	return out
}

// Reliability is the on-time share of delivered orders placed within span.
func Reliability(orders []models.OrderRecord, span Window) decimal.Decimal {
	var delivered, punctual int64
	for _, o := range inSpan(orders, span) {
		if !o.Delivered() {
			continue
		}
		delivered++
		if o.OnTime() {
			punctual++
		}
	}
	if delivered == 0 {
		return NeutralScore
	}
	return percentage(punctual, delivered)
}

// FillRate is delivered over ordered quantity for delivered orders with a
// recorded delivered quantity, capped at 100.
func FillRate(orders []models.OrderRecord, span Window) decimal.Decimal {
	ordered, delivered := decimal.Zero, decimal.Zero
	for _, o := range inSpan(orders, span) {
		if !o.Delivered() || !o.DeliveredQuantity.Valid {
			continue
		}
		ordered = ordered.Add(o.OrderedQuantity)
		delivered = delivered.Add(o.DeliveredQuantity.Decimal)
	}
	if !ordered.IsPositive() {
		return NeutralScore
	}
	return decimal.Min(hundred, delivered.Mul(hundred).Div(ordered))
}
