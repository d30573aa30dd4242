package scoring

import (
	"sort"

	"supplier-ranking/internal/models"

	"github.com/shopspring/decimal"
)

// Median is the order statistic of values; even counts average the two
// middle values. ok is false for an empty input.
func Median(values []decimal.Decimal) (median decimal.Decimal, ok bool) {
	n := len(values)
	if n == 0 {
		return decimal.Zero, false
	}

	sorted := make([]decimal.Decimal, n)
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	if n%2 == 1 {
		return sorted[n/2], true
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2)), true
}

// Mean of values; zero for an empty input.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(values[0], values[1:]...).Div(decimal.NewFromInt(int64(len(values))))
}

// Benchmarks groups submissions by (product, region) and summarises each
// group. Every submission row counts, regardless of supplier.
func Benchmarks(submissions []models.PriceSubmission) map[models.PriceGroup]models.PriceBenchmark {
	grouped := groupPrices(submissions)

	out := make(map[models.PriceGroup]models.PriceBenchmark, len(grouped))
	for key, prices := range grouped {
		median, _ := Median(prices)
		out[key] = models.PriceBenchmark{
			PriceGroup: key,
			Min:        decimal.Min(prices[0], prices[1:]...),
			Max:        decimal.Max(prices[0], prices[1:]...),
			Mean:       Mean(prices),
			Median:     median,
			Count:      len(prices),
		}
	}
	return out
}

func groupPrices(submissions []models.PriceSubmission) map[models.PriceGroup][]decimal.Decimal {
	grouped := make(map[models.PriceGroup][]decimal.Decimal)
	for _, s := range submissions {
		key := models.PriceGroup{ProductID: s.ProductID, RegionID: s.RegionID}
		grouped[key] = append(grouped[key], s.UnitPrice)
	}
	return grouped
}
