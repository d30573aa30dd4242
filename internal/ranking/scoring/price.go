package scoring

import (
	"sort"

	"supplier-ranking/internal/models"

	"github.com/shopspring/decimal"
)

type priceBand struct {
	maxRatio decimal.Decimal
	score    decimal.Decimal
}

// Bands are inclusive upper bounds on supplier_mean / median.
var priceBands = []priceBand{
	{decimal.RequireFromString("0.80"), decimal.NewFromInt(100)},
	{decimal.RequireFromString("0.90"), decimal.NewFromInt(85)},
	{decimal.RequireFromString("1.00"), decimal.NewFromInt(70)},
	{decimal.RequireFromString("1.10"), decimal.NewFromInt(50)},
	{decimal.RequireFromString("1.20"), decimal.NewFromInt(30)},
}

var priceFloor = decimal.NewFromInt(10)

// PriceBand maps a price ratio to its score. It is non-increasing in ratio.
func PriceBand(ratio decimal.Decimal) decimal.Decimal {
	for _, b := range priceBands {
		if ratio.LessThanOrEqual(b.maxRatio) {
			return b.score
		}
	}
	return priceFloor
}

// PriceCompetitiveness averages the band score of every (product, region)
// group the supplier quoted in. Groups without a positive median are
// skipped; no scorable group yields 0.
func PriceCompetitiveness(own []models.PriceSubmission, benchmarks map[models.PriceGroup]models.PriceBenchmark) decimal.Decimal {
	grouped := groupPrices(own)

	keys := make([]models.PriceGroup, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ProductID != keys[j].ProductID {
			return keys[i].ProductID < keys[j].ProductID
		}
		return keys[i].RegionID < keys[j].RegionID
	})

	var scores []decimal.Decimal
	for _, key := range keys {
		bench, ok := benchmarks[key]
		if !ok || bench.Count == 0 || !bench.Median.IsPositive() {
			continue
		}
		ratio := Mean(grouped[key]).Div(bench.Median)
		scores = append(scores, PriceBand(ratio))
	}

	if len(scores) == 0 {
		return decimal.Zero
	}
	return Mean(scores)
}
