package scoring

import (
	"time"

	"supplier-ranking/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// onTime reports whether s was submitted before cutoffHour in loc.
func onTime(s models.PriceSubmission, cutoffHour int, loc *time.Location) bool {
	return s.SubmittedAt.In(loc).Hour() < cutoffHour
}

// Consistency is the share of submission days with at least one quote
// before the cutoff hour, as a percentage. No submissions yields 0.
func Consistency(own []models.PriceSubmission, cutoffHour int, loc *time.Location) decimal.Decimal {
	if loc == nil {
		loc = time.UTC
	}

	days := make(map[time.Time]bool)
	for _, s := range own {
		day := DateOf(s.Date)
		days[day] = days[day] || onTime(s, cutoffHour, loc)
	}
	if len(days) == 0 {
		return decimal.Zero
	}

	var punctual int64
	for _, ok := range days {
		if ok {
			punctual++
		}
	}
	return percentage(punctual, int64(len(days)))
}

func percentage(part, whole int64) decimal.Decimal {
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole))
}
