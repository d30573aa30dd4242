package scoring

import (
	"time"

	"supplier-ranking/internal/models"

	"github.com/shopspring/decimal"
)

// SupportingCounters tallies the figures stored next to the scores.
// Submission counts are per row; order counts cover the trailing span.
func SupportingCounters(own []models.PriceSubmission, orders []models.OrderRecord, span Window, cutoffHour int, loc *time.Location) models.Counters {
	if loc == nil {
		loc = time.UTC
	}

	c := models.Counters{
		OrderedQuantity:   decimal.Zero,
		DeliveredQuantity: decimal.Zero,
	}
	for _, s := range own {
		c.TotalSubmissions++
		if onTime(s, cutoffHour, loc) {
			c.OnTimeSubmissions++
		}
	}

	for _, o := range inSpan(orders, span) {
		c.TotalOrders++
		c.OrderedQuantity = c.OrderedQuantity.Add(o.OrderedQuantity)
		if !o.Delivered() {
			continue
		}
		c.DeliveredOrders++
		if o.OnTime() {
			c.OnTimeDeliveries++
		}
		if o.DeliveredQuantity.Valid {
			c.DeliveredQuantity = c.DeliveredQuantity.Add(o.DeliveredQuantity.Decimal)
		}
	}
	return c
}
