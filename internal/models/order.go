package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusPickedUp   OrderStatus = "picked_up"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRejected   OrderStatus = "rejected"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusInProgress, OrderStatusReady,
		OrderStatusPickedUp, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// OrderRecord is a purchase order placed with a supplier.
type OrderRecord struct {
	ID                   string              `json:"id"`
	SupplierID           string              `json:"supplierId"`
	RegionID             string              `json:"regionId"`
	OrderedOn            time.Time           `json:"orderedOn"`
	OrderedQuantity      decimal.Decimal     `json:"orderedQuantity"`
	DeliveredQuantity    decimal.NullDecimal `json:"deliveredQuantity"`
	ExpectedDeliveryDate time.Time           `json:"expectedDeliveryDate"`
	ActualDeliveryDate   *time.Time          `json:"actualDeliveryDate,omitempty"`
	Status               OrderStatus         `json:"status"`
}

func (o OrderRecord) Delivered() bool {
	return o.Status == OrderStatusDelivered
}

// OnTime reports whether a delivered order arrived on or before the
// expected date. Only the calendar dates are compared. Orders without an
// actual date are never on time.
func (o OrderRecord) OnTime() bool {
	if !o.Delivered() || o.ActualDeliveryDate == nil {
		return false
	}
	return !calendarDate(*o.ActualDeliveryDate).After(calendarDate(o.ExpectedDeliveryDate))
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OrderFilter selects a supplier's orders placed within [From, To].
// An empty Status matches every status.
type OrderFilter struct {
	SupplierID string
	From       time.Time
	To         time.Time
	Status     OrderStatus
}
