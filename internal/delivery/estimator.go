package delivery

import "time"

// Safety bounds for the day-by-day searches. Hitting one means the
// configuration blocks far more days than any sane calendar would; the
// estimator then fails soft and returns the last candidate rather than
// breaking page rendering.
const (
	maxShippingIterations = 30
	maxDeliveryIterations = 365
)

// Category classifies an estimate by stock coverage.
type Category string

const (
	CategoryInStock      Category = "IN_STOCK"
	CategoryPartialStock Category = "PARTIAL_STOCK"
	CategoryBackorder    Category = "BACKORDER"
)

// StockStatus mirrors the WooCommerce product stock status values.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "instock"
	StockStatusBackorder  StockStatus = "onbackorder"
	StockStatusOutOfStock StockStatus = "outofstock"
)

// Calendar answers whether a specific calendar date is blocked. Weekday
// rules (no shipping Sat/Sun, no delivery Sun/Mon) are fixed business
// policy and live in the estimator, not the calendar.
type Calendar interface {
	ShippingBlocked(day time.Time) bool
	DeliveryBlocked(day time.Time) bool
}

// CapObserver is notified when a search hits its safety bound.
type CapObserver interface {
	IncEstimatorCap(phase string)
}

// Estimate is the computed delivery promise for one cart or product line.
type Estimate struct {
	Category      Category
	TargetDate    time.Time
	BackorderDate time.Time // remainder arrival, PARTIAL_STOCK only
	ShortMessage  string
	LongMessage   string
}

// Options configures an Estimator.
type Options struct {
	CutoffHour   int
	CutoffMinute int
	CapObserver  CapObserver
}

// Estimator computes delivery promises from an injected blocked-day
// calendar. It performs no I/O and is safe for concurrent use.
type Estimator struct {
	cal          Calendar
	cutoffHour   int
	cutoffMinute int
	caps         CapObserver
}

// New builds an estimator. A zero cutoff defaults to 13:00.
func New(cal Calendar, opts Options) *Estimator {
	hour := opts.CutoffHour
	if hour == 0 {
		hour = 13
	}
	return &Estimator{
		cal:          cal,
		cutoffHour:   hour,
		cutoffMinute: opts.CutoffMinute,
		caps:         opts.CapObserver,
	}
}

// ShippingDate returns the first day the warehouse can ship an order
// placed at now. At or past the daily cutoff the search starts tomorrow.
func (e *Estimator) ShippingDate(now time.Time) time.Time {
	day := truncateToDay(now)

	cutoff := time.Date(now.Year(), now.Month(), now.Day(), e.cutoffHour, e.cutoffMinute, 0, 0, now.Location())
	if !now.Before(cutoff) {
		day = day.AddDate(0, 0, 1)
	}

	for i := 0; i < maxShippingIterations; i++ {
		if !e.shippingBlocked(day) {
			return day
		}
		day = day.AddDate(0, 0, 1)
	}

	if e.caps != nil {
		e.caps.IncEstimatorCap("shipping")
	}
	return day
}

// DeliveryDate walks forward from the shipping date until leadDays
// non-blocked delivery days have been counted, then rolls off a blocked
// landing day. The result is never a blocked delivery day unless the
// safety bound is hit.
func (e *Estimator) DeliveryDate(shippingDate time.Time, leadDays int) time.Time {
	day := truncateToDay(shippingDate)

	counted := 0
	for i := 0; i < maxDeliveryIterations && counted < leadDays; i++ {
		day = day.AddDate(0, 0, 1)
		if !e.deliveryBlocked(day) {
			counted++
		}
	}
	if counted < leadDays && e.caps != nil {
		e.caps.IncEstimatorCap("delivery")
	}

	for i := 0; i < maxDeliveryIterations && e.deliveryBlocked(day); i++ {
		day = day.AddDate(0, 0, 1)
	}
	if e.deliveryBlocked(day) && e.caps != nil {
		e.caps.IncEstimatorCap("delivery_landing")
	}

	return day
}

// GetDeliveryInfo is the top-level classifier. stockQuantity == nil means
// the quantity is unknown or unbounded.
func (e *Estimator) GetDeliveryInfo(now time.Time, status StockStatus, quantityRequested int, stockQuantity *int, leadInStock, leadNoStock int) Estimate {
	switch {
	case (stockQuantity == nil && status == StockStatusInStock) ||
		(stockQuantity != nil && *stockQuantity >= quantityRequested):
		target := e.DeliveryDate(e.ShippingDate(now), leadInStock)
		msg := FormatDeliveryMessage(target, now)
		return Estimate{
			Category:     CategoryInStock,
			TargetDate:   target,
			ShortMessage: msg,
			LongMessage:  "Nu besteld, " + msg + " in huis",
		}

	case stockQuantity != nil && *stockQuantity > 0 && *stockQuantity < quantityRequested:
		ship := e.ShippingDate(now)
		direct := e.DeliveryDate(ship, leadInStock)
		backorder := e.DeliveryDate(ship, leadNoStock)
		msgDirect := FormatDeliveryMessage(direct, now)
		msgBackorder := FormatDeliveryMessage(backorder, now)
		remainder := quantityRequested - *stockQuantity
		msg := formatPartialMessage(*stockQuantity, msgDirect, remainder, msgBackorder)
		return Estimate{
			Category:      CategoryPartialStock,
			TargetDate:    direct,
			BackorderDate: backorder,
			ShortMessage:  msg,
			LongMessage:   msg,
		}

	default:
		target := e.DeliveryDate(e.ShippingDate(now), leadNoStock)
		msg := FormatDeliveryMessage(target, now)
		return Estimate{
			Category:     CategoryBackorder,
			TargetDate:   target,
			ShortMessage: msg,
			LongMessage:  "Verwachte levering " + msg,
		}
	}
}

// shippingBlocked applies the fixed weekend rule plus the calendar.
func (e *Estimator) shippingBlocked(day time.Time) bool {
	if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		return true
	}
	return e.cal != nil && e.cal.ShippingBlocked(day)
}

// deliveryBlocked applies the fixed Sunday/Monday rule plus the calendar.
func (e *Estimator) deliveryBlocked(day time.Time) bool {
	if day.Weekday() == time.Sunday || day.Weekday() == time.Monday {
		return true
	}
	return e.cal != nil && e.cal.DeliveryBlocked(day)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
