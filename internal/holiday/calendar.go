package holiday

import "time"

const dateLayout = "2006-01-02"

// Calendar holds the blocked-date sets for shipping (warehouse closed)
// and delivery (carrier not running). It is immutable after construction;
// replacing it requires an explicit reload through the Provider.
type Calendar struct {
	shipping map[string]struct{}
	delivery map[string]struct{}
}

// NewCalendar builds a calendar from ISO date strings (YYYY-MM-DD).
// Malformed entries are dropped: they never match and contribute no
// blocking.
func NewCalendar(shipping, delivery []string) Calendar {
	return Calendar{
		shipping: normalizeDates(shipping),
		delivery: normalizeDates(delivery),
	}
}

func normalizeDates(raw []string) map[string]struct{} {
	set := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		parsed, err := time.Parse(dateLayout, entry)
		if err != nil {
			continue
		}
		set[parsed.Format(dateLayout)] = struct{}{}
	}
	return set
}

// ShippingBlocked reports whether the warehouse is closed on the given day.
func (c Calendar) ShippingBlocked(day time.Time) bool {
	_, ok := c.shipping[day.Format(dateLayout)]
	return ok
}

// DeliveryBlocked reports whether the carrier does not deliver on the given day.
func (c Calendar) DeliveryBlocked(day time.Time) bool {
	_, ok := c.delivery[day.Format(dateLayout)]
	return ok
}

// ShippingCount returns the number of blocked shipping dates.
func (c Calendar) ShippingCount() int { return len(c.shipping) }

// DeliveryCount returns the number of blocked delivery dates.
func (c Calendar) DeliveryCount() int { return len(c.delivery) }
