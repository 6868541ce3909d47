package delivery

import (
	"fmt"
	"math"
	"time"
)

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "zondag",
	time.Monday:    "maandag",
	time.Tuesday:   "dinsdag",
	time.Wednesday: "woensdag",
	time.Thursday:  "donderdag",
	time.Friday:    "vrijdag",
	time.Saturday:  "zaterdag",
}

var monthNames = map[time.Month]string{
	time.January:   "januari",
	time.February:  "februari",
	time.March:     "maart",
	time.April:     "april",
	time.May:       "mei",
	time.June:      "juni",
	time.July:      "juli",
	time.August:    "augustus",
	time.September: "september",
	time.October:   "oktober",
	time.November:  "november",
	time.December:  "december",
}

// FormatDeliveryMessage renders the localized delivery phrase for the
// target date, relative to now's calendar date. A diff below one day
// (clock skew, estimate landing today) reads the same as tomorrow; the
// message never sounds like the date already passed.
func FormatDeliveryMessage(targetDate, now time.Time) string {
	diffDays := calendarDaysBetween(now, targetDate)

	switch {
	case diffDays <= 1:
		return "morgen"
	case diffDays == 2:
		return "overmorgen"
	case diffDays <= 5:
		return "a.s. " + weekdayNames[targetDate.Weekday()]
	default:
		return fmt.Sprintf("omstreeks %d %s", targetDate.Day(), monthNames[targetDate.Month()])
	}
}

func formatPartialMessage(directQty int, msgDirect string, backorderQty int, msgBackorder string) string {
	return fmt.Sprintf("%d× geleverd %s, %d× geleverd %s", directQty, msgDirect, backorderQty, msgBackorder)
}

// calendarDaysBetween counts whole calendar days from a to b, ignoring
// time of day. Rounding absorbs DST-shortened or -lengthened days.
func calendarDaysBetween(a, b time.Time) int {
	ad := truncateToDay(a)
	bd := truncateToDay(b.In(a.Location()))
	return int(math.Round(bd.Sub(ad).Hours() / 24))
}
