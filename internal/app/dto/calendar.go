package dto

import (
	"sort"

	domainavailability "staybook/internal/domain/availability"
	domainpricing "staybook/internal/domain/pricing"
	domainrange "staybook/internal/domain/shared/daterange"
)

type UnavailableDate struct {
	Date    string `json:"date"`
	Reason  string `json:"reason"`
	EventID string `json:"event_id,omitempty"`
}

type UnavailableDates struct {
	PropertyID string            `json:"property_id"`
	Dates      []UnavailableDate `json:"unavailable_dates"`
}

// MapUnavailableDates flattens explicit blocked dates and occupied stay
// nights into one sorted, de-duplicated per-day list.
func MapUnavailableDates(propertyID string, blocked []domainavailability.BlockedDate, stays []domainrange.DateRange) UnavailableDates {
	byDay := make(map[string]UnavailableDate)
	for _, b := range blocked {
		day := domainrange.Day(b.Date).Format(dayFormat)
		byDay[day] = UnavailableDate{Date: day, Reason: string(b.Reason), EventID: b.EventID}
	}
	for _, stay := range stays {
		for _, d := range stay.Days() {
			day := d.Format(dayFormat)
			if _, ok := byDay[day]; !ok {
				byDay[day] = UnavailableDate{Date: day, Reason: string(domainavailability.ReasonBooked)}
			}
		}
	}
	dates := make([]UnavailableDate, 0, len(byDay))
	for _, d := range byDay {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Date < dates[j].Date })
	return UnavailableDates{PropertyID: propertyID, Dates: dates}
}

type NightPrice struct {
	Date      string `json:"date"`
	RateCents int64  `json:"rate_cents"`
}

type Quote struct {
	PropertyID    string       `json:"property_id"`
	CheckIn       string       `json:"check_in"`
	CheckOut      string       `json:"check_out"`
	Nights        []NightPrice `json:"nights"`
	SubtotalCents int64        `json:"subtotal_cents"`
	CleaningCents int64        `json:"cleaning_fee_cents"`
	ServiceCents  int64        `json:"service_fee_cents"`
	TotalCents    int64        `json:"total_cents"`
	Currency      string       `json:"currency"`
}

// MapQuote converts a price breakdown for one candidate stay.
func MapQuote(propertyID string, dr domainrange.DateRange, b domainpricing.PriceBreakdown) Quote {
	nights := make([]NightPrice, 0, len(b.Nights))
	for _, n := range b.Nights {
		nights = append(nights, NightPrice{Date: n.Date.Format(dayFormat), RateCents: n.Rate.Amount})
	}
	return Quote{
		PropertyID:    propertyID,
		CheckIn:       dr.CheckIn.Format(dayFormat),
		CheckOut:      dr.CheckOut.Format(dayFormat),
		Nights:        nights,
		SubtotalCents: b.Subtotal.Amount,
		CleaningCents: b.CleaningFee.Amount,
		ServiceCents:  b.ServiceFee.Amount,
		TotalCents:    b.Total.Amount,
		Currency:      b.Total.Currency,
	}
}
