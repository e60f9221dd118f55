package pricing

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var (
	ErrCurrencyUnset = errors.New("pricing: currency must be defined")
	ErrEmptyRange    = errors.New("pricing: range has no nights")
)

// CustomPrice overrides the nightly rate for one exact calendar day.
type CustomPrice struct {
	PropertyID property.PropertyID
	Date       time.Time
	Rate       money.Money
}

type CustomPriceRepository interface {
	ForProperty(ctx context.Context, id property.PropertyID) ([]CustomPrice, error)
	Save(ctx context.Context, cp CustomPrice) error
}

// PriceForDate resolves the nightly rate for a single day. Precedence:
// exact-date override, then weekend rate on Friday/Saturday, then base rate.
func PriceForDate(date time.Time, p *property.Property, overrides []CustomPrice) money.Money {
	day := daterange.Day(date)
	for _, o := range overrides {
		if daterange.Day(o.Date).Equal(day) {
			return o.Rate
		}
	}
	if p.HasWeekendRate() {
		switch day.Weekday() {
		case time.Friday, time.Saturday:
			return p.WeekendRate
		}
	}
	return p.NightlyRate
}

// NightLine is the quoted rate for a single occupied night.
type NightLine struct {
	Date time.Time
	Rate money.Money
}

type PriceBreakdown struct {
	Nights      []NightLine
	Subtotal    money.Money
	CleaningFee money.Money
	ServiceFee  money.Money
	Total       money.Money
}

func (b PriceBreakdown) NightCount() int {
	return len(b.Nights)
}

// Quote prices every night of the range and folds in the property's fixed
// fees. The same quote backs the calendar preview and the amount handed to
// the payment collaborator, so both always agree.
func Quote(p *property.Property, dr daterange.DateRange, overrides []CustomPrice) (PriceBreakdown, error) {
	if p.NightlyRate.Currency == "" {
		return PriceBreakdown{}, ErrCurrencyUnset
	}
	days := dr.Days()
	if len(days) == 0 {
		return PriceBreakdown{}, ErrEmptyRange
	}
	breakdown := PriceBreakdown{
		Nights:      make([]NightLine, 0, len(days)),
		Subtotal:    money.Money{Currency: p.NightlyRate.Currency},
		CleaningFee: p.CleaningFee,
		ServiceFee:  p.ServiceFee,
	}
	for _, day := range days {
		rate := PriceForDate(day, p, overrides)
		breakdown.Nights = append(breakdown.Nights, NightLine{Date: day, Rate: rate})
		sum, err := breakdown.Subtotal.Add(rate)
		if err != nil {
			return PriceBreakdown{}, err
		}
		breakdown.Subtotal = sum
	}
	total := breakdown.Subtotal
	for _, fee := range []money.Money{p.CleaningFee, p.ServiceFee} {
		if fee.IsZero() {
			continue
		}
		sum, err := total.Add(fee)
		if err != nil {
			return PriceBreakdown{}, err
		}
		total = sum
	}
	breakdown.Total = total
	return breakdown, nil
}
