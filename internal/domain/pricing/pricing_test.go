package pricing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/pricing"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testProperty(t *testing.T) *property.Property {
	t.Helper()
	p, err := property.New(property.CreateParams{
		ID:            "prop-1",
		Title:         "Seaside Cottage",
		NightlyRate:   money.USD(10000),
		WeekendRate:   money.USD(15000),
		CleaningFee:   money.USD(5000),
		ServiceFee:    money.USD(2500),
		MinStayNights: 2,
		GuestsLimit:   4,
		CreatedAt:     date(2024, time.January, 1),
	})
	require.NoError(t, err)
	return p
}

func TestPriceForDate_Precedence(t *testing.T) {
	p := testProperty(t)
	override := pricing.CustomPrice{PropertyID: p.ID, Date: date(2024, time.July, 12), Rate: money.USD(22000)}

	// July 12 2024 is a Friday: the exact-date override beats the weekend rate.
	assert.Equal(t, money.USD(22000), pricing.PriceForDate(date(2024, time.July, 12), p, []pricing.CustomPrice{override}))
	// July 13 is a Saturday with no override: weekend rate applies.
	assert.Equal(t, money.USD(15000), pricing.PriceForDate(date(2024, time.July, 13), p, []pricing.CustomPrice{override}))
	// July 10 is a Wednesday: base rate.
	assert.Equal(t, money.USD(10000), pricing.PriceForDate(date(2024, time.July, 10), p, []pricing.CustomPrice{override}))
}

func TestPriceForDate_NoWeekendRateFallsBackToBase(t *testing.T) {
	p := testProperty(t)
	p.WeekendRate = money.Money{}

	assert.Equal(t, money.USD(10000), pricing.PriceForDate(date(2024, time.July, 13), p, nil))
}

func TestQuote_SumsNightsAndFees(t *testing.T) {
	p := testProperty(t)
	dr, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 14))
	require.NoError(t, err)

	// Wed + Thu at base, Fri + Sat at weekend rate.
	breakdown, err := pricing.Quote(p, dr, nil)
	require.NoError(t, err)

	require.Len(t, breakdown.Nights, 4)
	assert.Equal(t, money.USD(10000), breakdown.Nights[0].Rate)
	assert.Equal(t, money.USD(15000), breakdown.Nights[2].Rate)
	assert.Equal(t, int64(50000), breakdown.Subtotal.Amount)
	assert.Equal(t, int64(57500), breakdown.Total.Amount)
	assert.Equal(t, "USD", breakdown.Total.Currency)
}

func TestQuote_AppliesOverrides(t *testing.T) {
	p := testProperty(t)
	dr, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 12))
	require.NoError(t, err)
	overrides := []pricing.CustomPrice{
		{PropertyID: p.ID, Date: date(2024, time.July, 11), Rate: money.USD(8000)},
	}

	breakdown, err := pricing.Quote(p, dr, overrides)
	require.NoError(t, err)

	assert.Equal(t, int64(18000), breakdown.Subtotal.Amount)
	assert.Equal(t, int64(25500), breakdown.Total.Amount)
}

func TestQuote_SkipsZeroFees(t *testing.T) {
	p := testProperty(t)
	p.CleaningFee = money.Money{}
	p.ServiceFee = money.Money{}
	dr, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 11))
	require.NoError(t, err)

	breakdown, err := pricing.Quote(p, dr, nil)
	require.NoError(t, err)
	assert.Equal(t, breakdown.Subtotal, breakdown.Total)
}

func TestQuote_RequiresCurrency(t *testing.T) {
	p := testProperty(t)
	p.NightlyRate = money.Money{Amount: 10000}
	dr, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 12))
	require.NoError(t, err)

	_, err = pricing.Quote(p, dr, nil)
	assert.ErrorIs(t, err, pricing.ErrCurrencyUnset)
}
