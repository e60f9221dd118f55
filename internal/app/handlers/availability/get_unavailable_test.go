package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/handlers/availability"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func seedPendingStay(t *testing.T, f *fixture, id string, checkIn, checkOut time.Time) {
	t.Helper()
	dr, err := daterange.New(checkIn, checkOut)
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(id),
		PropertyID: "prop-1",
		Guest: domainbooking.GuestContact{
			FirstName: "Ana",
			LastName:  "Silva",
			Email:     "ana@example.com",
			Phone:     "+1555000111",
		},
		Range:            dr,
		Guests:           2,
		Price:            domainpricing.PriceBreakdown{Total: money.USD(30000)},
		ConfirmationCode: "BOK-" + id,
		CreatedAt:        date(2024, time.July, 1),
	})
	require.NoError(t, err)
	b.ClearEvents()
	require.NoError(t, f.bookings.Save(context.Background(), b))
}

func TestGetUnavailableDates_MergesBlocksAndStays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blockRes, err := newBlockHandler(f).Handle(ctx, availability.BlockDatesCommand{
		PropertyID: "prop-1",
		From:       date(2024, time.July, 20),
		To:         date(2024, time.July, 22),
	})
	require.NoError(t, err)
	seedPendingStay(t, f, "bk-1", date(2024, time.July, 10), date(2024, time.July, 13))

	q := &availability.GetUnavailableDatesHandler{UoWFactory: f.factory}
	res, err := q.Handle(ctx, availability.GetUnavailableDatesQuery{PropertyID: "prop-1"})
	require.NoError(t, err)

	// Stay nights plus host-blocked nights, sorted, check-out days excluded.
	require.Len(t, res.Dates, 5)
	got := make([]string, 0, len(res.Dates))
	for _, d := range res.Dates {
		got = append(got, d.Date)
	}
	assert.Equal(t, []string{"2024-07-10", "2024-07-11", "2024-07-12", "2024-07-20", "2024-07-21"}, got)

	assert.Equal(t, string(domainavailability.ReasonBooked), res.Dates[0].Reason)
	assert.Equal(t, string(domainavailability.ReasonHostBlock), res.Dates[3].Reason)
	assert.Equal(t, blockRes.EventID, res.Dates[3].EventID)
}

func TestGetUnavailableDates_ReusesUnitFromContext(t *testing.T) {
	f := newFixture(t)
	seedPendingStay(t, f, "bk-1", date(2024, time.July, 10), date(2024, time.July, 13))

	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	ctx := uow.ContextWithUnitOfWork(context.Background(), unit)

	// No factory configured: the handler must run on the provided unit.
	q := &availability.GetUnavailableDatesHandler{}
	res, err := q.Handle(ctx, availability.GetUnavailableDatesQuery{PropertyID: "prop-1"})
	require.NoError(t, err)
	assert.Len(t, res.Dates, 3)
}

func TestGetUnavailableDates_CancelledStaysDoNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedPendingStay(t, f, "bk-1", date(2024, time.July, 10), date(2024, time.July, 13))

	b, err := f.bookings.ByID(ctx, "bk-1")
	require.NoError(t, err)
	require.NoError(t, b.Cancel("guest request", date(2024, time.July, 2)))
	b.ClearEvents()
	require.NoError(t, f.bookings.Save(ctx, b))

	q := &availability.GetUnavailableDatesHandler{UoWFactory: f.factory}
	res, err := q.Handle(ctx, availability.GetUnavailableDatesQuery{PropertyID: "prop-1"})
	require.NoError(t, err)
	assert.Empty(t, res.Dates)
}
