package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/handlers/booking"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func seedPending(t *testing.T, f *fixture, id, session string, checkIn, checkOut, createdAt time.Time) *domainbooking.Booking {
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
		Price:            domainpricing.PriceBreakdown{Total: money.USD(57500)},
		ConfirmationCode: "BOK-" + id,
		CreatedAt:        createdAt,
	})
	require.NoError(t, err)
	b.ClearEvents()
	if session != "" {
		b.AttachPaymentSession(session, createdAt)
	}
	ctx := context.Background()
	require.NoError(t, f.bookings.Save(ctx, b))
	require.NoError(t, f.availability.HoldNights(ctx, "prop-1", dr, id))
	return b
}

func TestSweepStale_CancelsOnlyExpiredPendings(t *testing.T) {
	f := newFixture(t)
	payments := &fakePayments{}
	seedPending(t, f, "bk-old", "cs_old", date(2024, time.July, 10), date(2024, time.July, 14), date(2024, time.July, 1))
	seedPending(t, f, "bk-new", "cs_new", date(2024, time.July, 20), date(2024, time.July, 24), date(2024, time.July, 3))

	h := &booking.SweepStaleBookingsHandler{
		UoWFactory: f.factory,
		Payments:   payments,
		Outbox:     f.outbox,
		Now:        func() time.Time { return date(2024, time.July, 4) },
	}
	res, err := h.Handle(context.Background(), booking.SweepStaleBookingsCommand{Cutoff: date(2024, time.July, 2)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cancelled)

	ctx := context.Background()
	old, err := f.bookings.ByID(ctx, "bk-old")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StateCancelled, old.State)

	fresh, err := f.bookings.ByID(ctx, "bk-new")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatePending, fresh.State)

	// The dead session is expired with the collaborator, the live one is not.
	assert.Equal(t, []string{"cs_old"}, payments.expired)

	// The swept range is bookable again; the fresh one is still held.
	released, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 14))
	require.NoError(t, err)
	assert.NoError(t, f.availability.HoldNights(ctx, "prop-1", released, "bk-next"))

	stillHeld, err := daterange.New(date(2024, time.July, 20), date(2024, time.July, 24))
	require.NoError(t, err)
	assert.Error(t, f.availability.HoldNights(ctx, "prop-1", stillHeld, "bk-next"))
}

func TestSweepStale_NothingToDo(t *testing.T) {
	f := newFixture(t)
	seedPending(t, f, "bk-1", "cs_1", date(2024, time.July, 10), date(2024, time.July, 14), date(2024, time.July, 3))

	h := &booking.SweepStaleBookingsHandler{
		UoWFactory: f.factory,
		Outbox:     f.outbox,
		Now:        func() time.Time { return date(2024, time.July, 4) },
	}
	res, err := h.Handle(context.Background(), booking.SweepStaleBookingsCommand{Cutoff: date(2024, time.July, 2)})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cancelled)
}
