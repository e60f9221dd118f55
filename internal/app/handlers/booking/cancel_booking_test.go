package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/handlers/booking"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
)

func newCancelHandler(f *fixture) *booking.CancelBookingHandler {
	return &booking.CancelBookingHandler{
		UoWFactory: f.factory,
		Outbox:     f.outbox,
		Now:        func() time.Time { return date(2024, time.July, 5) },
	}
}

func TestCancelBooking_PendingFreesTheRange(t *testing.T) {
	f := newFixture(t)
	seedPending(t, f, "bk-1", "cs_1", date(2024, time.July, 10), date(2024, time.July, 14), date(2024, time.July, 1))

	res, err := newCancelHandler(f).Handle(context.Background(), booking.CancelBookingCommand{BookingID: "bk-1", Reason: "change of plans"})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StateCancelled), res.State)

	// The same range submits cleanly once the holds are gone.
	h := newSubmitHandler(f, &fakePayments{})
	_, err = h.Handle(context.Background(), submitCommand("bk-2", date(2024, time.July, 10), date(2024, time.July, 14)))
	assert.NoError(t, err)
}

func TestCancelBooking_ConfirmedRemovesBlockedDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := seedPending(t, f, "bk-1", "cs_1", date(2024, time.July, 10), date(2024, time.July, 14), date(2024, time.July, 1))

	require.NoError(t, b.Confirm("evt-1", date(2024, time.July, 2)))
	b.ClearEvents()
	rows := domainavailability.MaterializeRows(b.PropertyID, b.Range, domainavailability.ReasonBooked, "evt-1", date(2024, time.July, 2))
	require.NoError(t, f.availability.Materialize(ctx, rows))
	require.NoError(t, f.bookings.Save(ctx, b))

	_, err := newCancelHandler(f).Handle(ctx, booking.CancelBookingCommand{BookingID: "bk-1", Reason: "host conflict"})
	require.NoError(t, err)

	blocked, err := f.availability.BlockedDates(ctx, "prop-1")
	require.NoError(t, err)
	assert.Empty(t, blocked)

	dr, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 14))
	require.NoError(t, err)
	assert.NoError(t, f.availability.HoldNights(ctx, "prop-1", dr, "bk-next"))
}

func TestCancelBooking_Fail_Unknown(t *testing.T) {
	f := newFixture(t)

	_, err := newCancelHandler(f).Handle(context.Background(), booking.CancelBookingCommand{BookingID: "bk-ghost"})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

func TestCancelBooking_Fail_AlreadyCancelled(t *testing.T) {
	f := newFixture(t)
	seedPending(t, f, "bk-1", "cs_1", date(2024, time.July, 10), date(2024, time.July, 14), date(2024, time.July, 1))

	h := newCancelHandler(f)
	_, err := h.Handle(context.Background(), booking.CancelBookingCommand{BookingID: "bk-1"})
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), booking.CancelBookingCommand{BookingID: "bk-1"})
	assert.ErrorIs(t, err, domainbooking.ErrInvalidState)
}
