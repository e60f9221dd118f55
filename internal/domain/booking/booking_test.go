package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validGuest() booking.GuestContact {
	return booking.GuestContact{FirstName: "Ana", LastName: "Silva", Email: "ana@example.com", Phone: "+1555000111"}
}

func newPendingBooking(t *testing.T) *booking.Booking {
	t.Helper()
	dr, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 14))
	require.NoError(t, err)
	b, err := booking.NewBooking(booking.CreateParams{
		ID:               "bk-1",
		PropertyID:       "prop-1",
		Guest:            validGuest(),
		Range:            dr,
		Guests:           2,
		Price:            pricing.PriceBreakdown{Total: money.USD(57500)},
		ConfirmationCode: "BOK-ABCD1234",
		CreatedAt:        date(2024, time.July, 1),
	})
	require.NoError(t, err)
	return b
}

func TestNewBooking_StartsPendingAndRecordsEvent(t *testing.T) {
	b := newPendingBooking(t)

	assert.Equal(t, booking.StatePending, b.State)
	events := b.PendingEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "booking.requested", events[0].EventName())
}

func TestNewBooking_RejectsIncompleteContact(t *testing.T) {
	dr, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 14))
	require.NoError(t, err)
	guest := validGuest()
	guest.Phone = "  "

	_, err = booking.NewBooking(booking.CreateParams{
		ID:         "bk-2",
		PropertyID: "prop-1",
		Guest:      guest,
		Range:      dr,
		Guests:     2,
		Price:      pricing.PriceBreakdown{Total: money.USD(100)},
		CreatedAt:  date(2024, time.July, 1),
	})
	assert.ErrorIs(t, err, booking.ErrContactRequired)
}

func TestStateBlocks(t *testing.T) {
	assert.True(t, booking.StatePending.Blocks())
	assert.True(t, booking.StateConfirmed.Blocks())
	assert.False(t, booking.StateCancelled.Blocks())
	assert.False(t, booking.StatePaymentFailed.Blocks())
	assert.False(t, booking.StateRefunded.Blocks())
}

func TestConfirm_OnlyFromPending(t *testing.T) {
	b := newPendingBooking(t)
	now := date(2024, time.July, 2)

	require.NoError(t, b.Confirm("evt-1", now))
	assert.Equal(t, booking.StateConfirmed, b.State)
	assert.Equal(t, "evt-1", b.BlockEventID)

	assert.ErrorIs(t, b.Confirm("evt-2", now), booking.ErrInvalidState)
}

func TestCancel_FromPendingAndConfirmed(t *testing.T) {
	b := newPendingBooking(t)
	require.NoError(t, b.Cancel("guest request", date(2024, time.July, 2)))
	assert.Equal(t, booking.StateCancelled, b.State)

	// Cancelling twice is an invalid transition.
	assert.ErrorIs(t, b.Cancel("again", date(2024, time.July, 3)), booking.ErrInvalidState)

	confirmed := newPendingBooking(t)
	require.NoError(t, confirmed.Confirm("evt-1", date(2024, time.July, 2)))
	require.NoError(t, confirmed.Cancel("host conflict", date(2024, time.July, 3)))
	assert.Equal(t, booking.StateCancelled, confirmed.State)
}

func TestMarkPaymentFailed_OnlyPending(t *testing.T) {
	b := newPendingBooking(t)
	require.NoError(t, b.MarkPaymentFailed(date(2024, time.July, 2)))
	assert.Equal(t, booking.StatePaymentFailed, b.State)

	confirmed := newPendingBooking(t)
	require.NoError(t, confirmed.Confirm("evt-1", date(2024, time.July, 2)))
	assert.ErrorIs(t, confirmed.MarkPaymentFailed(date(2024, time.July, 3)), booking.ErrInvalidState)
}

func TestMarkRefunded_RequiresCancelled(t *testing.T) {
	b := newPendingBooking(t)
	assert.ErrorIs(t, b.MarkRefunded(money.USD(57500), date(2024, time.July, 2)), booking.ErrInvalidState)

	require.NoError(t, b.Cancel("guest request", date(2024, time.July, 2)))
	require.NoError(t, b.MarkRefunded(money.USD(57500), date(2024, time.July, 3)))
	assert.Equal(t, booking.StateRefunded, b.State)
}

func TestBlockingRanges_FiltersTerminalStates(t *testing.T) {
	pending := newPendingBooking(t)
	cancelled := newPendingBooking(t)
	require.NoError(t, cancelled.Cancel("x", date(2024, time.July, 2)))

	ranges := booking.BlockingRanges([]*booking.Booking{pending, cancelled})
	require.Len(t, ranges, 1)
	assert.Equal(t, pending.Range, ranges[0])
}

func TestValidateStay(t *testing.T) {
	p, err := property.New(property.CreateParams{
		ID:            "prop-1",
		NightlyRate:   money.USD(10000),
		MinStayNights: 3,
		CreatedAt:     date(2024, time.January, 1),
	})
	require.NoError(t, err)

	now := date(2024, time.July, 5)

	short, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 12))
	require.NoError(t, err)
	assert.ErrorIs(t, booking.ValidateStay(short, p, now), booking.ErrMinStay)

	past, err := daterange.New(date(2024, time.July, 1), date(2024, time.July, 8))
	require.NoError(t, err)
	assert.ErrorIs(t, booking.ValidateStay(past, p, now), booking.ErrCheckInInPast)

	ok, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 14))
	require.NoError(t, err)
	assert.NoError(t, booking.ValidateStay(ok, p, now))

	// Same-day check-in is allowed.
	today, err := daterange.New(now, date(2024, time.July, 9))
	require.NoError(t, err)
	assert.NoError(t, booking.ValidateStay(today, p, now))
}
