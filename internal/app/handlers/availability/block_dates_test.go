package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/handlers/availability"
	domainavailability "staybook/internal/domain/availability"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/storage/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	factory      memory.Factory
	bookings     *memory.BookingRepository
	availability *memory.AvailabilityRepository
	outbox       *memory.Outbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bookings:     memory.NewBookingRepository(),
		availability: memory.NewAvailabilityRepository(),
		outbox:       memory.NewOutbox(),
	}
	properties := memory.NewPropertyRepository()
	f.factory = memory.Factory{
		PropertyRepo:     properties,
		BookingRepo:      f.bookings,
		AvailabilityRepo: f.availability,
		CustomPriceRepo:  memory.NewCustomPriceRepository(),
	}

	p, err := domainproperty.New(domainproperty.CreateParams{
		ID:            "prop-1",
		Title:         "Seaside Cottage",
		NightlyRate:   money.USD(10000),
		MinStayNights: 1,
		CreatedAt:     date(2024, time.January, 1),
	})
	require.NoError(t, err)
	require.NoError(t, properties.Save(context.Background(), p))
	return f
}

func newBlockHandler(f *fixture) *availability.BlockDatesHandler {
	return &availability.BlockDatesHandler{
		UoWFactory: f.factory,
		Outbox:     f.outbox,
		Now:        func() time.Time { return date(2024, time.July, 1) },
	}
}

func TestBlockDates_MaterializesSharedEvent(t *testing.T) {
	f := newFixture(t)
	h := newBlockHandler(f)

	res, err := h.Handle(context.Background(), availability.BlockDatesCommand{
		PropertyID: "prop-1",
		From:       date(2024, time.July, 10),
		To:         date(2024, time.July, 13),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.EventID)
	assert.Equal(t, 3, res.Nights)

	blocked, err := f.availability.BlockedDates(context.Background(), "prop-1")
	require.NoError(t, err)
	require.Len(t, blocked, 3)
	for _, row := range blocked {
		assert.Equal(t, res.EventID, row.EventID)
		assert.Equal(t, domainavailability.ReasonHostBlock, row.Reason)
	}
}

func TestBlockDates_Fail_GuestHoldsANight(t *testing.T) {
	f := newFixture(t)
	h := newBlockHandler(f)

	held, err := daterange.New(date(2024, time.July, 11), date(2024, time.July, 12))
	require.NoError(t, err)
	require.NoError(t, f.availability.HoldNights(context.Background(), "prop-1", held, "bk-1"))

	_, err = h.Handle(context.Background(), availability.BlockDatesCommand{
		PropertyID: "prop-1",
		From:       date(2024, time.July, 10),
		To:         date(2024, time.July, 13),
	})
	assert.ErrorIs(t, err, availability.ErrRangeConflicts)
}

func TestBlockDates_Fail_UnknownProperty(t *testing.T) {
	f := newFixture(t)
	h := newBlockHandler(f)

	_, err := h.Handle(context.Background(), availability.BlockDatesCommand{
		PropertyID: "prop-ghost",
		From:       date(2024, time.July, 10),
		To:         date(2024, time.July, 13),
	})
	assert.ErrorIs(t, err, domainproperty.ErrPropertyNotFound)
}

func TestUnblockDates_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := newBlockHandler(f).Handle(ctx, availability.BlockDatesCommand{
		PropertyID: "prop-1",
		From:       date(2024, time.July, 10),
		To:         date(2024, time.July, 13),
	})
	require.NoError(t, err)

	unblock := &availability.UnblockDatesHandler{
		UoWFactory: f.factory,
		Outbox:     f.outbox,
		Now:        func() time.Time { return date(2024, time.July, 2) },
	}
	_, err = unblock.Handle(ctx, availability.UnblockDatesCommand{PropertyID: "prop-1", EventID: res.EventID})
	require.NoError(t, err)

	blocked, err := f.availability.BlockedDates(ctx, "prop-1")
	require.NoError(t, err)
	assert.Empty(t, blocked)

	// The freed nights accept a new hold.
	dr, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 13))
	require.NoError(t, err)
	assert.NoError(t, f.availability.HoldNights(ctx, "prop-1", dr, "bk-1"))
}

func TestUnblockDates_Fail_UnknownEvent(t *testing.T) {
	f := newFixture(t)

	unblock := &availability.UnblockDatesHandler{
		UoWFactory: f.factory,
		Outbox:     f.outbox,
	}
	_, err := unblock.Handle(context.Background(), availability.UnblockDatesCommand{PropertyID: "prop-1", EventID: "evt-ghost"})
	assert.ErrorIs(t, err, domainavailability.ErrEventUnknown)
}
