package payments_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/handlers/payments"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
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
	inbox        *memInbox
}

func newFixture() *fixture {
	f := &fixture{
		bookings:     memory.NewBookingRepository(),
		availability: memory.NewAvailabilityRepository(),
		outbox:       memory.NewOutbox(),
		inbox:        &memInbox{seen: make(map[string]bool)},
	}
	f.factory = memory.Factory{
		PropertyRepo:     memory.NewPropertyRepository(),
		BookingRepo:      f.bookings,
		AvailabilityRepo: f.availability,
		CustomPriceRepo:  memory.NewCustomPriceRepository(),
	}
	return f
}

// memInbox mirrors the Mongo inbox store contract: Seen only reads, MarkSeen
// records.
type memInbox struct {
	seen map[string]bool
}

func (m *memInbox) Seen(ctx context.Context, eventID string) (bool, error) {
	return m.seen[eventID], nil
}

func (m *memInbox) MarkSeen(ctx context.Context, eventID string) error {
	m.seen[eventID] = true
	return nil
}

func seedPending(t *testing.T, f *fixture, id, session string) *domainbooking.Booking {
	t.Helper()
	dr, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 14))
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
		CreatedAt:        date(2024, time.July, 1),
	})
	require.NoError(t, err)
	b.ClearEvents()
	b.AttachPaymentSession(session, date(2024, time.July, 1))
	ctx := context.Background()
	require.NoError(t, f.bookings.Save(ctx, b))
	require.NoError(t, f.availability.HoldNights(ctx, "prop-1", dr, id))
	return b
}

func newHandler(f *fixture) *payments.ReconcileHandler {
	return &payments.ReconcileHandler{
		UoWFactory: f.factory,
		Inbox:      f.inbox,
		Outbox:     f.outbox,
		Now:        func() time.Time { return date(2024, time.July, 2) },
	}
}

func TestReconcile_CompletedConfirmsAndMaterializes(t *testing.T) {
	f := newFixture()
	seedPending(t, f, "bk-1", "cs_1")
	h := newHandler(f)

	res, err := h.Handle(context.Background(), payments.PaymentEventCommand{
		EventID:   "evt-1",
		Type:      payments.EventSessionCompleted,
		SessionID: "cs_1",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, string(domainbooking.StateConfirmed), res.State)

	ctx := context.Background()
	b, err := f.bookings.ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StateConfirmed, b.State)
	require.NotEmpty(t, b.BlockEventID)

	// One row per night, all tied to the booking's block event.
	blocked, err := f.availability.BlockedDates(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, blocked, 4)
	for _, row := range blocked {
		assert.Equal(t, b.BlockEventID, row.EventID)
	}
}

func TestReconcile_ReplayedEventIsNoOp(t *testing.T) {
	f := newFixture()
	seedPending(t, f, "bk-1", "cs_1")
	h := newHandler(f)
	ctx := context.Background()

	completed := payments.PaymentEventCommand{EventID: "evt-1", Type: payments.EventSessionCompleted, SessionID: "cs_1"}
	_, err := h.Handle(ctx, completed)
	require.NoError(t, err)

	// Same delivery again: the inbox drops it.
	res, err := h.Handle(ctx, completed)
	require.NoError(t, err)
	assert.False(t, res.Applied)

	// A fresh event id for an already-confirmed booking: the state guard
	// catches what the inbox cannot.
	res, err = h.Handle(ctx, payments.PaymentEventCommand{EventID: "evt-2", Type: payments.EventSessionCompleted, SessionID: "cs_1"})
	require.NoError(t, err)
	assert.False(t, res.Applied)

	blocked, err := f.availability.BlockedDates(ctx, "prop-1")
	require.NoError(t, err)
	assert.Len(t, blocked, 4)
}

func TestReconcile_ExpiredReleasesTheRange(t *testing.T) {
	f := newFixture()
	seedPending(t, f, "bk-1", "cs_1")
	h := newHandler(f)
	ctx := context.Background()

	res, err := h.Handle(ctx, payments.PaymentEventCommand{
		EventID:   "evt-1",
		Type:      payments.EventSessionExpired,
		SessionID: "cs_1",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, string(domainbooking.StatePaymentFailed), res.State)

	b, err := f.bookings.ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatePaymentFailed, b.State)

	dr, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 14))
	require.NoError(t, err)
	assert.NoError(t, f.availability.HoldNights(ctx, "prop-1", dr, "bk-next"))
}

func TestReconcile_LookupFallsBackToBookingID(t *testing.T) {
	f := newFixture()
	seedPending(t, f, "bk-1", "cs_1")
	h := newHandler(f)

	res, err := h.Handle(context.Background(), payments.PaymentEventCommand{
		EventID:   "evt-1",
		Type:      payments.EventSessionCompleted,
		BookingID: "bk-1",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
}

func TestReconcile_UnknownBookingIsSwallowed(t *testing.T) {
	f := newFixture()
	h := newHandler(f)

	res, err := h.Handle(context.Background(), payments.PaymentEventCommand{
		EventID:   "evt-1",
		Type:      payments.EventSessionCompleted,
		SessionID: "cs_ghost",
	})
	require.NoError(t, err)
	assert.False(t, res.Applied)
}

// flakyAvailabilityRepo fails a bounded number of writes before behaving
// normally.
type flakyAvailabilityRepo struct {
	domainavailability.Repository
	failures int
}

func (r *flakyAvailabilityRepo) Materialize(ctx context.Context, rows []domainavailability.BlockedDate) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("write conflict")
	}
	return r.Repository.Materialize(ctx, rows)
}

// snapshotBookingRepo returns copies on reads, the way the Mongo repository
// decodes a fresh struct per query. Mutations an aborted transaction made to
// its copy never reach the store.
type snapshotBookingRepo struct {
	domainbooking.Repository
}

func (r snapshotBookingRepo) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	b, err := r.Repository.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *b
	return &cp, nil
}

func (r snapshotBookingRepo) ByPaymentSession(ctx context.Context, sessionID string) (*domainbooking.Booking, error) {
	b, err := r.Repository.ByPaymentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cp := *b
	return &cp, nil
}

func TestReconcile_RedeliveryAfterTransientFailureApplies(t *testing.T) {
	f := newFixture()
	flaky := &flakyAvailabilityRepo{Repository: f.availability, failures: 1}
	f.factory.AvailabilityRepo = flaky
	f.factory.BookingRepo = snapshotBookingRepo{Repository: f.bookings}
	seedPending(t, f, "bk-1", "cs_1")
	h := newHandler(f)
	ctx := context.Background()

	completed := payments.PaymentEventCommand{EventID: "evt-1", Type: payments.EventSessionCompleted, SessionID: "cs_1"}

	// First delivery dies on a storage error; the event must not be counted
	// as seen.
	_, err := h.Handle(ctx, completed)
	require.Error(t, err)

	b, err := f.bookings.ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatePending, b.State)

	// The provider redelivers the identical event; this time it applies.
	res, err := h.Handle(ctx, completed)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	b, err = f.bookings.ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StateConfirmed, b.State)

	blocked, err := f.availability.BlockedDates(ctx, "prop-1")
	require.NoError(t, err)
	assert.Len(t, blocked, 4)
}

func TestReconcile_UnrelatedEventTypeIgnored(t *testing.T) {
	f := newFixture()
	seedPending(t, f, "bk-1", "cs_1")
	h := newHandler(f)

	res, err := h.Handle(context.Background(), payments.PaymentEventCommand{
		EventID:   "evt-1",
		Type:      "charge.refunded",
		SessionID: "cs_1",
	})
	require.NoError(t, err)
	assert.False(t, res.Applied)

	b, err := f.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatePending, b.State)
}
