package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/pricing"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

var (
	ErrInvalidGuests   = errors.New("booking: guest count must be positive")
	ErrInvalidState    = errors.New("booking: invalid state transition")
	ErrBookingNotFound = errors.New("booking: not found")
	ErrContactRequired = errors.New("booking: guest name, email and phone are required")
	ErrMinStay         = errors.New("booking: stay is shorter than the property minimum")
)

type BookingID string

type BookingState string

const (
	StatePending       BookingState = "PENDING"
	StateConfirmed     BookingState = "CONFIRMED"
	StateCancelled     BookingState = "CANCELLED"
	StatePaymentFailed BookingState = "PAYMENT_FAILED"
	StateRefunded      BookingState = "REFUNDED"
)

// Blocks reports whether a booking in this state holds its nights. Pending
// bookings are soft holds and still block; cancelled and failed ones free
// their nights.
func (s BookingState) Blocks() bool {
	return s == StatePending || s == StateConfirmed
}

// GuestContact is everything the host needs to reach the guest. The site has
// no accounts, so contact details live on the booking itself.
type GuestContact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

func (g GuestContact) Validate() error {
	for _, field := range []string{g.FirstName, g.LastName, g.Email, g.Phone} {
		if strings.TrimSpace(field) == "" {
			return ErrContactRequired
		}
	}
	return nil
}

func (g GuestContact) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

type Booking struct {
	ID               BookingID
	PropertyID       property.PropertyID
	Guest            GuestContact
	Range            daterange.DateRange
	Guests           int
	SpecialRequests  string
	Price            pricing.PriceBreakdown
	State            BookingState
	ConfirmationCode string
	PaymentSessionID string
	// BlockEventID tags the BlockedDate rows materialized on confirmation so
	// cancellation can remove exactly those rows.
	BlockEventID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	ByPaymentSession(ctx context.Context, sessionID string) (*Booking, error)
	Save(ctx context.Context, b *Booking) error
	ForProperty(ctx context.Context, id property.PropertyID) ([]*Booking, error)
	PendingOlderThan(ctx context.Context, cutoff time.Time) ([]*Booking, error)
}

// BlockingRanges extracts the stay ranges of bookings whose state still holds
// nights. This is the only place the "non-cancelled bookings block" rule is
// spelled out, so the calendar query and the conflict guard cannot diverge.
func BlockingRanges(bs []*Booking) []daterange.DateRange {
	out := make([]daterange.DateRange, 0, len(bs))
	for _, b := range bs {
		if b.State.Blocks() {
			out = append(out, b.Range)
		}
	}
	return out
}

type CreateParams struct {
	ID               BookingID
	PropertyID       property.PropertyID
	Guest            GuestContact
	Range            daterange.DateRange
	Guests           int
	SpecialRequests  string
	Price            pricing.PriceBreakdown
	ConfirmationCode string
	CreatedAt        time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if err := params.Guest.Validate(); err != nil {
		return nil, err
	}
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.Price.Total.Amount <= 0 {
		return nil, errors.New("booking: total must be positive")
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:               params.ID,
		PropertyID:       params.PropertyID,
		Guest:            params.Guest,
		Range:            params.Range,
		Guests:           params.Guests,
		SpecialRequests:  params.SpecialRequests,
		Price:            params.Price,
		State:            StatePending,
		ConfirmationCode: params.ConfirmationCode,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	b.Record(BookingRequested{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		GuestEmail: b.Guest.Email,
		Range:      b.Range,
		Guests:     b.Guests,
		Total:      b.Price.Total,
		At:         now,
	})
	return b, nil
}

// AttachPaymentSession records the hosted-checkout session created for this
// booking.
func (b *Booking) AttachPaymentSession(sessionID string, now time.Time) {
	b.PaymentSessionID = sessionID
	b.UpdatedAt = now.UTC()
}

// Confirm moves a pending booking to confirmed once payment succeeded. The
// block event id ties the materialized nights back to this booking.
func (b *Booking) Confirm(blockEventID string, now time.Time) error {
	if b.State != StatePending {
		return ErrInvalidState
	}
	b.State = StateConfirmed
	b.BlockEventID = blockEventID
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, Total: b.Price.Total, At: b.UpdatedAt})
	return nil
}

// Cancel releases a pending or confirmed booking's nights.
func (b *Booking) Cancel(reason string, now time.Time) error {
	switch b.State {
	case StatePending, StateConfirmed:
	default:
		return ErrInvalidState
	}
	b.State = StateCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, PropertyID: b.PropertyID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// MarkPaymentFailed records that the payment session expired or was rejected
// while the booking was still pending.
func (b *Booking) MarkPaymentFailed(now time.Time) error {
	if b.State != StatePending {
		return ErrInvalidState
	}
	b.State = StatePaymentFailed
	b.UpdatedAt = now.UTC()
	b.Record(BookingPaymentFailed{BookingID: b.ID, PropertyID: b.PropertyID, At: b.UpdatedAt})
	return nil
}

// MarkRefunded is terminal bookkeeping after an out-of-band refund of a
// cancelled confirmed stay.
func (b *Booking) MarkRefunded(amount money.Money, now time.Time) error {
	if b.State != StateCancelled {
		return ErrInvalidState
	}
	b.State = StateRefunded
	b.UpdatedAt = now.UTC()
	b.Record(BookingRefunded{BookingID: b.ID, Amount: amount, At: b.UpdatedAt})
	return nil
}
