package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	domainrange "staybook/internal/domain/shared/daterange"
)

const submitBookingKey = "booking.submit"

// ErrDatesUnavailable is the conflict-guard rejection: at least one night in
// the requested range is blocked or held by another booking. The guest can
// recover by picking different dates.
var ErrDatesUnavailable = errors.New("booking: selected dates are unavailable")

var ErrUnitOfWorkRequired = errors.New("booking: unit of work factory required")

// ErrMissingFields rejects submissions without the identifiers every later
// step keys on.
var ErrMissingFields = errors.New("booking: command id and property id required")

type SubmitBookingCommand struct {
	CommandID       string
	PropertyID      string
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	SpecialRequests string
	IdempotencyKeyV string
}

func (c SubmitBookingCommand) Key() string { return submitBookingKey }

func (c SubmitBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c SubmitBookingCommand) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.CommandID) == "" || strings.TrimSpace(c.PropertyID) == "" {
		return ErrMissingFields
	}
	return nil
}

func (c SubmitBookingCommand) ResultPrototype() any { return &SubmitBookingResult{} }

type SubmitBookingResult struct {
	BookingID        string `json:"booking_id"`
	ConfirmationCode string `json:"confirmation_code"`
	PaymentSessionID string `json:"payment_session_id"`
	RedirectURL      string `json:"redirect_url"`
}

// SubmitBookingHandler is the conflict guard: it re-validates the requested
// range against current storage state inside one transaction, inserts the
// pending booking together with its night holds, and only then asks the
// payment collaborator for a checkout session. A session failure triggers a
// compensating cancellation so no phantom hold survives.
type SubmitBookingHandler struct {
	UoWFactory     uow.UoWFactory
	Payments       policies.PaymentsPort
	Outbox         outbox.Outbox
	Encoder        outbox.EventEncoder
	PaymentTimeout time.Duration
	Now            func() time.Time
}

func (h *SubmitBookingHandler) Handle(ctx context.Context, cmd SubmitBookingCommand) (*SubmitBookingResult, error) {
	if h.UoWFactory == nil {
		return nil, ErrUnitOfWorkRequired
	}
	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	now := h.now()

	var created *domainbooking.Booking
	var propertyTitle string
	// One bounded retry for transient storage failures; user-correctable
	// rejections pass straight through.
	for attempt := 0; ; attempt++ {
		created, propertyTitle, err = h.reserve(ctx, cmd, dr, now)
		if err == nil {
			break
		}
		if attempt >= 1 || isUserError(err) {
			return nil, err
		}
	}

	session, err := h.createSession(ctx, created, propertyTitle)
	if err != nil {
		if cancelErr := h.compensate(ctx, created.ID); cancelErr != nil {
			return nil, errors.Join(err, cancelErr)
		}
		return nil, fmt.Errorf("%w: %v", policies.ErrPaymentSession, err)
	}

	if err := h.attachSession(ctx, created.ID, session.ID); err != nil {
		return nil, err
	}

	return &SubmitBookingResult{
		BookingID:        string(created.ID),
		ConfirmationCode: created.ConfirmationCode,
		PaymentSessionID: session.ID,
		RedirectURL:      session.URL,
	}, nil
}

// reserve runs the transactional half of submission: oracle check, night
// holds, booking insert. Everything commits or nothing does.
func (h *SubmitBookingHandler) reserve(ctx context.Context, cmd SubmitBookingCommand, dr domainrange.DateRange, now time.Time) (*domainbooking.Booking, string, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, "", err
	}
	ctx = injectUnit(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	prop, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(cmd.PropertyID))
	if err != nil {
		return nil, "", err
	}
	if err := domainbooking.ValidateStay(dr, prop, now); err != nil {
		return nil, "", err
	}
	if cmd.Guests < 1 || cmd.Guests > prop.GuestsLimit {
		return nil, "", domainbooking.ErrInvalidGuests
	}

	blocked, err := unit.Availability().BlockedDates(ctx, prop.ID)
	if err != nil {
		return nil, "", err
	}
	existing, err := unit.Bookings().ForProperty(ctx, prop.ID)
	if err != nil {
		return nil, "", err
	}
	if !domainavailability.IsRangeAvailable(dr, blocked, domainbooking.BlockingRanges(existing)) {
		return nil, "", ErrDatesUnavailable
	}

	overrides, err := unit.CustomPricing().ForProperty(ctx, prop.ID)
	if err != nil {
		return nil, "", err
	}
	quote, err := domainpricing.Quote(prop, dr, overrides)
	if err != nil {
		return nil, "", err
	}

	bookingID := domainbooking.BookingID(cmd.CommandID)
	// The unique (property, night) index is the authoritative guard; a
	// concurrent overlapping submission loses here even though both passed
	// the oracle read above.
	if err := unit.Availability().HoldNights(ctx, prop.ID, dr, string(bookingID)); err != nil {
		if errors.Is(err, domainavailability.ErrNightsHeld) {
			return nil, "", ErrDatesUnavailable
		}
		return nil, "", err
	}

	created, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         bookingID,
		PropertyID: prop.ID,
		Guest: domainbooking.GuestContact{
			FirstName: cmd.FirstName,
			LastName:  cmd.LastName,
			Email:     cmd.Email,
			Phone:     cmd.Phone,
		},
		Range:            dr,
		Guests:           cmd.Guests,
		SpecialRequests:  cmd.SpecialRequests,
		Price:            quote,
		ConfirmationCode: newConfirmationCode(),
		CreatedAt:        now,
	})
	if err != nil {
		return nil, "", err
	}
	if err := unit.Bookings().Save(ctx, created); err != nil {
		return nil, "", err
	}

	pending := created.PendingEvents()
	created.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, "", err
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, "", err
	}
	committed = true
	return created, prop.Title, nil
}

func (h *SubmitBookingHandler) createSession(ctx context.Context, b *domainbooking.Booking, propertyTitle string) (policies.PaymentSession, error) {
	if h.Payments == nil {
		return policies.PaymentSession{}, policies.ErrPaymentSession
	}
	timeout := h.PaymentTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return h.Payments.CreateSession(ctx, policies.SessionRequest{
		BookingID:     string(b.ID),
		PropertyTitle: propertyTitle,
		CustomerEmail: b.Guest.Email,
		Amount:        b.Price.Total,
		Nights:        b.Price.NightCount(),
	})
}

// compensate cancels the just-created pending booking after a payment-session
// failure so its nights are released immediately.
func (h *SubmitBookingHandler) compensate(ctx context.Context, id domainbooking.BookingID) error {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	ctx = injectUnit(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	b, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := b.Cancel("payment session unavailable", h.now()); err != nil {
		return err
	}
	if err := unit.Availability().ReleaseHolds(ctx, string(id)); err != nil {
		return err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return err
	}
	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return err
	}
	if err := unit.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (h *SubmitBookingHandler) attachSession(ctx context.Context, id domainbooking.BookingID, sessionID string) error {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	ctx = injectUnit(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	b, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return err
	}
	b.AttachPaymentSession(sessionID, h.now())
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return err
	}
	if err := unit.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (h *SubmitBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *SubmitBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func isUserError(err error) bool {
	switch {
	case errors.Is(err, ErrDatesUnavailable),
		errors.Is(err, domainrange.ErrInvalidRange),
		errors.Is(err, domainbooking.ErrCheckInInPast),
		errors.Is(err, domainbooking.ErrMinStay),
		errors.Is(err, domainbooking.ErrContactRequired),
		errors.Is(err, domainbooking.ErrInvalidGuests),
		errors.Is(err, domainproperty.ErrPropertyNotFound):
		return true
	}
	return false
}

func newConfirmationCode() string {
	return "BOK-" + strings.ToUpper(uuid.NewString()[:8])
}

func injectUnit(ctx context.Context, unit uow.UnitOfWork) context.Context {
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = injector.InjectContext(ctx)
	}
	return uow.ContextWithUnitOfWork(ctx, unit)
}

var _ commands.Handler[SubmitBookingCommand, *SubmitBookingResult] = (*SubmitBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*SubmitBookingCommand)(nil)
