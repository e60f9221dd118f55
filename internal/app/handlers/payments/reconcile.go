package payments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
)

const reconcileKey = "payments.reconcile"

const (
	EventSessionCompleted = "checkout.session.completed"
	EventSessionExpired   = "checkout.session.expired"
)

var (
	ErrUnitOfWorkRequired = errors.New("payments: unit of work factory required")
	// ErrUnknownBooking marks an event referencing a booking we cannot find.
	// It is logged and swallowed; the event stream must keep moving.
	ErrUnknownBooking = errors.New("payments: event references unknown booking")
)

// Inbox deduplicates externally delivered events. The payment collaborator
// delivers at-least-once. Seen must not record the event: recording happens
// via MarkSeen inside the reconciler's unit of work, so a delivery whose
// state change rolls back stays unseen and the redelivery is applied.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
}

// PaymentEventCommand is one verified fact from the payment collaborator.
// Signature verification happens upstream; by the time an event reaches this
// handler it is trusted.
type PaymentEventCommand struct {
	EventID   string
	Type      string
	SessionID string
	BookingID string
}

func (c PaymentEventCommand) Key() string { return reconcileKey }

type PaymentEventResult struct {
	BookingID string `json:"booking_id,omitempty"`
	State     string `json:"state,omitempty"`
	Applied   bool   `json:"applied"`
}

// ReconcileHandler applies payment outcomes to booking state. On success the
// booking's nights are materialized as blocked dates under one event id; on
// expiry the pending hold is released. Replayed events are no-ops: the inbox
// filters duplicates and the state guard catches anything that slips past.
type ReconcileHandler struct {
	UoWFactory uow.UoWFactory
	Inbox      Inbox
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Notifier   policies.Notifier
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *ReconcileHandler) Handle(ctx context.Context, cmd PaymentEventCommand) (*PaymentEventResult, error) {
	if h.UoWFactory == nil {
		return nil, ErrUnitOfWorkRequired
	}
	// Read-only check; the event is recorded inside the apply transaction so
	// a rolled-back delivery can be redelivered.
	if h.Inbox != nil && cmd.EventID != "" {
		seen, err := h.Inbox.Seen(ctx, cmd.EventID)
		if err != nil {
			return nil, err
		}
		if seen {
			return &PaymentEventResult{Applied: false}, nil
		}
	}

	switch cmd.Type {
	case EventSessionCompleted:
		return h.applyCompleted(ctx, cmd)
	case EventSessionExpired:
		return h.applyExpired(ctx, cmd)
	default:
		h.log().Info("ignoring payment event", "type", cmd.Type, "event_id", cmd.EventID)
		return &PaymentEventResult{Applied: false}, nil
	}
}

func (h *ReconcileHandler) applyCompleted(ctx context.Context, cmd PaymentEventCommand) (*PaymentEventResult, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	ctx = injectUnit(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	b, err := h.lookup(ctx, unit, cmd)
	if err != nil {
		h.log().Warn("payment event for unknown booking", "event_id", cmd.EventID, "booking_id", cmd.BookingID, "session_id", cmd.SessionID)
		return &PaymentEventResult{Applied: false}, nil
	}
	if b.State == domainbooking.StateConfirmed {
		// Replay after a partial delivery; nothing left to do.
		return &PaymentEventResult{BookingID: string(b.ID), State: string(b.State), Applied: false}, nil
	}
	if b.State != domainbooking.StatePending {
		h.log().Warn("payment success for terminal booking", "booking_id", b.ID, "state", b.State)
		return &PaymentEventResult{BookingID: string(b.ID), State: string(b.State), Applied: false}, nil
	}

	now := h.now()
	blockEventID := uuid.NewString()
	if err := b.Confirm(blockEventID, now); err != nil {
		return nil, err
	}
	rows := domainavailability.MaterializeRows(b.PropertyID, b.Range, domainavailability.ReasonBooked, blockEventID, now)
	if err := unit.Availability().Materialize(ctx, rows); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}
	if err := h.markSeen(ctx, cmd.EventID); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	h.notifyConfirmed(ctx, b)
	return &PaymentEventResult{BookingID: string(b.ID), State: string(b.State), Applied: true}, nil
}

func (h *ReconcileHandler) applyExpired(ctx context.Context, cmd PaymentEventCommand) (*PaymentEventResult, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	ctx = injectUnit(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	b, err := h.lookup(ctx, unit, cmd)
	if err != nil {
		h.log().Warn("payment event for unknown booking", "event_id", cmd.EventID, "booking_id", cmd.BookingID, "session_id", cmd.SessionID)
		return &PaymentEventResult{Applied: false}, nil
	}
	if b.State != domainbooking.StatePending {
		return &PaymentEventResult{BookingID: string(b.ID), State: string(b.State), Applied: false}, nil
	}

	if err := b.MarkPaymentFailed(h.now()); err != nil {
		return nil, err
	}
	if err := unit.Availability().ReleaseHolds(ctx, string(b.ID)); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}
	if err := h.markSeen(ctx, cmd.EventID); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	return &PaymentEventResult{BookingID: string(b.ID), State: string(b.State), Applied: true}, nil
}

func (h *ReconcileHandler) lookup(ctx context.Context, unit uow.UnitOfWork, cmd PaymentEventCommand) (*domainbooking.Booking, error) {
	if cmd.BookingID != "" {
		b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
		if err == nil {
			return b, nil
		}
	}
	if cmd.SessionID != "" {
		b, err := unit.Bookings().ByPaymentSession(ctx, cmd.SessionID)
		if err == nil {
			return b, nil
		}
	}
	return nil, ErrUnknownBooking
}

func (h *ReconcileHandler) markSeen(ctx context.Context, eventID string) error {
	if h.Inbox == nil || eventID == "" {
		return nil
	}
	return h.Inbox.MarkSeen(ctx, eventID)
}

func (h *ReconcileHandler) notifyConfirmed(ctx context.Context, b *domainbooking.Booking) {
	if h.Notifier == nil {
		return
	}
	data := map[string]any{
		"confirmation_code": b.ConfirmationCode,
		"check_in":          b.Range.CheckIn.Format("2006-01-02"),
		"check_out":         b.Range.CheckOut.Format("2006-01-02"),
		"guests":            b.Guests,
	}
	if err := h.Notifier.Send(ctx, b.Guest.Email, "booking_confirmed", data); err != nil {
		h.log().Warn("confirmation notification failed", "booking_id", b.ID, "error", err)
	}
}

func (h *ReconcileHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *ReconcileHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *ReconcileHandler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func injectUnit(ctx context.Context, unit uow.UnitOfWork) context.Context {
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = injector.InjectContext(ctx)
	}
	return uow.ContextWithUnitOfWork(ctx, unit)
}

var _ commands.Handler[PaymentEventCommand, *PaymentEventResult] = (*ReconcileHandler)(nil)
