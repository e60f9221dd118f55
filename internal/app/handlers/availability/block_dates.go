package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainproperty "staybook/internal/domain/property"
	domainrange "staybook/internal/domain/shared/daterange"
	domainevents "staybook/internal/domain/shared/events"
)

const (
	blockDatesKey   = "availability.block_dates"
	unblockDatesKey = "availability.unblock_dates"
)

var (
	ErrUnitOfWorkRequired = errors.New("availability: unit of work factory required")
	// ErrRangeConflicts mirrors the booking-side conflict error for host
	// blocks: a host cannot block nights a guest already holds.
	ErrRangeConflicts = errors.New("availability: range overlaps existing holds")
)

type BlockDatesCommand struct {
	PropertyID string
	From       time.Time
	To         time.Time
	Reason     string
}

func (c BlockDatesCommand) Key() string { return blockDatesKey }

type BlockDatesResult struct {
	EventID string `json:"event_id"`
	Nights  int    `json:"nights"`
}

// BlockDatesHandler lets the host mark a range unavailable without a booking
// (personal use, maintenance). The rows share one event id so UnblockDates
// can undo the whole range at once, and the same night-hold index that guards
// bookings guards host blocks.
type BlockDatesHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *BlockDatesHandler) Handle(ctx context.Context, cmd BlockDatesCommand) (*BlockDatesResult, error) {
	if h.UoWFactory == nil {
		return nil, ErrUnitOfWorkRequired
	}
	dr, err := domainrange.New(cmd.From, cmd.To)
	if err != nil {
		return nil, err
	}
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

	id := domainproperty.PropertyID(cmd.PropertyID)
	if _, err := unit.Properties().ByID(ctx, id); err != nil {
		return nil, err
	}

	now := h.now()
	eventID := uuid.NewString()
	if err := unit.Availability().HoldNights(ctx, id, dr, eventID); err != nil {
		if errors.Is(err, domainavailability.ErrNightsHeld) {
			return nil, ErrRangeConflicts
		}
		return nil, err
	}

	reason := domainavailability.BlockReason(cmd.Reason)
	if reason == "" {
		reason = domainavailability.ReasonHostBlock
	}
	rows := domainavailability.MaterializeRows(id, dr, reason, eventID, now)
	if err := unit.Availability().Materialize(ctx, rows); err != nil {
		return nil, err
	}

	record := domainavailability.NightsBlocked{PropertyID: id, Range: dr, Reason: reason, EventID: eventID, At: now}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []domainevents.DomainEvent{record}); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	return &BlockDatesResult{EventID: eventID, Nights: dr.Nights()}, nil
}

type UnblockDatesCommand struct {
	PropertyID string
	EventID    string
}

func (c UnblockDatesCommand) Key() string { return unblockDatesKey }

type UnblockDatesResult struct {
	EventID string `json:"event_id"`
}

type UnblockDatesHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *UnblockDatesHandler) Handle(ctx context.Context, cmd UnblockDatesCommand) (*UnblockDatesResult, error) {
	if h.UoWFactory == nil {
		return nil, ErrUnitOfWorkRequired
	}
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

	id := domainproperty.PropertyID(cmd.PropertyID)
	if err := unit.Availability().RemoveByEvent(ctx, id, cmd.EventID); err != nil {
		return nil, err
	}
	if err := unit.Availability().ReleaseHolds(ctx, cmd.EventID); err != nil {
		return nil, err
	}

	record := domainavailability.NightsReleased{PropertyID: id, EventID: cmd.EventID, At: h.now()}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []domainevents.DomainEvent{record}); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	return &UnblockDatesResult{EventID: cmd.EventID}, nil
}

func (h *BlockDatesHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *BlockDatesHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *UnblockDatesHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *UnblockDatesHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func injectUnit(ctx context.Context, unit uow.UnitOfWork) context.Context {
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = injector.InjectContext(ctx)
	}
	return uow.ContextWithUnitOfWork(ctx, unit)
}

var _ commands.Handler[BlockDatesCommand, *BlockDatesResult] = (*BlockDatesHandler)(nil)
var _ commands.Handler[UnblockDatesCommand, *UnblockDatesResult] = (*UnblockDatesHandler)(nil)
