package booking

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
)

const sweepStaleKey = "booking.sweep_stale"

type SweepStaleBookingsCommand struct {
	Cutoff time.Time
}

func (c SweepStaleBookingsCommand) Key() string { return sweepStaleKey }

type SweepStaleBookingsResult struct {
	Cancelled int `json:"cancelled"`
}

// SweepStaleBookingsHandler cancels pending bookings whose payment never
// completed. Pending bookings block their nights, so without this sweep an
// abandoned checkout would hold a range forever. Runs on a timer from main.
type SweepStaleBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *SweepStaleBookingsHandler) Handle(ctx context.Context, cmd SweepStaleBookingsCommand) (*SweepStaleBookingsResult, error) {
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

	stale, err := unit.Bookings().PendingOlderThan(ctx, cmd.Cutoff)
	if err != nil {
		return nil, err
	}

	now := h.now()
	sessions := make([]string, 0, len(stale))
	cancelled := 0
	for _, b := range stale {
		if err := b.Cancel("payment window expired", now); err != nil {
			continue
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
		if b.PaymentSessionID != "" {
			sessions = append(sessions, b.PaymentSessionID)
		}
		cancelled++
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	// Best effort: tell the payment collaborator the sessions are dead so the
	// guest cannot pay for a booking we just cancelled.
	if h.Payments != nil {
		for _, sessionID := range sessions {
			if err := h.Payments.ExpireSession(ctx, sessionID); err != nil && h.Logger != nil {
				h.Logger.Warn("expire payment session failed", "session_id", sessionID, "error", err)
			}
		}
	}

	return &SweepStaleBookingsResult{Cancelled: cancelled}, nil
}

func (h *SweepStaleBookingsHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *SweepStaleBookingsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[SweepStaleBookingsCommand, *SweepStaleBookingsResult] = (*SweepStaleBookingsHandler)(nil)
