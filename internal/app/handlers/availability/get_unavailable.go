package availability

import (
	"context"

	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
)

const getUnavailableKey = "availability.unavailable_dates"

type GetUnavailableDatesQuery struct {
	PropertyID string
}

func (q GetUnavailableDatesQuery) Key() string { return getUnavailableKey }

// GetUnavailableDatesHandler merges explicit blocked dates with nights covered
// by bookings that still hold them into the flat per-day list the calendar
// renders. It reads the same oracle inputs as the conflict guard, so what the
// picker greys out is exactly what the server would refuse.
type GetUnavailableDatesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetUnavailableDatesHandler) Handle(ctx context.Context, q GetUnavailableDatesQuery) (dto.UnavailableDates, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.UnavailableDates{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	id := domainproperty.PropertyID(q.PropertyID)
	blocked, err := unit.Availability().BlockedDates(ctx, id)
	if err != nil {
		return dto.UnavailableDates{}, err
	}
	bookings, err := unit.Bookings().ForProperty(ctx, id)
	if err != nil {
		return dto.UnavailableDates{}, err
	}

	return dto.MapUnavailableDates(q.PropertyID, blocked, domainbooking.BlockingRanges(bookings)), nil
}

var _ queries.Handler[GetUnavailableDatesQuery, dto.UnavailableDates] = (*GetUnavailableDatesHandler)(nil)
