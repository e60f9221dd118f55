package property

import (
	"context"
	"time"

	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	domainrange "staybook/internal/domain/shared/daterange"
)

const (
	getPropertyKey  = "property.get"
	listBookingsKey = "property.bookings"
	quoteKey        = "property.quote"
)

type GetPropertyQuery struct {
	PropertyID string
}

func (q GetPropertyQuery) Key() string { return getPropertyKey }

type GetPropertyHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetPropertyHandler) Handle(ctx context.Context, q GetPropertyQuery) (dto.Property, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Property{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	p, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(q.PropertyID))
	if err != nil {
		return dto.Property{}, err
	}
	return dto.MapProperty(p), nil
}

type ListBookingsQuery struct {
	PropertyID string
}

func (q ListBookingsQuery) Key() string { return listBookingsKey }

// ListBookingsHandler returns the property's bookings as stored. A storage
// failure surfaces as an error; it is never papered over with fabricated
// records.
type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListBookingsHandler) Handle(ctx context.Context, q ListBookingsQuery) ([]dto.Booking, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	bs, err := unit.Bookings().ForProperty(ctx, domainproperty.PropertyID(q.PropertyID))
	if err != nil {
		return nil, err
	}
	return dto.MapBookings(bs), nil
}

type QuoteQuery struct {
	PropertyID string
	CheckIn    time.Time
	CheckOut   time.Time
}

func (q QuoteQuery) Key() string { return quoteKey }

// QuoteHandler prices a candidate stay with the same rules used at
// submission time: per-date overrides, weekend rates, fixed fees.
type QuoteHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *QuoteHandler) Handle(ctx context.Context, q QuoteQuery) (dto.Quote, error) {
	dr, err := domainrange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Quote{}, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Quote{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	p, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(q.PropertyID))
	if err != nil {
		return dto.Quote{}, err
	}
	overrides, err := unit.CustomPricing().ForProperty(ctx, p.ID)
	if err != nil {
		return dto.Quote{}, err
	}
	breakdown, err := domainpricing.Quote(p, dr, overrides)
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.MapQuote(q.PropertyID, dr, breakdown), nil
}

var _ queries.Handler[GetPropertyQuery, dto.Property] = (*GetPropertyHandler)(nil)
var _ queries.Handler[ListBookingsQuery, []dto.Booking] = (*ListBookingsHandler)(nil)
var _ queries.Handler[QuoteQuery, dto.Quote] = (*QuoteHandler)(nil)
