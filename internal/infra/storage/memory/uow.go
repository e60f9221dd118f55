package memory

import (
	"context"
	"errors"

	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	PropertyRepo     domainproperty.Repository
	BookingRepo      domainbooking.Repository
	AvailabilityRepo domainavailability.Repository
	CustomPriceRepo  domainpricing.CustomPriceRepository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided but
// the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.PropertyRepo == nil || f.BookingRepo == nil || f.AvailabilityRepo == nil || f.CustomPriceRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		properties:   f.PropertyRepo,
		bookings:     f.BookingRepo,
		availability: f.AvailabilityRepo,
		customPrices: f.CustomPriceRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	properties   domainproperty.Repository
	bookings     domainbooking.Repository
	availability domainavailability.Repository
	customPrices domainpricing.CustomPriceRepository
}

func (u *Unit) Properties() domainproperty.Repository {
	return u.properties
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

func (u *Unit) Availability() domainavailability.Repository {
	return u.availability
}

func (u *Unit) CustomPricing() domainpricing.CustomPriceRepository {
	return u.customPrices
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
