package memory

import (
	"context"
	"sync"
	"time"

	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	domainrange "staybook/internal/domain/shared/daterange"
)

// PropertyRepository is an in-memory implementation for tests and local runs.
type PropertyRepository struct {
	mu    sync.RWMutex
	items map[domainproperty.PropertyID]*domainproperty.Property
}

func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{items: make(map[domainproperty.PropertyID]*domainproperty.Property)}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domainproperty.ErrPropertyNotFound
	}
	return p, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = p
	return nil
}

// BookingRepository stores bookings keyed by id.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b, nil
}

func (r *BookingRepository) ByPaymentSession(ctx context.Context, sessionID string) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.items {
		if b.PaymentSessionID == sessionID {
			return b, nil
		}
	}
	return nil, domainbooking.ErrBookingNotFound
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Version++
	r.items[b.ID] = b
	return nil
}

func (r *BookingRepository) ForProperty(ctx context.Context, id domainproperty.PropertyID) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.items {
		if b.PropertyID == id {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *BookingRepository) PendingOlderThan(ctx context.Context, cutoff time.Time) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.items {
		if b.State == domainbooking.StatePending && b.CreatedAt.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out, nil
}

// AvailabilityRepository keeps blocked dates and night holds under one mutex.
// Hold uniqueness is enforced the same way the Mongo unique index enforces it:
// a second owner for the same (property, night) gets ErrNightsHeld.
type AvailabilityRepository struct {
	mu      sync.Mutex
	blocked []domainavailability.BlockedDate
	holds   map[string]string // "propertyID:2006-01-02" -> ownerID
}

func NewAvailabilityRepository() *AvailabilityRepository {
	return &AvailabilityRepository{holds: make(map[string]string)}
}

func (r *AvailabilityRepository) BlockedDates(ctx context.Context, id domainproperty.PropertyID) ([]domainavailability.BlockedDate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domainavailability.BlockedDate
	for _, b := range r.blocked {
		if b.PropertyID == id {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *AvailabilityRepository) Materialize(ctx context.Context, rows []domainavailability.BlockedDate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocked = append(r.blocked, rows...)
	return nil
}

func (r *AvailabilityRepository) RemoveByEvent(ctx context.Context, id domainproperty.PropertyID, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.blocked[:0]
	removed := 0
	for _, b := range r.blocked {
		if b.PropertyID == id && b.EventID == eventID {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	r.blocked = kept
	if removed == 0 {
		return domainavailability.ErrEventUnknown
	}
	return nil
}

func (r *AvailabilityRepository) HoldNights(ctx context.Context, id domainproperty.PropertyID, dr domainrange.DateRange, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	days := dr.Days()
	keys := make([]string, 0, len(days))
	for _, day := range days {
		key := holdKey(id, day)
		if owner, taken := r.holds[key]; taken && owner != ownerID {
			return domainavailability.ErrNightsHeld
		}
		keys = append(keys, key)
	}
	for _, key := range keys {
		r.holds[key] = ownerID
	}
	return nil
}

func (r *AvailabilityRepository) ReleaseHolds(ctx context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, owner := range r.holds {
		if owner == ownerID {
			delete(r.holds, key)
		}
	}
	return nil
}

func holdKey(id domainproperty.PropertyID, day time.Time) string {
	return string(id) + ":" + domainrange.Day(day).Format("2006-01-02")
}

// CustomPriceRepository stores per-date rate overrides.
type CustomPriceRepository struct {
	mu    sync.RWMutex
	items map[string]domainpricing.CustomPrice
}

func NewCustomPriceRepository() *CustomPriceRepository {
	return &CustomPriceRepository{items: make(map[string]domainpricing.CustomPrice)}
}

func (r *CustomPriceRepository) ForProperty(ctx context.Context, id domainproperty.PropertyID) ([]domainpricing.CustomPrice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domainpricing.CustomPrice
	for _, cp := range r.items {
		if cp.PropertyID == id {
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *CustomPriceRepository) Save(ctx context.Context, cp domainpricing.CustomPrice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[holdKey(cp.PropertyID, cp.Date)] = cp
	return nil
}

var _ domainproperty.Repository = (*PropertyRepository)(nil)
var _ domainbooking.Repository = (*BookingRepository)(nil)
var _ domainavailability.Repository = (*AvailabilityRepository)(nil)
var _ domainpricing.CustomPriceRepository = (*CustomPriceRepository)(nil)
