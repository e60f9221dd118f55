package availability

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
)

var (
	ErrNightsHeld   = errors.New("availability: one or more nights already held")
	ErrEventUnknown = errors.New("availability: no blocked dates for event")
)

type BlockReason string

const (
	ReasonBooked    BlockReason = "BOOKED"
	ReasonHostBlock BlockReason = "HOST_BLOCK"
)

// BlockedDate is an explicit per-day unavailability row, independent of any
// booking. A confirmed booking's nights are materialized as one row per day,
// all sharing a single EventID so cancellation can remove them as a unit.
type BlockedDate struct {
	PropertyID property.PropertyID
	Date       time.Time
	Reason     BlockReason
	EventID    string
	CreatedAt  time.Time
}

// NightHold is the storage-level exclusion surface: one row per (property,
// night) held by an active booking or host block, guarded by a unique index.
// Concurrent submissions for overlapping ranges collide here, not in
// application code.
type NightHold struct {
	PropertyID property.PropertyID
	Date       time.Time
	OwnerID    string
}

// Repository persists blocked dates and night holds. HoldNights must be
// atomic with respect to the unique (property, date) constraint and return
// ErrNightsHeld when any night in the range is already owned.
type Repository interface {
	BlockedDates(ctx context.Context, id property.PropertyID) ([]BlockedDate, error)
	Materialize(ctx context.Context, rows []BlockedDate) error
	RemoveByEvent(ctx context.Context, id property.PropertyID, eventID string) error

	HoldNights(ctx context.Context, id property.PropertyID, dr daterange.DateRange, ownerID string) error
	ReleaseHolds(ctx context.Context, ownerID string) error
}

// IsDateAvailable answers the per-day oracle question: a day is free iff no
// explicit BlockedDate covers it and no occupied stay contains it. Stays are
// half-open ranges, so a stay ending on the day does not block it.
func IsDateAvailable(date time.Time, blocked []BlockedDate, stays []daterange.DateRange) bool {
	day := daterange.Day(date)
	for _, b := range blocked {
		if daterange.Day(b.Date).Equal(day) {
			return false
		}
	}
	for _, stay := range stays {
		if stay.ContainsDate(day) {
			return false
		}
	}
	return true
}

// IsRangeAvailable is the conjunction of IsDateAvailable over every night in
// the range, short-circuiting on the first conflict. There is no notion of a
// partially available range.
func IsRangeAvailable(dr daterange.DateRange, blocked []BlockedDate, stays []daterange.DateRange) bool {
	for _, day := range dr.Days() {
		if !IsDateAvailable(day, blocked, stays) {
			return false
		}
	}
	return true
}

// MaterializeRows expands a stay into per-day BlockedDate rows sharing one
// event id.
func MaterializeRows(id property.PropertyID, dr daterange.DateRange, reason BlockReason, eventID string, now time.Time) []BlockedDate {
	days := dr.Days()
	rows := make([]BlockedDate, 0, len(days))
	for _, day := range days {
		rows = append(rows, BlockedDate{
			PropertyID: id,
			Date:       day,
			Reason:     reason,
			EventID:    eventID,
			CreatedAt:  now.UTC(),
		})
	}
	return rows
}
