package availability

import (
	"time"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
)

type NightsBlocked struct {
	PropertyID property.PropertyID
	Range      daterange.DateRange
	Reason     BlockReason
	EventID    string
	At         time.Time
}

func (e NightsBlocked) EventName() string     { return "availability.nights_blocked" }
func (e NightsBlocked) AggregateID() string   { return string(e.PropertyID) }
func (e NightsBlocked) OccurredAt() time.Time { return e.At }

type NightsReleased struct {
	PropertyID property.PropertyID
	EventID    string
	At         time.Time
}

func (e NightsReleased) EventName() string     { return "availability.nights_released" }
func (e NightsReleased) AggregateID() string   { return string(e.PropertyID) }
func (e NightsReleased) OccurredAt() time.Time { return e.At }

type DoubleBookingPrevented struct {
	PropertyID property.PropertyID
	Range      daterange.DateRange
	At         time.Time
}

func (e DoubleBookingPrevented) EventName() string     { return "availability.double_booking_prevented" }
func (e DoubleBookingPrevented) AggregateID() string   { return string(e.PropertyID) }
func (e DoubleBookingPrevented) OccurredAt() time.Time { return e.At }
