package booking

import (
	"errors"
	"time"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
)

var ErrCheckInInPast = errors.New("booking: check-in date is in the past")

// ValidateStay runs the input checks that do not need storage: check-in not
// in the past and the property's minimum stay.
func ValidateStay(dr daterange.DateRange, p *property.Property, now time.Time) error {
	if daterange.Day(dr.CheckIn).Before(daterange.Day(now)) {
		return ErrCheckInInPast
	}
	if dr.Nights() < p.MinStayNights {
		return ErrMinStay
	}
	return nil
}
