package ginserver

import (
	"errors"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/policies"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	domainrange "staybook/internal/domain/shared/daterange"
)

// respondError maps application errors onto HTTP statuses. Conflicts are
// distinguished from plain validation failures so clients can offer a
// "pick new dates" recovery path.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainproperty.ErrPropertyNotFound),
		errors.Is(err, domainbooking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, bookingapp.ErrDatesUnavailable),
		errors.Is(err, availabilityapp.ErrRangeConflicts):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domainrange.ErrInvalidRange),
		errors.Is(err, domainbooking.ErrCheckInInPast),
		errors.Is(err, domainbooking.ErrMinStay),
		errors.Is(err, domainbooking.ErrContactRequired),
		errors.Is(err, domainbooking.ErrInvalidGuests),
		errors.Is(err, bookingapp.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, policies.ErrPaymentSession):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

const dayLayout = "2006-01-02"

// parseDay accepts the calendar's date-only format and falls back to RFC 3339
// for clients that send full timestamps.
func parseDay(raw string) (time.Time, error) {
	if t, err := time.Parse(dayLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
