package dto

import (
	"time"

	domainbooking "staybook/internal/domain/booking"
)

type Booking struct {
	ID               string    `json:"id"`
	PropertyID       string    `json:"property_id"`
	GuestName        string    `json:"guest_name"`
	GuestEmail       string    `json:"guest_email"`
	CheckIn          string    `json:"check_in"`
	CheckOut         string    `json:"check_out"`
	Guests           int       `json:"guests"`
	Status           string    `json:"status"`
	ConfirmationCode string    `json:"confirmation_code"`
	TotalCents       int64     `json:"total_cents"`
	Currency         string    `json:"currency"`
	CreatedAt        time.Time `json:"created_at"`
}

const dayFormat = "2006-01-02"

func MapBooking(b *domainbooking.Booking) Booking {
	return Booking{
		ID:               string(b.ID),
		PropertyID:       string(b.PropertyID),
		GuestName:        b.Guest.FullName(),
		GuestEmail:       b.Guest.Email,
		CheckIn:          b.Range.CheckIn.Format(dayFormat),
		CheckOut:         b.Range.CheckOut.Format(dayFormat),
		Guests:           b.Guests,
		Status:           string(b.State),
		ConfirmationCode: b.ConfirmationCode,
		TotalCents:       b.Price.Total.Amount,
		Currency:         b.Price.Total.Currency,
		CreatedAt:        b.CreatedAt,
	}
}

func MapBookings(bs []*domainbooking.Booking) []Booking {
	out := make([]Booking, 0, len(bs))
	for _, b := range bs {
		out = append(out, MapBooking(b))
	}
	return out
}
