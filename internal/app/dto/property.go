package dto

import (
	domainproperty "staybook/internal/domain/property"
)

type Property struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	City             string   `json:"city"`
	Country          string   `json:"country"`
	NightlyRateCents int64    `json:"nightly_rate_cents"`
	WeekendRateCents int64    `json:"weekend_rate_cents,omitempty"`
	CleaningFeeCents int64    `json:"cleaning_fee_cents"`
	ServiceFeeCents  int64    `json:"service_fee_cents"`
	Currency         string   `json:"currency"`
	MinStayNights    int      `json:"min_stay_nights"`
	GuestsLimit      int      `json:"guests_limit"`
	PhotoKeys        []string `json:"photo_keys,omitempty"`
}

func MapProperty(p *domainproperty.Property) Property {
	return Property{
		ID:               string(p.ID),
		Title:            p.Title,
		Description:      p.Description,
		City:             p.Address.City,
		Country:          p.Address.Country,
		NightlyRateCents: p.NightlyRate.Amount,
		WeekendRateCents: p.WeekendRate.Amount,
		CleaningFeeCents: p.CleaningFee.Amount,
		ServiceFeeCents:  p.ServiceFee.Amount,
		Currency:         p.NightlyRate.Currency,
		MinStayNights:    p.MinStayNights,
		GuestsLimit:      p.GuestsLimit,
		PhotoKeys:        p.PhotoKeys,
	}
}
