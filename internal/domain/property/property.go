package property

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/shared/money"
)

var (
	ErrPropertyNotFound = errors.New("property: not found")
	ErrInvalidRate      = errors.New("property: nightly rate must be positive")
	ErrInvalidMinStay   = errors.New("property: minimum stay must be at least one night")
)

type PropertyID string

// Address is display-only; availability never reads it.
type Address struct {
	Line1   string
	City    string
	Region  string
	Country string
}

// Property is the bookable unit. Rates are read by pricing, MinStayNights by
// booking validation; the availability oracle only ever sees the ID.
type Property struct {
	ID            PropertyID
	HostID        string
	Title         string
	Description   string
	Address       Address
	NightlyRate   money.Money
	WeekendRate   money.Money // zero value means no weekend pricing
	CleaningFee   money.Money
	ServiceFee    money.Money
	MinStayNights int
	GuestsLimit   int
	PhotoKeys     []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Repository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
	Save(ctx context.Context, p *Property) error
}

type CreateParams struct {
	ID            PropertyID
	HostID        string
	Title         string
	Description   string
	Address       Address
	NightlyRate   money.Money
	WeekendRate   money.Money
	CleaningFee   money.Money
	ServiceFee    money.Money
	MinStayNights int
	GuestsLimit   int
	CreatedAt     time.Time
}

func New(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("property: id required")
	}
	if params.NightlyRate.Amount <= 0 {
		return nil, ErrInvalidRate
	}
	if params.MinStayNights < 1 {
		return nil, ErrInvalidMinStay
	}
	if params.GuestsLimit < 1 {
		params.GuestsLimit = 1
	}
	now := params.CreatedAt.UTC()
	return &Property{
		ID:            params.ID,
		HostID:        params.HostID,
		Title:         params.Title,
		Description:   params.Description,
		Address:       params.Address,
		NightlyRate:   params.NightlyRate,
		WeekendRate:   params.WeekendRate,
		CleaningFee:   params.CleaningFee,
		ServiceFee:    params.ServiceFee,
		MinStayNights: params.MinStayNights,
		GuestsLimit:   params.GuestsLimit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// HasWeekendRate reports whether the host configured separate Friday/Saturday
// pricing.
func (p *Property) HasWeekendRate() bool {
	return p.WeekendRate.Amount > 0
}

// AttachPhoto records an uploaded photo object key.
func (p *Property) AttachPhoto(key string, now time.Time) {
	p.PhotoKeys = append(p.PhotoKeys, key)
	p.UpdatedAt = now.UTC()
}
