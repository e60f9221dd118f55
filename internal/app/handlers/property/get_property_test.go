package property_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/handlers/property"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/storage/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	factory    memory.Factory
	properties *memory.PropertyRepository
	bookings   *memory.BookingRepository
	prices     *memory.CustomPriceRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		properties: memory.NewPropertyRepository(),
		bookings:   memory.NewBookingRepository(),
		prices:     memory.NewCustomPriceRepository(),
	}
	f.factory = memory.Factory{
		PropertyRepo:     f.properties,
		BookingRepo:      f.bookings,
		AvailabilityRepo: memory.NewAvailabilityRepository(),
		CustomPriceRepo:  f.prices,
	}

	p, err := domainproperty.New(domainproperty.CreateParams{
		ID:            "prop-1",
		Title:         "Seaside Cottage",
		Description:   "Two bedrooms, ocean view.",
		Address:       domainproperty.Address{City: "Porto", Country: "PT"},
		NightlyRate:   money.USD(10000),
		WeekendRate:   money.USD(15000),
		CleaningFee:   money.USD(5000),
		ServiceFee:    money.USD(2500),
		MinStayNights: 2,
		GuestsLimit:   4,
		CreatedAt:     date(2024, time.January, 1),
	})
	require.NoError(t, err)
	require.NoError(t, f.properties.Save(context.Background(), p))
	return f
}

func TestGetProperty_MapsAggregate(t *testing.T) {
	f := newFixture(t)
	h := &property.GetPropertyHandler{UoWFactory: f.factory}

	res, err := h.Handle(context.Background(), property.GetPropertyQuery{PropertyID: "prop-1"})
	require.NoError(t, err)

	assert.Equal(t, "Seaside Cottage", res.Title)
	assert.Equal(t, "Porto", res.City)
	assert.Equal(t, int64(10000), res.NightlyRateCents)
	assert.Equal(t, "USD", res.Currency)
	assert.Equal(t, 2, res.MinStayNights)
}

func TestGetProperty_Fail_NotFound(t *testing.T) {
	f := newFixture(t)
	h := &property.GetPropertyHandler{UoWFactory: f.factory}

	_, err := h.Handle(context.Background(), property.GetPropertyQuery{PropertyID: "prop-ghost"})
	assert.ErrorIs(t, err, domainproperty.ErrPropertyNotFound)
}

func TestListBookings_MapsStoredBookings(t *testing.T) {
	f := newFixture(t)
	dr, err := daterange.New(date(2024, time.July, 10), date(2024, time.July, 14))
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         "bk-1",
		PropertyID: "prop-1",
		Guest: domainbooking.GuestContact{
			FirstName: "Ana",
			LastName:  "Silva",
			Email:     "ana@example.com",
			Phone:     "+1555000111",
		},
		Range:            dr,
		Guests:           2,
		Price:            domainpricing.PriceBreakdown{Total: money.USD(57500)},
		ConfirmationCode: "BOK-TEST",
		CreatedAt:        date(2024, time.July, 1),
	})
	require.NoError(t, err)
	b.ClearEvents()
	require.NoError(t, f.bookings.Save(context.Background(), b))

	h := &property.ListBookingsHandler{UoWFactory: f.factory}
	res, err := h.Handle(context.Background(), property.ListBookingsQuery{PropertyID: "prop-1"})
	require.NoError(t, err)

	require.Len(t, res, 1)
	assert.Equal(t, "bk-1", res[0].ID)
	assert.Equal(t, "Ana Silva", res[0].GuestName)
	assert.Equal(t, "2024-07-10", res[0].CheckIn)
	assert.Equal(t, string(domainbooking.StatePending), res[0].Status)
	assert.Equal(t, int64(57500), res[0].TotalCents)
}

func TestQuote_UsesOverridesAndWeekendRates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.prices.Save(context.Background(), domainpricing.CustomPrice{
		PropertyID: "prop-1",
		Date:       date(2024, time.July, 12),
		Rate:       money.USD(22000),
	}))

	h := &property.QuoteHandler{UoWFactory: f.factory}
	res, err := h.Handle(context.Background(), property.QuoteQuery{
		PropertyID: "prop-1",
		CheckIn:    date(2024, time.July, 10),
		CheckOut:   date(2024, time.July, 14),
	})
	require.NoError(t, err)

	// Wed + Thu at base, Fri overridden, Sat at the weekend rate.
	require.Len(t, res.Nights, 4)
	assert.Equal(t, int64(10000), res.Nights[0].RateCents)
	assert.Equal(t, int64(22000), res.Nights[2].RateCents)
	assert.Equal(t, int64(15000), res.Nights[3].RateCents)
	assert.Equal(t, int64(57000), res.SubtotalCents)
	assert.Equal(t, int64(64500), res.TotalCents)
	assert.Equal(t, "USD", res.Currency)
}

func TestQuote_Fail_InvalidRange(t *testing.T) {
	f := newFixture(t)
	h := &property.QuoteHandler{UoWFactory: f.factory}

	_, err := h.Handle(context.Background(), property.QuoteQuery{
		PropertyID: "prop-1",
		CheckIn:    date(2024, time.July, 14),
		CheckOut:   date(2024, time.July, 10),
	})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

type stubUploader struct {
	url  string
	keys []string
}

func (s *stubUploader) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	s.keys = append(s.keys, key)
	return s.url, nil
}

func TestAddPhoto_AttachesUploadedURL(t *testing.T) {
	f := newFixture(t)
	up := &stubUploader{url: "https://cdn.example/properties/prop-1/photo.jpg"}
	h := &property.AddPhotoHandler{Uploader: up, Now: func() time.Time { return date(2024, time.July, 1) }}

	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	ctx := uow.ContextWithUnitOfWork(context.Background(), unit)

	res, err := h.Handle(ctx, property.AddPhotoCommand{
		PropertyID:  "prop-1",
		ObjectKey:   "properties/prop-1/photo.jpg",
		ContentType: "image/jpeg",
		Reader:      strings.NewReader("jpeg-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, up.url, res.PhotoURL)
	require.Len(t, res.PhotoKeys, 1)

	stored, err := f.properties.ByID(ctx, "prop-1")
	require.NoError(t, err)
	assert.Equal(t, []string{up.url}, stored.PhotoKeys)
}

func TestAddPhoto_Fail_WithoutUnitOfWork(t *testing.T) {
	h := &property.AddPhotoHandler{Uploader: &stubUploader{url: "https://cdn.example/x"}}

	_, err := h.Handle(context.Background(), property.AddPhotoCommand{
		PropertyID:  "prop-1",
		ObjectKey:   "properties/prop-1/photo.jpg",
		ContentType: "image/jpeg",
		Reader:      strings.NewReader("jpeg-bytes"),
	})
	assert.ErrorIs(t, err, uow.ErrUnitOfWorkMissing)
}
