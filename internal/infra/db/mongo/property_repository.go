package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	domainrange "staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("agg_property")}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainproperty.ErrPropertyNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	doc := newPropertyDocument(p)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type propertyDocument struct {
	ID               string   `bson:"_id"`
	HostID           string   `bson:"host_id"`
	Title            string   `bson:"title"`
	Description      string   `bson:"description"`
	AddressLine1     string   `bson:"address_line1"`
	City             string   `bson:"city"`
	Region           string   `bson:"region"`
	Country          string   `bson:"country"`
	NightlyRateCents int64    `bson:"nightly_rate_cents"`
	WeekendRateCents int64    `bson:"weekend_rate_cents"`
	CleaningFeeCents int64    `bson:"cleaning_fee_cents"`
	ServiceFeeCents  int64    `bson:"service_fee_cents"`
	Currency         string   `bson:"currency"`
	MinStayNights    int      `bson:"min_stay_nights"`
	GuestsLimit      int      `bson:"guests_limit"`
	PhotoKeys        []string `bson:"photo_keys,omitempty"`
	CreatedAt        int64    `bson:"created_at"`
	UpdatedAt        int64    `bson:"updated_at"`
}

func newPropertyDocument(p *domainproperty.Property) propertyDocument {
	return propertyDocument{
		ID:               string(p.ID),
		HostID:           p.HostID,
		Title:            p.Title,
		Description:      p.Description,
		AddressLine1:     p.Address.Line1,
		City:             p.Address.City,
		Region:           p.Address.Region,
		Country:          p.Address.Country,
		NightlyRateCents: p.NightlyRate.Amount,
		WeekendRateCents: p.WeekendRate.Amount,
		CleaningFeeCents: p.CleaningFee.Amount,
		ServiceFeeCents:  p.ServiceFee.Amount,
		Currency:         p.NightlyRate.Currency,
		MinStayNights:    p.MinStayNights,
		GuestsLimit:      p.GuestsLimit,
		PhotoKeys:        p.PhotoKeys,
		CreatedAt:        p.CreatedAt.UnixMilli(),
		UpdatedAt:        p.UpdatedAt.UnixMilli(),
	}
}

func (d propertyDocument) toAggregate() *domainproperty.Property {
	return &domainproperty.Property{
		ID:          domainproperty.PropertyID(d.ID),
		HostID:      d.HostID,
		Title:       d.Title,
		Description: d.Description,
		Address: domainproperty.Address{
			Line1:   d.AddressLine1,
			City:    d.City,
			Region:  d.Region,
			Country: d.Country,
		},
		NightlyRate:   money.Money{Amount: d.NightlyRateCents, Currency: d.Currency},
		WeekendRate:   money.Money{Amount: d.WeekendRateCents, Currency: d.Currency},
		CleaningFee:   money.Money{Amount: d.CleaningFeeCents, Currency: d.Currency},
		ServiceFee:    money.Money{Amount: d.ServiceFeeCents, Currency: d.Currency},
		MinStayNights: d.MinStayNights,
		GuestsLimit:   d.GuestsLimit,
		PhotoKeys:     d.PhotoKeys,
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
	}
}

// CustomPriceRepository stores per-date nightly rate overrides, one document
// per (property, date) pair.
type CustomPriceRepository struct {
	col *mongo.Collection
}

func NewCustomPriceRepository(db *mongo.Database) *CustomPriceRepository {
	return &CustomPriceRepository{col: db.Collection("custom_prices")}
}

func (r *CustomPriceRepository) ForProperty(ctx context.Context, id domainproperty.PropertyID) ([]domainpricing.CustomPrice, error) {
	cur, err := r.col.Find(ctx, bson.M{"property_id": string(id)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domainpricing.CustomPrice
	for cur.Next(ctx) {
		var doc customPriceDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, domainpricing.CustomPrice{
			PropertyID: domainproperty.PropertyID(doc.PropertyID),
			Date:       timestampToTime(doc.Date),
			Rate:       money.Money{Amount: doc.RateCents, Currency: doc.Currency},
		})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CustomPriceRepository) Save(ctx context.Context, cp domainpricing.CustomPrice) error {
	day := domainrange.Day(cp.Date)
	doc := customPriceDocument{
		ID:         string(cp.PropertyID) + ":" + day.Format("2006-01-02"),
		PropertyID: string(cp.PropertyID),
		Date:       day.UnixMilli(),
		RateCents:  cp.Rate.Amount,
		Currency:   cp.Rate.Currency,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type customPriceDocument struct {
	ID         string `bson:"_id"`
	PropertyID string `bson:"property_id"`
	Date       int64  `bson:"date"`
	RateCents  int64  `bson:"rate_cents"`
	Currency   string `bson:"currency"`
}

var _ domainproperty.Repository = (*PropertyRepository)(nil)
var _ domainpricing.CustomPriceRepository = (*CustomPriceRepository)(nil)
