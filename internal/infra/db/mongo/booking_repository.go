package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	domainrange "staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("agg_booking")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) ByPaymentSession(ctx context.Context, sessionID string) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"payment_session": sessionID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ForProperty(ctx context.Context, id domainproperty.PropertyID) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, bson.M{"property_id": string(id)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeBookings(ctx, cur)
}

func (r *BookingRepository) PendingOlderThan(ctx context.Context, cutoff time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"state":      string(domainbooking.StatePending),
		"created_at": bson.M{"$lt": cutoff.UTC().UnixMilli()},
	}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeBookings(ctx, cur)
}

func decodeBookings(ctx context.Context, cur *mongo.Cursor) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type bookingDocument struct {
	ID               string           `bson:"_id"`
	PropertyID       string           `bson:"property_id"`
	Guest            guestDocument    `bson:"guest"`
	Range            rangeDocument    `bson:"range"`
	Guests           int              `bson:"guests"`
	SpecialRequests  string           `bson:"special_requests,omitempty"`
	Price            priceDocument    `bson:"price"`
	State            string           `bson:"state"`
	ConfirmationCode string           `bson:"confirmation_code"`
	PaymentSession   string           `bson:"payment_session,omitempty"`
	BlockEventID     string           `bson:"block_event_id,omitempty"`
	CreatedAt        int64            `bson:"created_at"`
	UpdatedAt        int64            `bson:"updated_at"`
	Version          int64            `bson:"version"`
}

type guestDocument struct {
	FirstName string `bson:"first_name"`
	LastName  string `bson:"last_name"`
	Email     string `bson:"email"`
	Phone     string `bson:"phone"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

type nightLineDocument struct {
	Date      int64 `bson:"date"`
	RateCents int64 `bson:"rate_cents"`
}

type priceDocument struct {
	Nights        []nightLineDocument `bson:"nights"`
	SubtotalCents int64               `bson:"subtotal_cents"`
	CleaningCents int64               `bson:"cleaning_cents"`
	ServiceCents  int64               `bson:"service_cents"`
	TotalCents    int64               `bson:"total_cents"`
	Currency      string              `bson:"currency"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:         string(b.ID),
		PropertyID: string(b.PropertyID),
		Guest: guestDocument{
			FirstName: b.Guest.FirstName,
			LastName:  b.Guest.LastName,
			Email:     b.Guest.Email,
			Phone:     b.Guest.Phone,
		},
		Range:            rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Guests:           b.Guests,
		SpecialRequests:  b.SpecialRequests,
		Price:            newPriceDocument(b.Price),
		State:            string(b.State),
		ConfirmationCode: b.ConfirmationCode,
		PaymentSession:   b.PaymentSessionID,
		BlockEventID:     b.BlockEventID,
		CreatedAt:        b.CreatedAt.UnixMilli(),
		UpdatedAt:        b.UpdatedAt.UnixMilli(),
		Version:          b.Version,
	}
}

func newPriceDocument(p domainpricing.PriceBreakdown) priceDocument {
	nights := make([]nightLineDocument, 0, len(p.Nights))
	for _, n := range p.Nights {
		nights = append(nights, nightLineDocument{Date: n.Date.UnixMilli(), RateCents: n.Rate.Amount})
	}
	return priceDocument{
		Nights:        nights,
		SubtotalCents: p.Subtotal.Amount,
		CleaningCents: p.CleaningFee.Amount,
		ServiceCents:  p.ServiceFee.Amount,
		TotalCents:    p.Total.Amount,
		Currency:      p.Total.Currency,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:         domainbooking.BookingID(d.ID),
		PropertyID: domainproperty.PropertyID(d.PropertyID),
		Guest: domainbooking.GuestContact{
			FirstName: d.Guest.FirstName,
			LastName:  d.Guest.LastName,
			Email:     d.Guest.Email,
			Phone:     d.Guest.Phone,
		},
		Range:            domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)},
		Guests:           d.Guests,
		SpecialRequests:  d.SpecialRequests,
		Price:            d.Price.toBreakdown(),
		State:            domainbooking.BookingState(d.State),
		ConfirmationCode: d.ConfirmationCode,
		PaymentSessionID: d.PaymentSession,
		BlockEventID:     d.BlockEventID,
		CreatedAt:        timestampToTime(d.CreatedAt),
		UpdatedAt:        timestampToTime(d.UpdatedAt),
		Version:          d.Version,
	}
}

func (d priceDocument) toBreakdown() domainpricing.PriceBreakdown {
	nights := make([]domainpricing.NightLine, 0, len(d.Nights))
	for _, n := range d.Nights {
		nights = append(nights, domainpricing.NightLine{
			Date: timestampToTime(n.Date),
			Rate: money.Money{Amount: n.RateCents, Currency: d.Currency},
		})
	}
	return domainpricing.PriceBreakdown{
		Nights:      nights,
		Subtotal:    money.Money{Amount: d.SubtotalCents, Currency: d.Currency},
		CleaningFee: money.Money{Amount: d.CleaningCents, Currency: d.Currency},
		ServiceFee:  money.Money{Amount: d.ServiceCents, Currency: d.Currency},
		Total:       money.Money{Amount: d.TotalCents, Currency: d.Currency},
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
