package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "staybook/internal/domain/availability"
	domainproperty "staybook/internal/domain/property"
	domainrange "staybook/internal/domain/shared/daterange"
)

// AvailabilityRepository persists per-day blocked dates and night holds. The
// night_holds collection carries a unique (property_id, date) index; inserting
// a hold for a night someone else owns fails with a duplicate-key error, which
// is how overlapping submissions lose.
type AvailabilityRepository struct {
	blocked *mongo.Collection
	holds   *mongo.Collection
}

func NewAvailabilityRepository(db *mongo.Database) *AvailabilityRepository {
	return &AvailabilityRepository{
		blocked: db.Collection("blocked_dates"),
		holds:   db.Collection("night_holds"),
	}
}

// EnsureIndexes creates the unique night-hold index. Call once at startup;
// the conflict guard depends on it.
func (r *AvailabilityRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.holds.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "property_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = r.blocked.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "event_id", Value: 1}},
	})
	return err
}

func (r *AvailabilityRepository) BlockedDates(ctx context.Context, id domainproperty.PropertyID) ([]domainavailability.BlockedDate, error) {
	cur, err := r.blocked.Find(ctx, bson.M{"property_id": string(id)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domainavailability.BlockedDate
	for cur.Next(ctx) {
		var doc blockedDateDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AvailabilityRepository) Materialize(ctx context.Context, rows []domainavailability.BlockedDate) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, newBlockedDateDocument(row))
	}
	_, err := r.blocked.InsertMany(ctx, docs)
	return err
}

func (r *AvailabilityRepository) RemoveByEvent(ctx context.Context, id domainproperty.PropertyID, eventID string) error {
	res, err := r.blocked.DeleteMany(ctx, bson.M{"property_id": string(id), "event_id": eventID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainavailability.ErrEventUnknown
	}
	return nil
}

// HoldNights inserts one hold per night of the range. A duplicate-key failure
// on any night means another active booking or host block owns it; the whole
// batch is rolled back by the surrounding transaction.
func (r *AvailabilityRepository) HoldNights(ctx context.Context, id domainproperty.PropertyID, dr domainrange.DateRange, ownerID string) error {
	days := dr.Days()
	docs := make([]interface{}, 0, len(days))
	for _, day := range days {
		docs = append(docs, nightHoldDocument{
			ID:         string(id) + ":" + day.Format("2006-01-02"),
			PropertyID: string(id),
			Date:       day.UnixMilli(),
			OwnerID:    ownerID,
		})
	}
	_, err := r.holds.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainavailability.ErrNightsHeld
		}
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			for _, we := range bulkErr.WriteErrors {
				if we.Code == 11000 {
					return domainavailability.ErrNightsHeld
				}
			}
		}
		return err
	}
	return nil
}

func (r *AvailabilityRepository) ReleaseHolds(ctx context.Context, ownerID string) error {
	_, err := r.holds.DeleteMany(ctx, bson.M{"owner_id": ownerID})
	return err
}

type blockedDateDocument struct {
	ID         string `bson:"_id"`
	PropertyID string `bson:"property_id"`
	Date       int64  `bson:"date"`
	Reason     string `bson:"reason"`
	EventID    string `bson:"event_id"`
	CreatedAt  int64  `bson:"created_at"`
}

func newBlockedDateDocument(b domainavailability.BlockedDate) blockedDateDocument {
	day := domainrange.Day(b.Date)
	return blockedDateDocument{
		ID:         string(b.PropertyID) + ":" + day.Format("2006-01-02") + ":" + b.EventID,
		PropertyID: string(b.PropertyID),
		Date:       day.UnixMilli(),
		Reason:     string(b.Reason),
		EventID:    b.EventID,
		CreatedAt:  b.CreatedAt.UnixMilli(),
	}
}

func (d blockedDateDocument) toDomain() domainavailability.BlockedDate {
	return domainavailability.BlockedDate{
		PropertyID: domainproperty.PropertyID(d.PropertyID),
		Date:       timestampToTime(d.Date),
		Reason:     domainavailability.BlockReason(d.Reason),
		EventID:    d.EventID,
		CreatedAt:  timestampToTime(d.CreatedAt),
	}
}

type nightHoldDocument struct {
	ID         string `bson:"_id"`
	PropertyID string `bson:"property_id"`
	Date       int64  `bson:"date"`
	OwnerID    string `bson:"owner_id"`
}

var _ domainavailability.Repository = (*AvailabilityRepository)(nil)
