// Package mongostore implements store.Backend on MongoDB collections.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

const (
	colServices   = "services"
	colBookings   = "bookings"
	colSlotClaims = "slotClaims"
	colUsers      = "users"
	colDoctors    = "doctors"

	releaseTimeout = 5 * time.Second
)

type Store struct {
	db  *mongo.Database
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{db: db, now: time.Now}
}

// Connect dials uri and returns a store bound to database name.
func Connect(ctx context.Context, uri, name string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return New(client.Database(name)), nil
}

var _ store.Backend = (*Store)(nil)

// EnsureIndexes creates the unique keys the booking ledger relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	specs := map[string][]mongo.IndexModel{
		colServices: {{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique}},
		colBookings: {
			{Keys: bson.D{{Key: "treatment", Value: 1}, {Key: "date", Value: 1}, {Key: "patient", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "date", Value: 1}}},
		},
		colSlotClaims: {{Keys: bson.D{{Key: "treatment", Value: 1}, {Key: "date", Value: 1}, {Key: "slot", Value: 1}}, Options: unique}},
		colUsers:      {{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		colDoctors:    {{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
	}
	for col, models := range specs {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes on %s: %w", col, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.db.Client().Disconnect(ctx)
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListServices(ctx context.Context) ([]model.Service, error) {
	return findAll[model.Service](ctx, s.db.Collection(colServices), bson.D{})
}

func (s *Store) ServiceNames(ctx context.Context) ([]string, error) {
	svcs, err := findAll[model.Service](ctx, s.db.Collection(colServices), bson.D{},
		options.Find().SetProjection(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(svcs))
	for i, svc := range svcs {
		names[i] = svc.Name
	}
	return names, nil
}

func (s *Store) UpsertService(ctx context.Context, svc *model.Service) error {
	_, err := s.db.Collection(colServices).UpdateOne(ctx,
		bson.D{{Key: "name", Value: svc.Name}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "slots", Value: svc.Slots}}}},
		options.Update().SetUpsert(true),
	)
	return err
}

func bookingQuery(f store.BookingFilter) bson.D {
	q := bson.D{}
	for _, kv := range []struct{ key, val string }{
		{"treatment", f.Treatment}, {"date", f.Date}, {"patient", f.Patient}, {"slot", f.Slot},
	} {
		if kv.val != "" {
			q = append(q, bson.E{Key: kv.key, Value: kv.val})
		}
	}
	return q
}

func (s *Store) BookingsByDate(ctx context.Context, date string) ([]model.Booking, error) {
	return findAll[model.Booking](ctx, s.db.Collection(colBookings), bson.D{{Key: "date", Value: date}})
}

func (s *Store) BookingsByPatient(ctx context.Context, patient string) ([]model.Booking, error) {
	return findAll[model.Booking](ctx, s.db.Collection(colBookings), bson.D{{Key: "patient", Value: patient}})
}

func (s *Store) FindBooking(ctx context.Context, f store.BookingFilter) (*model.Booking, error) {
	b := &model.Booking{}
	err := s.db.Collection(colBookings).FindOne(ctx, bookingQuery(f)).Decode(b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Without a replica set there are no multi-document transactions, so a
// claimed slot is released again if the booking insert fails.
func (s *Store) InsertBooking(ctx context.Context, b *model.Booking, claimSlot bool) error {
	claims := s.db.Collection(colSlotClaims)
	if claimSlot {
		_, err := claims.InsertOne(ctx, bson.D{
			{Key: "treatment", Value: b.Treatment},
			{Key: "date", Value: b.Date},
			{Key: "slot", Value: b.Slot},
			{Key: "bookingId", Value: b.ID},
		})
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		if err != nil {
			return err
		}
	}

	_, err := s.db.Collection(colBookings).InsertOne(ctx, b)
	if err == nil {
		return nil
	}
	if claimSlot {
		if rerr := s.releaseClaim(ctx, b.ID); rerr != nil {
			// a claim with no booking blocks the slot until removed by hand
			return fmt.Errorf("release slot claim %s/%s/%s after insert error (%v): %w",
				b.Treatment, b.Date, b.Slot, err, rerr)
		}
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

// releaseClaim runs even when the request context is already cancelled.
func (s *Store) releaseClaim(ctx context.Context, bookingID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	_, err := s.db.Collection(colSlotClaims).DeleteOne(ctx, bson.D{{Key: "bookingId", Value: bookingID}})
	return err
}

func (s *Store) UpsertUser(ctx context.Context, u *model.User) (bool, error) {
	now := s.now()
	set := bson.D{{Key: "updatedAt", Value: now}}
	if u.Name != "" {
		set = append(set, bson.E{Key: "name", Value: u.Name})
	}
	if u.Photo != "" {
		set = append(set, bson.E{Key: "photo", Value: u.Photo})
	}
	res, err := s.db.Collection(colUsers).UpdateOne(ctx,
		bson.D{{Key: "email", Value: u.Email}},
		bson.D{
			{Key: "$set", Value: set},
			{Key: "$setOnInsert", Value: bson.D{{Key: "createdAt", Value: now}}},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := s.db.Collection(colUsers).FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	return findAll[model.User](ctx, s.db.Collection(colUsers), bson.D{})
}

func (s *Store) SetRole(ctx context.Context, email, role string) (store.UpdateResult, error) {
	res, err := s.db.Collection(colUsers).UpdateOne(ctx,
		bson.D{{Key: "email", Value: email}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "role", Value: role}}}},
	)
	if err != nil {
		return store.UpdateResult{}, err
	}
	return store.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (s *Store) CreateDoctor(ctx context.Context, d *model.Doctor) error {
	_, err := s.db.Collection(colDoctors).InsertOne(ctx, d)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

func (s *Store) ListDoctors(ctx context.Context) ([]model.Doctor, error) {
	return findAll[model.Doctor](ctx, s.db.Collection(colDoctors), bson.D{})
}

func (s *Store) DeleteDoctor(ctx context.Context, email string) (int64, error) {
	res, err := s.db.Collection(colDoctors).DeleteOne(ctx, bson.D{{Key: "email", Value: email}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
