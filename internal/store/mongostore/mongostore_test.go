package mongostore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

func dupKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"})
}

func TestServices(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("list keeps stored order", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "clinic.services", mtest.FirstBatch,
			bson.D{{Key: "name", Value: "Cleaning"}, {Key: "slots", Value: bson.A{"9am", "10am"}}},
			bson.D{{Key: "name", Value: "Whitening"}, {Key: "slots", Value: bson.A{"11am"}}},
		))
		got, err := New(mt.DB).ListServices(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []model.Service{
			{Name: "Cleaning", Slots: []string{"9am", "10am"}},
			{Name: "Whitening", Slots: []string{"11am"}},
		}, got)
	})

	mt.Run("names", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "clinic.services", mtest.FirstBatch,
			bson.D{{Key: "name", Value: "Cleaning"}},
		))
		got, err := New(mt.DB).ServiceNames(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []string{"Cleaning"}, got)
	})
}

func TestFindBooking(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("hit", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "clinic.bookings", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "b1"},
			{Key: "patient", Value: "a@x.com"},
			{Key: "treatment", Value: "Cleaning"},
			{Key: "date", Value: "2024-01-01"},
			{Key: "slot", Value: "9am"},
		}))
		got, err := New(mt.DB).FindBooking(context.Background(), store.BookingFilter{Treatment: "Cleaning", Date: "2024-01-01", Patient: "a@x.com"})
		require.NoError(mt, err)
		assert.Equal(mt, "b1", got.ID)
		assert.Equal(mt, "9am", got.Slot)
	})

	mt.Run("miss", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "clinic.bookings", mtest.FirstBatch))
		_, err := New(mt.DB).FindBooking(context.Background(), store.BookingFilter{Treatment: "Cleaning"})
		assert.ErrorIs(mt, err, store.ErrNotFound)
	})
}

func TestBookingQuerySkipsEmptyFields(t *testing.T) {
	q := bookingQuery(store.BookingFilter{Treatment: "Cleaning", Slot: "9am"})
	assert.Equal(t, bson.D{{Key: "treatment", Value: "Cleaning"}, {Key: "slot", Value: "9am"}}, q)
}

func TestInsertBooking(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	b := &model.Booking{ID: "b1", Patient: "a@x.com", Treatment: "Cleaning", Date: "2024-01-01", Slot: "9am"}

	mt.Run("plain insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, New(mt.DB).InsertBooking(context.Background(), b, false))
	})

	mt.Run("claim then insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())
		require.NoError(mt, New(mt.DB).InsertBooking(context.Background(), b, true))
	})

	mt.Run("duplicate booking", func(mt *mtest.T) {
		mt.AddMockResponses(dupKey())
		assert.ErrorIs(mt, New(mt.DB).InsertBooking(context.Background(), b, false), store.ErrDuplicate)
	})

	mt.Run("slot already claimed", func(mt *mtest.T) {
		mt.AddMockResponses(dupKey())
		assert.ErrorIs(mt, New(mt.DB).InsertBooking(context.Background(), b, true), store.ErrDuplicate)
	})

	mt.Run("claim released when booking insert fails", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			dupKey(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)
		assert.ErrorIs(mt, New(mt.DB).InsertBooking(context.Background(), b, true), store.ErrDuplicate)

		started := mt.GetAllStartedEvents()
		require.Len(mt, started, 3)
		assert.Equal(mt, "delete", started[2].CommandName)
	})

	mt.Run("failed release is reported", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			dupKey(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "release refused"}),
		)
		err := New(mt.DB).InsertBooking(context.Background(), b, true)
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, store.ErrDuplicate, "a stuck claim must not read as an ordinary conflict")
		assert.Contains(mt, err.Error(), "release slot claim")
		assert.Contains(mt, err.Error(), "release refused")
	})

	mt.Run("release survives a cancelled request", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(mt, New(mt.DB).releaseClaim(ctx, "b1"))

		started := mt.GetAllStartedEvents()
		require.Len(mt, started, 1)
		assert.Equal(mt, "delete", started[0].CommandName)
	})
}

func TestUsers(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upsert created", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "x"}}}},
		))
		created, err := New(mt.DB).UpsertUser(context.Background(), &model.User{Email: "a@x.com", Name: "Ann"})
		require.NoError(mt, err)
		assert.True(mt, created)
	})

	mt.Run("upsert merged", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		created, err := New(mt.DB).UpsertUser(context.Background(), &model.User{Email: "a@x.com"})
		require.NoError(mt, err)
		assert.False(mt, created)
	})

	mt.Run("unknown user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "clinic.users", mtest.FirstBatch))
		_, err := New(mt.DB).UserByEmail(context.Background(), "ghost@x.com")
		assert.ErrorIs(mt, err, store.ErrNotFound)
	})

	mt.Run("admin record", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "clinic.users", mtest.FirstBatch, bson.D{
			{Key: "email", Value: "boss@x.com"},
			{Key: "role", Value: "admin"},
		}))
		u, err := New(mt.DB).UserByEmail(context.Background(), "boss@x.com")
		require.NoError(mt, err)
		assert.True(mt, u.IsAdmin())
	})

	mt.Run("set role counts", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)
		st := New(mt.DB)
		res, err := st.SetRole(context.Background(), "a@x.com", model.RoleAdmin)
		require.NoError(mt, err)
		assert.Equal(mt, store.UpdateResult{Matched: 1, Modified: 1}, res)

		res, err = st.SetRole(context.Background(), "ghost@x.com", model.RoleAdmin)
		require.NoError(mt, err)
		assert.Equal(mt, store.UpdateResult{}, res)
	})
}

func TestDoctors(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	d := &model.Doctor{Email: "doc@x.com", Name: "Dr. Who"}

	mt.Run("duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), dupKey())
		st := New(mt.DB)
		require.NoError(mt, st.CreateDoctor(context.Background(), d))
		assert.ErrorIs(mt, st.CreateDoctor(context.Background(), d), store.ErrDuplicate)
	})

	mt.Run("delete count", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		n, err := New(mt.DB).DeleteDoctor(context.Background(), "doc@x.com")
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), n)
	})
}
