package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

func booking(id, patient, slot string) *model.Booking {
	return &model.Booking{ID: id, Patient: patient, Treatment: "Cleaning", Date: "2024-01-01", Slot: slot}
}

func TestServicesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.UpsertService(ctx, &model.Service{Name: "Whitening", Slots: []string{"1pm"}}))
	require.NoError(t, s.UpsertService(ctx, &model.Service{Name: "Cleaning", Slots: []string{"9am"}}))
	require.NoError(t, s.UpsertService(ctx, &model.Service{Name: "Whitening", Slots: []string{"2pm"}}))

	names, err := s.ServiceNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Whitening", "Cleaning"}, names)

	all, err := s.ListServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2pm"}, all[0].Slots)

	// callers get copies
	all[0].Slots[0] = "changed"
	again, _ := s.ListServices(ctx)
	assert.Equal(t, "2pm", again[0].Slots[0])
}

func TestInsertBookingKeys(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InsertBooking(ctx, booking("b1", "a@x.com", "9am"), true))

	assert.ErrorIs(t, s.InsertBooking(ctx, booking("b2", "a@x.com", "10am"), false), store.ErrDuplicate, "same patient, same day")
	assert.ErrorIs(t, s.InsertBooking(ctx, booking("b3", "b@x.com", "9am"), true), store.ErrDuplicate, "slot claimed")
	assert.NoError(t, s.InsertBooking(ctx, booking("b4", "b@x.com", "9am"), false), "unclaimed insert ignores slot")
}

func TestBookingLookups(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InsertBooking(ctx, booking("b1", "a@x.com", "9am"), false))
	other := booking("b2", "a@x.com", "9am")
	other.Date = "2024-01-02"
	require.NoError(t, s.InsertBooking(ctx, other, false))

	byDate, err := s.BookingsByDate(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, byDate, 1)

	none, err := s.BookingsByDate(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none, "empty date is not a wildcard")

	byPatient, err := s.BookingsByPatient(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, byPatient, 2)

	got, err := s.FindBooking(ctx, store.BookingFilter{Treatment: "Cleaning", Date: "2024-01-02", Patient: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "b2", got.ID)

	_, err = s.FindBooking(ctx, store.BookingFilter{Treatment: "Cleaning", Date: "2024-01-03"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.UpsertUser(ctx, &model.User{Email: "a@x.com", Name: "Ann", Photo: "a.png"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.UpsertUser(ctx, &model.User{Email: "a@x.com", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, created)

	u, err := s.UserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name, "empty fields keep stored values")
	assert.Equal(t, "a.png", u.Photo)
	assert.False(t, u.IsAdmin(), "upsert never writes the role")

	_, err = s.UserByEmail(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	res, err := s.SetRole(ctx, "ghost@x.com", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, store.UpdateResult{}, res)
	_, err = s.UserByEmail(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound, "no upsert")

	res, err = s.SetRole(ctx, "a@x.com", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, store.UpdateResult{Matched: 1, Modified: 1}, res)

	res, err = s.SetRole(ctx, "a@x.com", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, store.UpdateResult{Matched: 1}, res)

	_, _ = s.UpsertUser(ctx, &model.User{Email: "b@x.com"})
	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a@x.com", users[0].Email)
}

func TestDoctors(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := &model.Doctor{Email: "doc@x.com", Name: "Dr. Who"}

	require.NoError(t, s.CreateDoctor(ctx, d))
	assert.ErrorIs(t, s.CreateDoctor(ctx, d), store.ErrDuplicate)

	list, err := s.ListDoctors(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	n, err := s.DeleteDoctor(ctx, "doc@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.DeleteDoctor(ctx, "doc@x.com")
	require.NoError(t, err)
	assert.Zero(t, n)
}
