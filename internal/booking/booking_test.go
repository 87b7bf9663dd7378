package booking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
	"clinic-booking-api/internal/store/memstore"
)

func seed(t *testing.T, st *memstore.Store, services ...model.Service) {
	t.Helper()
	for i := range services {
		require.NoError(t, st.UpsertService(context.Background(), &services[i]))
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Booking
}

func (r *recordingNotifier) BookingConfirmed(b model.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, b)
}

func newLedger(st Records, strict bool) (*Ledger, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewLedger(st, n, LedgerOptions{StrictSlots: strict}, zerolog.Nop(), nil), n
}

func TestListAvailableScenario(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st, model.Service{Name: "Cleaning", Slots: []string{"9am", "10am"}})
	require.NoError(t, st.InsertBooking(ctx, &model.Booking{
		ID: "b1", Treatment: "Cleaning", Date: "2024-01-01", Slot: "9am", Patient: "a@x.com",
	}, false))

	got, err := NewAvailability(st, st).ListAvailable(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, []model.Service{{Name: "Cleaning", Slots: []string{"10am"}}}, got)

	// catalog untouched
	all, err := st.ListServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"9am", "10am"}, all[0].Slots)
}

func TestListAvailableOtherDateIsFull(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st, model.Service{Name: "Cleaning", Slots: []string{"9am", "10am"}})
	require.NoError(t, st.InsertBooking(ctx, &model.Booking{
		ID: "b1", Treatment: "Cleaning", Date: "2024-01-01", Slot: "9am", Patient: "a@x.com",
	}, false))

	got, err := NewAvailability(st, st).ListAvailable(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"9am", "10am"}, got[0].Slots)
}

func TestSubtract(t *testing.T) {
	services := []model.Service{
		{Name: "Cleaning", Slots: []string{"8am", "9am", "10am", "11am"}},
		{Name: "Whitening", Slots: []string{"9am"}},
		{Name: "Braces", Slots: []string{"1pm", "2pm"}},
	}
	booked := []model.Booking{
		{Treatment: "Cleaning", Slot: "10am"},
		{Treatment: "Cleaning", Slot: "8am"},
		{Treatment: "Whitening", Slot: "9am"},
		{Treatment: "Unknown", Slot: "1pm"},
	}

	got := Subtract(services, booked)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"9am", "11am"}, got[0].Slots, "template order kept")
	assert.NotNil(t, got[1].Slots)
	assert.Empty(t, got[1].Slots, "fully booked service stays listed")
	assert.Equal(t, []string{"1pm", "2pm"}, got[2].Slots, "other treatments do not leak")
	assert.Len(t, services[0].Slots, 4, "input not modified")
}

func TestSubtractNoBookings(t *testing.T) {
	services := []model.Service{{Name: "Cleaning", Slots: []string{"9am", "10am"}}}
	assert.Equal(t, services, Subtract(services, nil))
}

type failingCatalog struct{}

func (failingCatalog) ListServices(context.Context) ([]model.Service, error) {
	return nil, errors.New("boom")
}
func (failingCatalog) ServiceNames(context.Context) ([]string, error) { return nil, nil }

func TestListAvailableStoreError(t *testing.T) {
	_, err := NewAvailability(failingCatalog{}, memstore.New()).ListAvailable(context.Background(), "2024-01-01")
	assert.Error(t, err)
}

func TestCreateBookingSuccess(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	l, n := newLedger(st, false)

	res, err := l.Create(ctx, model.Booking{
		Patient: "a@x.com", PatientName: "Ann", Treatment: "Cleaning", Date: "2024-01-01", Slot: "9am",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.Booking)
	assert.NotEmpty(t, res.Booking.ID)
	assert.False(t, res.Booking.CreatedAt.IsZero())
	assert.Nil(t, res.Exist)

	require.Len(t, n.sent, 1)
	assert.Equal(t, res.Booking.ID, n.sent[0].ID)
}

func TestCreateBookingSamePatientSameDayConflicts(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	l, n := newLedger(st, false)

	first, err := l.Create(ctx, model.Booking{
		Patient: "a@x.com", Treatment: "Cleaning", Date: "2024-01-01", Slot: "9am",
	})
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := l.Create(ctx, model.Booking{
		Patient: "a@x.com", Treatment: "Cleaning", Date: "2024-01-01", Slot: "10am",
	})
	require.NoError(t, err)
	assert.False(t, second.Success)
	require.NotNil(t, second.Exist)
	assert.Equal(t, first.Booking.ID, second.Exist.ID)
	assert.Equal(t, "9am", second.Exist.Slot)

	all, err := st.BookingsByPatient(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Len(t, n.sent, 1, "conflict sends nothing")
}

func TestCreateBookingSlotModes(t *testing.T) {
	ctx := context.Background()
	req := func(patient string) model.Booking {
		return model.Booking{Patient: patient, Treatment: "Cleaning", Date: "2024-01-01", Slot: "9am"}
	}

	t.Run("compatible mode lets two patients share a slot", func(t *testing.T) {
		l, _ := newLedger(memstore.New(), false)
		_, err := l.Create(ctx, req("a@x.com"))
		require.NoError(t, err)
		res, err := l.Create(ctx, req("b@x.com"))
		require.NoError(t, err)
		assert.True(t, res.Success)
	})

	t.Run("strict mode reports the slot holder", func(t *testing.T) {
		l, _ := newLedger(memstore.New(), true)
		first, err := l.Create(ctx, req("a@x.com"))
		require.NoError(t, err)
		res, err := l.Create(ctx, req("b@x.com"))
		require.NoError(t, err)
		assert.False(t, res.Success)
		require.NotNil(t, res.Exist)
		assert.Equal(t, first.Booking.ID, res.Exist.ID)
	})

	t.Run("other patients, other day", func(t *testing.T) {
		l, _ := newLedger(memstore.New(), true)
		_, err := l.Create(ctx, req("a@x.com"))
		require.NoError(t, err)
		other := req("b@x.com")
		other.Date = "2024-01-02"
		res, err := l.Create(ctx, other)
		require.NoError(t, err)
		assert.True(t, res.Success)
	})
}

func TestCreateBookingValidation(t *testing.T) {
	l, _ := newLedger(memstore.New(), false)
	tests := []struct {
		name string
		b    model.Booking
	}{
		{"no patient", model.Booking{Treatment: "C", Date: "d", Slot: "s"}},
		{"blank patient", model.Booking{Patient: "  ", Treatment: "C", Date: "d", Slot: "s"}},
		{"no treatment", model.Booking{Patient: "p", Date: "d", Slot: "s"}},
		{"no date", model.Booking{Patient: "p", Treatment: "C", Slot: "s"}},
		{"no slot", model.Booking{Patient: "p", Treatment: "C", Date: "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Create(context.Background(), tt.b)
			assert.ErrorIs(t, err, ErrInvalidBooking)
		})
	}
}

// racingRecords hides the existing booking from the pre-check, the way a
// concurrent request would, and then rejects the insert.
type racingRecords struct {
	existing model.Booking
	finds    int
}

func (r *racingRecords) BookingsByPatient(context.Context, string) ([]model.Booking, error) {
	return nil, nil
}

func (r *racingRecords) FindBooking(_ context.Context, f store.BookingFilter) (*model.Booking, error) {
	r.finds++
	if r.finds == 1 {
		return nil, store.ErrNotFound
	}
	b := r.existing
	return &b, nil
}

func (r *racingRecords) InsertBooking(context.Context, *model.Booking, bool) error {
	return store.ErrDuplicate
}

func TestCreateBookingTrimsFields(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seed(t, st, model.Service{Name: "Cleaning", Slots: []string{"9am", "10am"}})
	l, _ := newLedger(st, false)

	res, err := l.Create(ctx, model.Booking{Patient: " a@x.com ", Treatment: " Cleaning", Date: "2024-01-01 ", Slot: " 9am"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "9am", res.Booking.Slot)
	assert.Equal(t, "Cleaning", res.Booking.Treatment)
	assert.Equal(t, "2024-01-01", res.Booking.Date)

	got, err := NewAvailability(st, st).ListAvailable(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, []model.Service{{Name: "Cleaning", Slots: []string{"10am"}}}, got)

	_, err = l.Create(ctx, model.Booking{Patient: "b@x.com", Treatment: "Cleaning", Date: "2024-01-01", Slot: "   "})
	assert.ErrorIs(t, err, ErrInvalidBooking)
}

func TestCreateBookingLostRaceIsConflict(t *testing.T) {
	rec := &racingRecords{existing: model.Booking{ID: "winner", Patient: "a@x.com", Treatment: "Cleaning", Date: "2024-01-01", Slot: "9am"}}
	l, n := newLedger(rec, false)

	res, err := l.Create(context.Background(), model.Booking{
		Patient: "a@x.com", Treatment: "Cleaning", Date: "2024-01-01", Slot: "10am",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.NotNil(t, res.Exist)
	assert.Equal(t, "winner", res.Exist.ID)
	assert.Empty(t, n.sent)
}

func TestCreateBookingConcurrentSamePatient(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	l, n := newLedger(st, false)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := l.Create(ctx, model.Booking{
				Patient: "a@x.com", Treatment: "Cleaning", Date: "2024-01-01", Slot: "9am",
			})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	created := 0
	for _, r := range results {
		if r.Success {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Len(t, n.sent, 1)
	all, err := st.BookingsByPatient(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPatientBookings(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	l, _ := newLedger(st, false)
	for _, tr := range []string{"Cleaning", "Whitening"} {
		_, err := l.Create(ctx, model.Booking{Patient: "a@x.com", Treatment: tr, Date: "2024-01-01", Slot: "9am"})
		require.NoError(t, err)
	}
	_, err := l.Create(ctx, model.Booking{Patient: "b@x.com", Treatment: "Cleaning", Date: "2024-01-01", Slot: "10am"})
	require.NoError(t, err)

	got, err := l.PatientBookings(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
