// Package memstore is an in-process store.Backend for tests and local runs.
package memstore

import (
	"context"
	"sync"
	"time"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

type slotKey struct{ treatment, date, slot string }

type Store struct {
	mu       sync.RWMutex
	services []model.Service
	bookings []model.Booking
	claims   map[slotKey]string
	users    map[string]*model.User
	userSeq  []string
	doctors  []model.Doctor
	now      func() time.Time
}

func New() *Store {
	return &Store{
		claims: make(map[slotKey]string),
		users:  make(map[string]*model.User),
		now:    time.Now,
	}
}

var _ store.Backend = (*Store)(nil)

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

func (s *Store) ListServices(context.Context) ([]model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Service, len(s.services))
	for i, svc := range s.services {
		out[i] = model.Service{Name: svc.Name, Slots: append([]string(nil), svc.Slots...)}
	}
	return out, nil
}

func (s *Store) ServiceNames(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.services))
	for i, svc := range s.services {
		out[i] = svc.Name
	}
	return out, nil
}

func (s *Store) UpsertService(_ context.Context, svc *model.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := model.Service{Name: svc.Name, Slots: append([]string(nil), svc.Slots...)}
	for i := range s.services {
		if s.services[i].Name == svc.Name {
			s.services[i] = cp
			return nil
		}
	}
	s.services = append(s.services, cp)
	return nil
}

func (s *Store) filter(f store.BookingFilter) []model.Booking {
	out := []model.Booking{}
	for i := range s.bookings {
		if f.Match(&s.bookings[i]) {
			out = append(out, s.bookings[i])
		}
	}
	return out
}

// where selects by exact field value; unlike a filter, "" only matches "".
func (s *Store) where(field func(*model.Booking) string, val string) []model.Booking {
	out := []model.Booking{}
	for i := range s.bookings {
		if field(&s.bookings[i]) == val {
			out = append(out, s.bookings[i])
		}
	}
	return out
}

func (s *Store) BookingsByDate(_ context.Context, date string) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.where(func(b *model.Booking) string { return b.Date }, date), nil
}

func (s *Store) BookingsByPatient(_ context.Context, patient string) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.where(func(b *model.Booking) string { return b.Patient }, patient), nil
}

func (s *Store) FindBooking(_ context.Context, f store.BookingFilter) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.bookings {
		if f.Match(&s.bookings[i]) {
			b := s.bookings[i]
			return &b, nil
		}
	}
	return nil, store.ErrNotFound
}

// InsertBooking enforces the same keys as the Postgres schema.
func (s *Store) InsertBooking(_ context.Context, b *model.Booking, claimSlot bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	triple := store.BookingFilter{Treatment: b.Treatment, Date: b.Date, Patient: b.Patient}
	if len(s.filter(triple)) > 0 {
		return store.ErrDuplicate
	}
	key := slotKey{b.Treatment, b.Date, b.Slot}
	if claimSlot {
		if _, taken := s.claims[key]; taken {
			return store.ErrDuplicate
		}
		s.claims[key] = b.ID
	}
	s.bookings = append(s.bookings, *b)
	return nil
}

func (s *Store) UpsertUser(_ context.Context, u *model.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cur, ok := s.users[u.Email]
	if !ok {
		s.users[u.Email] = &model.User{
			Email: u.Email, Name: u.Name, Photo: u.Photo,
			CreatedAt: now, UpdatedAt: now,
		}
		s.userSeq = append(s.userSeq, u.Email)
		return true, nil
	}
	if u.Name != "" {
		cur.Name = u.Name
	}
	if u.Photo != "" {
		cur.Photo = u.Photo
	}
	cur.UpdatedAt = now
	return false, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) ListUsers(context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, 0, len(s.userSeq))
	for _, email := range s.userSeq {
		out = append(out, *s.users[email])
	}
	return out, nil
}

func (s *Store) SetRole(_ context.Context, email, role string) (store.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return store.UpdateResult{}, nil
	}
	if u.Role == role {
		return store.UpdateResult{Matched: 1}, nil
	}
	u.Role = role
	u.UpdatedAt = s.now()
	return store.UpdateResult{Matched: 1, Modified: 1}, nil
}

func (s *Store) CreateDoctor(_ context.Context, d *model.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cur := range s.doctors {
		if cur.Email == d.Email {
			return store.ErrDuplicate
		}
	}
	s.doctors = append(s.doctors, *d)
	return nil
}

func (s *Store) ListDoctors(context.Context) ([]model.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Doctor{}, s.doctors...), nil
}

func (s *Store) DeleteDoctor(_ context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, cur := range s.doctors {
		if cur.Email == email {
			s.doctors = append(s.doctors[:i], s.doctors[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}
