package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"clinic-booking-api/internal/model"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

// BookingFilter matches bookings field by field. Empty fields match anything.
type BookingFilter struct {
	Treatment string
	Date      string
	Patient   string
	Slot      string
}

func (f BookingFilter) Match(b *model.Booking) bool {
	return (f.Treatment == "" || f.Treatment == b.Treatment) &&
		(f.Date == "" || f.Date == b.Date) &&
		(f.Patient == "" || f.Patient == b.Patient) &&
		(f.Slot == "" || f.Slot == b.Slot)
}

type UpdateResult struct {
	Matched  int64 `json:"matchedCount"`
	Modified int64 `json:"modifiedCount"`
}

type ServiceStore interface {
	ListServices(ctx context.Context) ([]model.Service, error)
	ServiceNames(ctx context.Context) ([]string, error)
	UpsertService(ctx context.Context, s *model.Service) error
}

type BookingStore interface {
	BookingsByDate(ctx context.Context, date string) ([]model.Booking, error)
	BookingsByPatient(ctx context.Context, patient string) ([]model.Booking, error)
	FindBooking(ctx context.Context, f BookingFilter) (*model.Booking, error)
	// InsertBooking stores b as a single atomic write. With claimSlot the
	// (treatment, date, slot) key is reserved in the same write.
	InsertBooking(ctx context.Context, b *model.Booking, claimSlot bool) error
}

type UserStore interface {
	UpsertUser(ctx context.Context, u *model.User) (created bool, err error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	SetRole(ctx context.Context, email, role string) (UpdateResult, error)
}

type DoctorStore interface {
	CreateDoctor(ctx context.Context, d *model.Doctor) error
	ListDoctors(ctx context.Context) ([]model.Doctor, error)
	DeleteDoctor(ctx context.Context, email string) (int64, error)
}

// Backend is everything the service needs from persistence.
type Backend interface {
	ServiceStore
	BookingStore
	UserStore
	DoctorStore
	Ping(ctx context.Context) error
	Close()
}

// DB is the subset of *pgxpool.Pool used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store is the Postgres backend.
type Store struct {
	pool DB
}

func New(pool DB) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() { s.pool.Close() }

var _ Backend = (*Store)(nil)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
