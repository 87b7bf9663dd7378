package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clinic-booking-api/internal/metrics"
	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

var ErrInvalidBooking = errors.New("patient, treatment, date and slot are required")

type Records interface {
	BookingsByPatient(ctx context.Context, patient string) ([]model.Booking, error)
	FindBooking(ctx context.Context, f store.BookingFilter) (*model.Booking, error)
	InsertBooking(ctx context.Context, b *model.Booking, claimSlot bool) error
}

// Notifier must not block; delivery errors stay inside it.
type Notifier interface {
	BookingConfirmed(b model.Booking)
}

// Result is either a new record or the booking that prevented it.
type Result struct {
	Success bool           `json:"success"`
	Booking *model.Booking `json:"result,omitempty"`
	Exist   *model.Booking `json:"exist,omitempty"`
}

type LedgerOptions struct {
	// StrictSlots also refuses a booking when anyone holds the same
	// (treatment, date, slot).
	StrictSlots bool
}

type Ledger struct {
	records  Records
	notifier Notifier
	opts     LedgerOptions
	log      zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewLedger(r Records, n Notifier, opts LedgerOptions, log zerolog.Logger, m *metrics.Metrics) *Ledger {
	return &Ledger{records: r, notifier: n, opts: opts, log: log, metrics: m, now: time.Now}
}

// Create inserts b unless the patient already booked the treatment that
// day (or, in strict mode, the slot is taken). A conflict is a normal
// result, not an error.
func (l *Ledger) Create(ctx context.Context, b model.Booking) (Result, error) {
	b.Patient = strings.TrimSpace(b.Patient)
	b.Treatment = strings.TrimSpace(b.Treatment)
	b.Date = strings.TrimSpace(b.Date)
	b.Slot = strings.TrimSpace(b.Slot)
	if b.Patient == "" || b.Treatment == "" || b.Date == "" || b.Slot == "" {
		return Result{}, ErrInvalidBooking
	}

	exist, err := l.conflict(ctx, b)
	if err != nil {
		return Result{}, err
	}
	if exist != nil {
		l.metrics.ObserveBooking("conflict")
		return Result{Exist: exist}, nil
	}

	b.ID = uuid.NewString()
	b.CreatedAt = l.now().UTC()
	err = l.records.InsertBooking(ctx, &b, l.opts.StrictSlots)
	if errors.Is(err, store.ErrDuplicate) {
		// lost a race with an identical request
		exist, err = l.conflict(ctx, b)
		if err != nil {
			return Result{}, err
		}
		if exist == nil {
			return Result{}, fmt.Errorf("insert booking: %w", store.ErrDuplicate)
		}
		l.metrics.ObserveBooking("conflict")
		return Result{Exist: exist}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("insert booking: %w", err)
	}

	l.metrics.ObserveBooking("created")
	l.log.Info().Str("booking_id", b.ID).Str("treatment", b.Treatment).Str("date", b.Date).Msg("booking created")
	if l.notifier != nil {
		l.notifier.BookingConfirmed(b)
	}
	return Result{Success: true, Booking: &b}, nil
}

func (l *Ledger) conflict(ctx context.Context, b model.Booking) (*model.Booking, error) {
	filters := []store.BookingFilter{{Treatment: b.Treatment, Date: b.Date, Patient: b.Patient}}
	if l.opts.StrictSlots {
		filters = append(filters, store.BookingFilter{Treatment: b.Treatment, Date: b.Date, Slot: b.Slot})
	}
	for _, f := range filters {
		exist, err := l.records.FindBooking(ctx, f)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find booking: %w", err)
		}
		return exist, nil
	}
	return nil, nil
}

func (l *Ledger) PatientBookings(ctx context.Context, patient string) ([]model.Booking, error) {
	return l.records.BookingsByPatient(ctx, patient)
}
