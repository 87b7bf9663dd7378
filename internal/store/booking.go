package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"clinic-booking-api/internal/model"
)

const bookingCols = `id, patient, patient_name, treatment, date, slot, created_at`

func scanBookings(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()

	out := []model.Booking{}
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(
			&b.ID, &b.Patient, &b.PatientName, &b.Treatment, &b.Date, &b.Slot, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) BookingsByDate(ctx context.Context, date string) ([]model.Booking, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE date = $1 ORDER BY created_at`, date)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func (s *Store) BookingsByPatient(ctx context.Context, patient string) ([]model.Booking, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE patient = $1 ORDER BY created_at`, patient)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func (s *Store) FindBooking(ctx context.Context, f BookingFilter) (*model.Booking, error) {
	q := `SELECT ` + bookingCols + ` FROM bookings WHERE TRUE`
	var args []any

	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		q += fmt.Sprintf(` AND %s = $%d`, col, len(args))
	}
	add("treatment", f.Treatment)
	add("date", f.Date)
	add("patient", f.Patient)
	add("slot", f.Slot)
	q += ` ORDER BY created_at LIMIT 1`

	b := &model.Booking{}
	err := s.pool.QueryRow(ctx, q, args...).Scan(
		&b.ID, &b.Patient, &b.PatientName, &b.Treatment, &b.Date, &b.Slot, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// The unique index on (treatment, date, patient) and the slot_claims
// primary key turn a lost check-then-insert race into ErrDuplicate.
func (s *Store) InsertBooking(ctx context.Context, b *model.Booking, claimSlot bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if claimSlot {
		_, err = tx.Exec(ctx,
			`INSERT INTO slot_claims (treatment, date, slot, booking_id) VALUES ($1,$2,$3,$4)`,
			b.Treatment, b.Date, b.Slot, b.ID,
		)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO bookings (id, patient, patient_name, treatment, date, slot, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		b.ID, b.Patient, b.PatientName, b.Treatment, b.Date, b.Slot, b.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
