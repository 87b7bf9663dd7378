package store

import (
	"context"

	"clinic-booking-api/internal/model"
)

func (s *Store) CreateDoctor(ctx context.Context, d *model.Doctor) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO doctors (email, name, specialty, image) VALUES ($1,$2,$3,$4)`,
		d.Email, d.Name, d.Specialty, d.Image,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Store) ListDoctors(ctx context.Context) ([]model.Doctor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT email, name, specialty, image FROM doctors ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Doctor{}
	for rows.Next() {
		var d model.Doctor
		if err := rows.Scan(&d.Email, &d.Name, &d.Specialty, &d.Image); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// zero rows affected is passed through, not an error
func (s *Store) DeleteDoctor(ctx context.Context, email string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM doctors WHERE email = $1`, email)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
