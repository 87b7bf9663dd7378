package store

import (
	"context"

	"clinic-booking-api/internal/model"
)

func (s *Store) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, slots FROM services ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Service{}
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.Name, &svc.Slots); err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *Store) ServiceNames(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM services ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// new services go to the end of the catalog; existing ones keep their place
func (s *Store) UpsertService(ctx context.Context, svc *model.Service) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO services (name, slots, position)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM services))
		 ON CONFLICT (name) DO UPDATE SET slots = EXCLUDED.slots`,
		svc.Name, svc.Slots,
	)
	return err
}
