package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"clinic-booking-api/internal/model"
)

const userCols = `email, name, photo, role, created_at, updated_at`

// UpsertUser merges profile fields by email. Empty fields keep the stored
// value and the role column is never written here.
func (s *Store) UpsertUser(ctx context.Context, u *model.User) (bool, error) {
	var created bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, photo) VALUES ($1,$2,$3)
		 ON CONFLICT (email) DO UPDATE SET
		   name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
		   photo = COALESCE(NULLIF(EXCLUDED.photo, ''), users.photo),
		   updated_at = NOW()
		 RETURNING (xmax = 0)`,
		u.Email, u.Name, u.Photo,
	).Scan(&created)
	return created, err
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1`, email,
	).Scan(&u.Email, &u.Name, &u.Photo, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.Email, &u.Name, &u.Photo, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetRole updates an existing user only; matched is 0 for unknown emails.
func (s *Store) SetRole(ctx context.Context, email, role string) (UpdateResult, error) {
	var res UpdateResult
	err := s.pool.QueryRow(ctx,
		`WITH target AS (
		   SELECT email, role FROM users WHERE email = $1
		 ), upd AS (
		   UPDATE users u SET role = $2, updated_at = NOW()
		   FROM target t
		   WHERE u.email = t.email AND t.role IS DISTINCT FROM $2
		   RETURNING 1
		 )
		 SELECT (SELECT COUNT(*) FROM target), (SELECT COUNT(*) FROM upd)`,
		email, role,
	).Scan(&res.Matched, &res.Modified)
	return res, err
}
