// Package doctor manages the clinic's doctor records. Callers are expected
// to have passed the admin guard.
package doctor

import (
	"context"
	"errors"
	"strings"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

var (
	ErrInvalidDoctor = errors.New("doctor email and name required")
	ErrExists        = errors.New("doctor already exists")
)

type Registry struct {
	doctors store.DoctorStore
}

func NewRegistry(s store.DoctorStore) *Registry {
	return &Registry{doctors: s}
}

func (r *Registry) Create(ctx context.Context, d model.Doctor) (model.Doctor, error) {
	d.Email = strings.TrimSpace(d.Email)
	d.Name = strings.TrimSpace(d.Name)
	if d.Email == "" || d.Name == "" {
		return model.Doctor{}, ErrInvalidDoctor
	}
	err := r.doctors.CreateDoctor(ctx, &d)
	if errors.Is(err, store.ErrDuplicate) {
		return model.Doctor{}, ErrExists
	}
	if err != nil {
		return model.Doctor{}, err
	}
	return d, nil
}

func (r *Registry) List(ctx context.Context) ([]model.Doctor, error) {
	return r.doctors.ListDoctors(ctx)
}

// Delete reports how many records went away; zero is not an error.
func (r *Registry) Delete(ctx context.Context, email string) (int64, error) {
	return r.doctors.DeleteDoctor(ctx, email)
}
