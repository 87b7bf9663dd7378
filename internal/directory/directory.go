// Package directory keeps user records keyed by email and issues their credentials.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

var ErrInvalidEmail = errors.New("email required")

type Profile struct {
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

type UpsertResult struct {
	Created bool   `json:"created"`
	Token   string `json:"token"`
}

type Directory struct {
	users  store.UserStore
	signer *auth.Signer
}

func New(users store.UserStore, signer *auth.Signer) *Directory {
	return &Directory{users: users, signer: signer}
}

var _ auth.AdminChecker = (*Directory)(nil)

// Upsert merges the profile into the record for email and always returns
// a freshly signed credential. Roles cannot be set through here.
func (d *Directory) Upsert(ctx context.Context, email string, p Profile) (UpsertResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return UpsertResult{}, ErrInvalidEmail
	}
	created, err := d.users.UpsertUser(ctx, &model.User{Email: email, Name: p.Name, Photo: p.Photo})
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert user: %w", err)
	}
	tok, err := d.signer.Issue(email)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("issue token: %w", err)
	}
	return UpsertResult{Created: created, Token: tok}, nil
}

// List returns every user. Unbounded; fine for a single clinic.
func (d *Directory) List(ctx context.Context) ([]model.User, error) {
	return d.users.ListUsers(ctx)
}

// IsAdmin treats an unknown email as a non-admin.
func (d *Directory) IsAdmin(ctx context.Context, email string) (bool, error) {
	u, err := d.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsAdmin(), nil
}

// GrantAdmin only touches existing records; the counts are passed through.
func (d *Directory) GrantAdmin(ctx context.Context, email string) (store.UpdateResult, error) {
	return d.users.SetRole(ctx, email, model.RoleAdmin)
}
