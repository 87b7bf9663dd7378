package auth

import (
	"context"
	"fmt"
)

// AdminChecker reports whether a user record holds the admin role.
// A missing record must be reported as false, not as an error.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// Guard runs after Gate. It re-reads the role on every call, so a
// revoked role takes effect on the next request.
type Guard struct {
	users AdminChecker
}

func NewGuard(users AdminChecker) *Guard {
	return &Guard{users: users}
}

func (g *Guard) RequireAdmin(ctx context.Context, id Identity) error {
	if id.Email == "" {
		return ErrForbidden
	}
	ok, err := g.users.IsAdmin(ctx, id.Email)
	if err != nil {
		return fmt.Errorf("role lookup: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
