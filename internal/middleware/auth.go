package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/metrics"
)

type ctxKey string

const identityKey ctxKey = "identity"

func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity stored by Authenticate or UnaryAuth.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func denyReason(err error) string {
	if errors.Is(err, auth.ErrUnauthenticated) {
		return "unauthenticated"
	}
	return "forbidden"
}

// Authenticate runs the token gate on the Authorization header.
func Authenticate(gate *auth.Gate, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := gate.Verify(r.Header.Get("Authorization"))
			if err != nil {
				m.ObserveAuthDenied(denyReason(err))
				if errors.Is(err, auth.ErrUnauthenticated) {
					writeError(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
					return
				}
				writeError(w, http.StatusForbidden, auth.ErrForbidden.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin must be mounted after Authenticate.
func RequireAdmin(guard *auth.Guard, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				m.ObserveAuthDenied("unauthenticated")
				writeError(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
				return
			}
			if err := guard.RequireAdmin(r.Context(), id); err != nil {
				if errors.Is(err, auth.ErrForbidden) {
					m.ObserveAuthDenied("not_admin")
					writeError(w, http.StatusForbidden, auth.ErrForbidden.Error())
					return
				}
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type Access int

const (
	Authenticated Access = iota
	Open
	Admin
)

// UnaryAuth applies the gate (and the guard for Admin methods). Methods
// missing from rules require authentication.
func UnaryAuth(gate *auth.Gate, guard *auth.Guard, rules map[string]Access, m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		access := rules[info.FullMethod]
		if access == Open {
			return next(ctx, req)
		}

		raw := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("authorization"); len(vals) > 0 {
				raw = vals[0]
			}
		}
		id, err := gate.Verify(raw)
		if err != nil {
			m.ObserveAuthDenied(denyReason(err))
			if errors.Is(err, auth.ErrUnauthenticated) {
				return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
			}
			return nil, status.Error(codes.PermissionDenied, auth.ErrForbidden.Error())
		}

		if access == Admin {
			if err := guard.RequireAdmin(ctx, id); err != nil {
				if errors.Is(err, auth.ErrForbidden) {
					m.ObserveAuthDenied("not_admin")
					return nil, status.Error(codes.PermissionDenied, auth.ErrForbidden.Error())
				}
				return nil, status.Error(codes.Internal, "internal error")
			}
		}

		return next(WithIdentity(ctx, id), req)
	}
}
