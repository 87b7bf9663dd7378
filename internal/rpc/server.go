// Package rpc serves the clinic over gRPC. There is no generated code:
// the service is described by hand and messages travel as JSON.
package rpc

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/booking"
	"clinic-booking-api/internal/directory"
	"clinic-booking-api/internal/doctor"
	"clinic-booking-api/internal/metrics"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/model"
)

const ServiceName = "clinic.v1.ClinicService"

func method(name string) string { return "/" + ServiceName + "/" + name }

// Methods not listed here need a token.
var rules = map[string]middleware.Access{
	method("ListServices"):  middleware.Open,
	method("ListAvailable"): middleware.Open,
	method("CreateBooking"): middleware.Open,
	method("UpsertUser"):    middleware.Open,
	method("IsAdmin"):       middleware.Open,
	method("ListUsers"):     middleware.Admin,
	method("GrantAdmin"):    middleware.Admin,
	method("CreateDoctor"):  middleware.Admin,
	method("ListDoctors"):   middleware.Admin,
	method("DeleteDoctor"):  middleware.Admin,
}

var limited = map[string]bool{
	method("CreateBooking"): true,
	method("UpsertUser"):    true,
}

type ClinicServer interface {
	ListServices(context.Context, *ListServicesRequest) (*ListServicesResponse, error)
	ListAvailable(context.Context, *ListAvailableRequest) (*ListAvailableResponse, error)
	CreateBooking(context.Context, *CreateBookingRequest) (*CreateBookingResponse, error)
	ListPatientBookings(context.Context, *ListPatientBookingsRequest) (*ListPatientBookingsResponse, error)
	UpsertUser(context.Context, *UpsertUserRequest) (*UpsertUserResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
	GrantAdmin(context.Context, *EmailRequest) (*GrantAdminResponse, error)
	IsAdmin(context.Context, *EmailRequest) (*IsAdminResponse, error)
	CreateDoctor(context.Context, *CreateDoctorRequest) (*CreateDoctorResponse, error)
	ListDoctors(context.Context, *ListDoctorsRequest) (*ListDoctorsResponse, error)
	DeleteDoctor(context.Context, *EmailRequest) (*DeleteDoctorResponse, error)
}

func unary[Req, Resp any](name string, call func(ClinicServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			h := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ClinicServer), ctx, req.(*Req))
			}
			if ic == nil {
				return h(ctx, in)
			}
			return ic(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: method(name)}, h)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClinicServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListServices", ClinicServer.ListServices),
		unary("ListAvailable", ClinicServer.ListAvailable),
		unary("CreateBooking", ClinicServer.CreateBooking),
		unary("ListPatientBookings", ClinicServer.ListPatientBookings),
		unary("UpsertUser", ClinicServer.UpsertUser),
		unary("ListUsers", ClinicServer.ListUsers),
		unary("GrantAdmin", ClinicServer.GrantAdmin),
		unary("IsAdmin", ClinicServer.IsAdmin),
		unary("CreateDoctor", ClinicServer.CreateDoctor),
		unary("ListDoctors", ClinicServer.ListDoctors),
		unary("DeleteDoctor", ClinicServer.DeleteDoctor),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinic/v1/clinic.json",
}

type Deps struct {
	Availability *booking.Availability
	Ledger       *booking.Ledger
	Users        *directory.Directory
	Doctors      *doctor.Registry
	Gate         *auth.Gate
	Guard        *auth.Guard
	Limiter      *middleware.RateLimiter
	Metrics      *metrics.Metrics
	Log          zerolog.Logger
}

type Server struct {
	availability *booking.Availability
	ledger       *booking.Ledger
	users        *directory.Directory
	doctors      *doctor.Registry
	log          zerolog.Logger
}

var _ ClinicServer = (*Server)(nil)

// NewServer builds a grpc.Server with auth (and rate limiting when a
// limiter is given) and registers the clinic service on it.
func NewServer(d Deps, opts ...grpc.ServerOption) *grpc.Server {
	var chain []grpc.UnaryServerInterceptor
	if d.Limiter != nil {
		chain = append(chain, middleware.UnaryRateLimit(d.Limiter, limited))
	}
	chain = append(chain, middleware.UnaryAuth(d.Gate, d.Guard, rules, d.Metrics))

	srv := grpc.NewServer(append(opts, grpc.ChainUnaryInterceptor(chain...))...)
	srv.RegisterService(&serviceDesc, &Server{
		availability: d.Availability,
		ledger:       d.Ledger,
		users:        d.Users,
		doctors:      d.Doctors,
		log:          d.Log,
	})
	return srv
}

func (s *Server) toStatus(err error) error {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
	case errors.Is(err, auth.ErrForbidden):
		return status.Error(codes.PermissionDenied, auth.ErrForbidden.Error())
	case errors.Is(err, booking.ErrInvalidBooking),
		errors.Is(err, directory.ErrInvalidEmail),
		errors.Is(err, doctor.ErrInvalidDoctor):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, doctor.ErrExists):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		s.log.Error().Err(err).Msg("rpc failed")
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *Server) ListServices(ctx context.Context, _ *ListServicesRequest) (*ListServicesResponse, error) {
	names, err := s.availability.ServiceNames(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &ListServicesResponse{Names: names}, nil
}

func (s *Server) ListAvailable(ctx context.Context, req *ListAvailableRequest) (*ListAvailableResponse, error) {
	services, err := s.availability.ListAvailable(ctx, req.Date)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &ListAvailableResponse{Services: services}, nil
}

func (s *Server) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*CreateBookingResponse, error) {
	res, err := s.ledger.Create(ctx, req.Booking)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &CreateBookingResponse{Success: res.Success, Result: res.Booking, Exist: res.Exist}, nil
}

func (s *Server) ListPatientBookings(ctx context.Context, req *ListPatientBookingsRequest) (*ListPatientBookingsResponse, error) {
	id, _ := middleware.IdentityFrom(ctx)
	if req.Patient == "" || req.Patient != id.Email {
		return nil, s.toStatus(auth.ErrForbidden)
	}
	list, err := s.ledger.PatientBookings(ctx, req.Patient)
	if err != nil {
		return nil, s.toStatus(err)
	}
	if list == nil {
		list = []model.Booking{}
	}
	return &ListPatientBookingsResponse{Bookings: list}, nil
}

func (s *Server) UpsertUser(ctx context.Context, req *UpsertUserRequest) (*UpsertUserResponse, error) {
	res, err := s.users.Upsert(ctx, req.Email, directory.Profile{Name: req.Name, Photo: req.Photo})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &UpsertUserResponse{Created: res.Created, Token: res.Token}, nil
}

func (s *Server) ListUsers(ctx context.Context, _ *ListUsersRequest) (*ListUsersResponse, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &ListUsersResponse{Users: users}, nil
}

func (s *Server) GrantAdmin(ctx context.Context, req *EmailRequest) (*GrantAdminResponse, error) {
	res, err := s.users.GrantAdmin(ctx, req.Email)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &GrantAdminResponse{MatchedCount: res.Matched, ModifiedCount: res.Modified}, nil
}

func (s *Server) IsAdmin(ctx context.Context, req *EmailRequest) (*IsAdminResponse, error) {
	ok, err := s.users.IsAdmin(ctx, req.Email)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &IsAdminResponse{Admin: ok}, nil
}

func (s *Server) CreateDoctor(ctx context.Context, req *CreateDoctorRequest) (*CreateDoctorResponse, error) {
	d, err := s.doctors.Create(ctx, req.Doctor)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &CreateDoctorResponse{Doctor: d}, nil
}

func (s *Server) ListDoctors(ctx context.Context, _ *ListDoctorsRequest) (*ListDoctorsResponse, error) {
	list, err := s.doctors.List(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &ListDoctorsResponse{Doctors: list}, nil
}

func (s *Server) DeleteDoctor(ctx context.Context, req *EmailRequest) (*DeleteDoctorResponse, error) {
	n, err := s.doctors.Delete(ctx, req.Email)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &DeleteDoctorResponse{DeletedCount: n}, nil
}
