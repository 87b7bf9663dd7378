package rpc

import "clinic-booking-api/internal/model"

type ListServicesRequest struct{}

type ListServicesResponse struct {
	Names []string `json:"names"`
}

type ListAvailableRequest struct {
	Date string `json:"date"`
}

type ListAvailableResponse struct {
	Services []model.Service `json:"services"`
}

type CreateBookingRequest struct {
	Booking model.Booking `json:"booking"`
}

type CreateBookingResponse struct {
	Success bool           `json:"success"`
	Result  *model.Booking `json:"result,omitempty"`
	Exist   *model.Booking `json:"exist,omitempty"`
}

type ListPatientBookingsRequest struct {
	Patient string `json:"patient"`
}

type ListPatientBookingsResponse struct {
	Bookings []model.Booking `json:"bookings"`
}

type UpsertUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

type UpsertUserResponse struct {
	Created bool   `json:"created"`
	Token   string `json:"token"`
}

type ListUsersRequest struct{}

type ListUsersResponse struct {
	Users []model.User `json:"users"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type GrantAdminResponse struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type IsAdminResponse struct {
	Admin bool `json:"admin"`
}

type CreateDoctorRequest struct {
	Doctor model.Doctor `json:"doctor"`
}

type CreateDoctorResponse struct {
	Doctor model.Doctor `json:"doctor"`
}

type ListDoctorsRequest struct{}

type ListDoctorsResponse struct {
	Doctors []model.Doctor `json:"doctors"`
}

type DeleteDoctorResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}
