package model

import "time"

const RoleAdmin = "admin"

// Service is a treatment with its template slots. Slots are never
// rewritten in storage; availability is computed per request.
type Service struct {
	Name  string   `json:"name" bson:"name"`
	Slots []string `json:"slots" bson:"slots"`
}

type Booking struct {
	ID          string    `json:"id" bson:"_id"`
	Patient     string    `json:"patient" bson:"patient"`
	PatientName string    `json:"patientName" bson:"patientName"`
	Treatment   string    `json:"treatment" bson:"treatment"`
	Date        string    `json:"date" bson:"date"`
	Slot        string    `json:"slot" bson:"slot"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

type User struct {
	Email     string    `json:"email" bson:"email"`
	Name      string    `json:"name,omitempty" bson:"name,omitempty"`
	Photo     string    `json:"photo,omitempty" bson:"photo,omitempty"`
	Role      string    `json:"role,omitempty" bson:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type Doctor struct {
	Email     string `json:"email" bson:"email"`
	Name      string `json:"name" bson:"name"`
	Specialty string `json:"specialty" bson:"specialty"`
	Image     string `json:"image,omitempty" bson:"image,omitempty"`
}
