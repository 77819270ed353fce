package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func ValidRole(r Role) bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// DateOfBirthLayout is the calendar form accepted for patient registration.
const DateOfBirthLayout = "2006-01-02"

type User struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Email        string
	PhoneNumber  *string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DoctorProfile extends a User of role doctor, one-to-one.
type DoctorProfile struct {
	DoctorID       uuid.UUID
	Specialization string
	Bio            *string
}

// PatientProfile extends a User of role patient, one-to-one.
type PatientProfile struct {
	PatientID   uuid.UUID
	Gender      *string
	DateOfBirth *time.Time
}

// Detail is a user with its role profile fields merged in. Profile fields
// are nil for roles that do not carry them.
type Detail struct {
	User
	Specialization *string
	Bio            *string
	Gender         *string
	DateOfBirth    *time.Time
}
