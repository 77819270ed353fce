package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// Repository contains all DB interactions needed by the user service.
// CreateDoctor and CreatePatient write the user row and its profile in one
// transaction so a failed registration never leaves a bare user behind.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	CreateUser(ctx context.Context, u *User) error
	CreateDoctor(ctx context.Context, u *User, p *DoctorProfile) error
	CreatePatient(ctx context.Context, u *User, p *PatientProfile) error

	GetDoctorProfile(ctx context.Context, doctorID uuid.UUID) (*DoctorProfile, error)
	GetPatientProfile(ctx context.Context, patientID uuid.UUID) (*PatientProfile, error)
	UpsertDoctorProfile(ctx context.Context, p *DoctorProfile) error
	UpsertPatientProfile(ctx context.Context, p *PatientProfile) error

	UpdateUser(ctx context.Context, u *User) error
	// DeleteUser removes the user; role profiles cascade with it.
	DeleteUser(ctx context.Context, id uuid.UUID) error

	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	// List returns users with profile fields joined in; role narrows the
	// result when non-empty.
	List(ctx context.Context, role Role) ([]Detail, error)
}
