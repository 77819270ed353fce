package user

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// profileOps is the per-role capability for the role profile attached to a
// user. Registration validation, profile creation and profile updates all
// dispatch through it instead of branching on the role at every call site.
type profileOps interface {
	validateRegister(in RegisterInput) error
	register(ctx context.Context, repo Repository, u *User, in RegisterInput) error
	applyUpdate(ctx context.Context, repo Repository, u *User, in UpdateInput) error
}

var opsByRole = map[Role]profileOps{
	RoleDoctor:  doctorOps{},
	RolePatient: patientOps{},
	RoleAdmin:   adminOps{},
}

type doctorOps struct{}

func (doctorOps) validateRegister(in RegisterInput) error {
	if in.Specialization == nil || *in.Specialization == "" {
		return fmt.Errorf("%w: specialization is required for doctors", ErrInvalidInput)
	}
	return nil
}

func (doctorOps) register(ctx context.Context, repo Repository, u *User, in RegisterInput) error {
	return repo.CreateDoctor(ctx, u, &DoctorProfile{
		Specialization: *in.Specialization,
		Bio:            in.Bio,
	})
}

func (doctorOps) applyUpdate(ctx context.Context, repo Repository, u *User, in UpdateInput) error {
	if in.Specialization == nil && in.Bio == nil {
		return nil
	}

	p, err := repo.GetDoctorProfile(ctx, u.ID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		p = &DoctorProfile{DoctorID: u.ID}
	}

	if in.Specialization != nil {
		p.Specialization = *in.Specialization
	}
	if in.Bio != nil {
		p.Bio = in.Bio
	}
	return repo.UpsertDoctorProfile(ctx, p)
}

type patientOps struct{}

func (patientOps) validateRegister(in RegisterInput) error {
	if in.DateOfBirth == nil || *in.DateOfBirth == "" {
		return fmt.Errorf("%w: date_of_birth is required for patients", ErrInvalidInput)
	}
	if _, err := time.Parse(DateOfBirthLayout, *in.DateOfBirth); err != nil {
		return fmt.Errorf("%w: date_of_birth must be formatted as %s", ErrInvalidInput, DateOfBirthLayout)
	}
	if in.Gender == nil || *in.Gender == "" {
		return fmt.Errorf("%w: gender is required for patients", ErrInvalidInput)
	}
	return nil
}

func (patientOps) register(ctx context.Context, repo Repository, u *User, in RegisterInput) error {
	dob, err := time.Parse(DateOfBirthLayout, *in.DateOfBirth)
	if err != nil {
		return fmt.Errorf("%w: date_of_birth must be formatted as %s", ErrInvalidInput, DateOfBirthLayout)
	}
	return repo.CreatePatient(ctx, u, &PatientProfile{
		Gender:      in.Gender,
		DateOfBirth: &dob,
	})
}

func (patientOps) applyUpdate(ctx context.Context, repo Repository, u *User, in UpdateInput) error {
	if in.Gender == nil && in.DateOfBirth == nil {
		return nil
	}

	p, err := repo.GetPatientProfile(ctx, u.ID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		p = &PatientProfile{PatientID: u.ID}
	}

	if in.Gender != nil {
		p.Gender = in.Gender
	}
	if in.DateOfBirth != nil {
		dob, err := time.Parse(DateOfBirthLayout, *in.DateOfBirth)
		if err != nil {
			return fmt.Errorf("%w: date_of_birth must be formatted as %s", ErrInvalidInput, DateOfBirthLayout)
		}
		p.DateOfBirth = &dob
	}
	return repo.UpsertPatientProfile(ctx, p)
}

// adminOps has no profile to manage.
type adminOps struct{}

func (adminOps) validateRegister(RegisterInput) error { return nil }

func (adminOps) register(ctx context.Context, repo Repository, u *User, _ RegisterInput) error {
	return repo.CreateUser(ctx, u)
}

func (adminOps) applyUpdate(context.Context, Repository, *User, UpdateInput) error { return nil }
