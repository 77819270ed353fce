package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/careslot/careslot/internal/redis"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSlotInPast      = errors.New("slot time is in the past")
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")
	ErrRoleNotAllowed  = errors.New("role not allowed for this operation")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
	}
}

type CreateAppointmentInput struct {
	DoctorID uuid.UUID
	SlotDate string
	SlotTime string
	Purpose  *string
}

type UpdateAppointmentInput struct {
	SlotDate *string
	SlotTime *string
	Purpose  *string
	Status   *AppointmentStatus
}

// CreateAppointment reserves the (doctor, date, time) tuple for a patient.
// A distributed lock guards the existence check so concurrent requests for
// the same tuple cannot both pass it; the unique constraint on the slots
// table remains the authoritative guard if the lock is unavailable.
func (s *Service) CreateAppointment(ctx context.Context, patientID uuid.UUID, in CreateAppointmentInput) (*Appointment, error) {
	if in.DoctorID == uuid.Nil {
		return nil, fmt.Errorf("%w: doctor_id is required", ErrInvalidInput)
	}
	if in.SlotDate == "" {
		return nil, fmt.Errorf("%w: slot_date is required", ErrInvalidInput)
	}
	if in.SlotTime == "" {
		return nil, fmt.Errorf("%w: slot_time is required", ErrInvalidInput)
	}

	day, err := time.ParseInLocation(DateLayout, in.SlotDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: slot_date must be formatted as %s", ErrInvalidInput, DateLayout)
	}

	expireAt, err := ComposeExpireAt(in.SlotDate, in.SlotTime)
	if err != nil {
		return nil, fmt.Errorf("%w: slot_time must be formatted like \"09:00 AM\"", ErrInvalidInput)
	}
	if expireAt.Before(time.Now()) {
		return nil, ErrSlotInPast
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, in.DoctorID, in.SlotDate, in.SlotTime, func(lockCtx context.Context) error {
		// Inside the critical section re-check that the tuple is free
		existing, err := s.repo.FindSlotByTuple(lockCtx, in.DoctorID, day, in.SlotTime)
		if err != nil && !errors.Is(err, ErrSlotNotFound) {
			return fmt.Errorf("check slot: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		slot := &Slot{
			ID:       uuid.New(),
			DoctorID: in.DoctorID,
			SlotDate: day,
			SlotTime: in.SlotTime,
			ExpireAt: expireAt,
		}
		if err := s.repo.CreateSlot(lockCtx, slot); err != nil {
			return fmt.Errorf("create slot: %w", err)
		}

		appt := &Appointment{
			ID:        uuid.New(),
			PatientID: patientID,
			DoctorID:  in.DoctorID,
			SlotID:    slot.ID,
			Status:    StatusBooked,
			Purpose:   in.Purpose,
		}
		if err := s.repo.CreateAppointment(lockCtx, appt); err != nil {
			// Best effort release of the half-created slot. If this fails
			// the reconcile worker sweeps it up later.
			if delErr := s.repo.DeleteSlot(lockCtx, slot.ID); delErr != nil && !errors.Is(delErr, ErrSlotNotFound) {
				s.log.Warn().Err(delErr).Str("slot_id", slot.ID.String()).Msg("failed to release slot after appointment create error")
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", in.DoctorID.String()).
		Str("slot_date", in.SlotDate).
		Str("slot_time", in.SlotTime).
		Msg("appointment booked")

	return created, nil
}

// UpdateAppointment applies a partial update. A reschedule happens only when
// both slot_date and slot_time are supplied and differ from the current
// slot; the conflict check for the new tuple runs before anything mutates,
// so a conflicting reschedule leaves the appointment and its slot untouched.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, in UpdateAppointmentInput) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Status != nil && !ValidStatus(*in.Status) {
		return nil, fmt.Errorf("%w: status must be one of booked, completed, cancelled, no-show", ErrInvalidInput)
	}

	apply := func(a *Appointment) {
		if in.Purpose != nil {
			a.Purpose = in.Purpose
		}
		if in.Status != nil {
			a.Status = *in.Status
		}
	}

	if in.SlotDate != nil && in.SlotTime != nil {
		current, err := s.repo.GetSlotByID(ctx, appt.SlotID)
		if err != nil && !errors.Is(err, ErrSlotNotFound) {
			return nil, fmt.Errorf("load current slot: %w", err)
		}

		changed := current == nil ||
			current.SlotDate.Format(DateLayout) != *in.SlotDate ||
			current.SlotTime != *in.SlotTime

		if changed {
			return s.reschedule(ctx, appt, current, *in.SlotDate, *in.SlotTime, apply)
		}
	}

	apply(appt)
	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) reschedule(ctx context.Context, appt *Appointment, current *Slot, slotDate, slotTime string, apply func(*Appointment)) (*Appointment, error) {
	day, err := time.ParseInLocation(DateLayout, slotDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: slot_date must be formatted as %s", ErrInvalidInput, DateLayout)
	}

	expireAt, err := ComposeExpireAt(slotDate, slotTime)
	if err != nil {
		return nil, fmt.Errorf("%w: slot_time must be formatted like \"09:00 AM\"", ErrInvalidInput)
	}

	// The doctor is taken from the stored appointment; a reschedule cannot
	// move the booking to another doctor.
	doctorID := appt.DoctorID

	err = s.locker.WithSlotLock(ctx, doctorID, slotDate, slotTime, func(lockCtx context.Context) error {
		existing, err := s.repo.FindSlotByTuple(lockCtx, doctorID, day, slotTime)
		if err != nil && !errors.Is(err, ErrSlotNotFound) {
			return fmt.Errorf("check slot: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		if current != nil {
			if err := s.repo.DeleteSlot(lockCtx, current.ID); err != nil && !errors.Is(err, ErrSlotNotFound) {
				return fmt.Errorf("release old slot: %w", err)
			}
		}

		slot := &Slot{
			ID:       uuid.New(),
			DoctorID: doctorID,
			SlotDate: day,
			SlotTime: slotTime,
			ExpireAt: expireAt,
		}
		if err := s.repo.CreateSlot(lockCtx, slot); err != nil {
			return fmt.Errorf("create slot: %w", err)
		}

		appt.SlotID = slot.ID
		apply(appt)
		return s.repo.UpdateAppointment(lockCtx, appt)
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("slot_date", slotDate).
		Str("slot_time", slotTime).
		Msg("appointment rescheduled")

	return appt, nil
}

// DeleteAppointment removes the appointment and releases its slot. The slot
// goes first so a failure in between cannot leave the tuple blocked; the
// reconcile worker cancels any appointment left dangling.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteSlot(ctx, appt.SlotID); err != nil && !errors.Is(err, ErrSlotNotFound) {
		return fmt.Errorf("delete slot: %w", err)
	}

	if err := s.repo.DeleteAppointment(ctx, appt.ID); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}

	s.log.Info().Str("appointment_id", id.String()).Msg("appointment deleted")
	return nil
}

// ListAppointments returns every appointment with patient, doctor and slot
// identity resolved.
func (s *Service) ListAppointments(ctx context.Context) ([]AppointmentDetail, error) {
	details, err := s.repo.ListAppointmentDetails(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return details, nil
}

// ListForUser returns the caller's appointments. Doctors see their patients,
// patients see their doctors; any other role is rejected.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, role string) ([]UserAppointment, error) {
	switch role {
	case "doctor":
		return s.repo.ListAppointmentsForDoctor(ctx, userID)
	case "patient":
		return s.repo.ListAppointmentsForPatient(ctx, userID)
	default:
		return nil, ErrRoleNotAllowed
	}
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.repo.GetSlotByID(ctx, id)
}

func (s *Service) ListSlots(ctx context.Context) ([]Slot, error) {
	return s.repo.ListSlots(ctx)
}

func (s *Service) ListSlotsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Slot, error) {
	return s.repo.ListSlotsByDoctor(ctx, doctorID)
}

// BookedTimes returns the time labels already taken for a doctor on a day,
// which is what a booking client renders as unavailable.
func (s *Service) BookedTimes(ctx context.Context, doctorID uuid.UUID, slotDate string) ([]string, error) {
	if doctorID == uuid.Nil {
		return nil, fmt.Errorf("%w: doctor_id is required", ErrInvalidInput)
	}
	if slotDate == "" {
		return nil, fmt.Errorf("%w: slot_date is required", ErrInvalidInput)
	}

	day, err := time.ParseInLocation(DateLayout, slotDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: slot_date must be formatted as %s", ErrInvalidInput, DateLayout)
	}

	return s.repo.ListBookedTimes(ctx, doctorID, day)
}

// ReconcileOrphans cleans up after crashes between the two halves of a
// booking or deletion: slots with no owning appointment are removed and
// booked appointments whose slot is gone are cancelled. Called periodically
// by the worker.
func (s *Service) ReconcileOrphans(ctx context.Context) error {
	slots, err := s.repo.DeleteOrphanSlots(ctx)
	if err != nil {
		return fmt.Errorf("delete orphan slots: %w", err)
	}

	appts, err := s.repo.CancelOrphanAppointments(ctx)
	if err != nil {
		return fmt.Errorf("cancel orphan appointments: %w", err)
	}

	if slots > 0 || appts > 0 {
		s.log.Info().Int64("orphan_slots", slots).Int64("orphan_appointments", appts).Msg("reconciled orphans")
	}
	return nil
}
