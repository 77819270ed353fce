package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("slot already booked for this doctor, date and time")
)

// Repository contains all DB interactions needed by the booking service.
type Repository interface {
	// Slots
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	FindSlotByTuple(ctx context.Context, doctorID uuid.UUID, slotDate time.Time, slotTime string) (*Slot, error)
	// CreateSlot returns ErrSlotTaken when the unique constraint on
	// (doctor_id, slot_date, slot_time) fires.
	CreateSlot(ctx context.Context, s *Slot) error
	DeleteSlot(ctx context.Context, id uuid.UUID) error
	ListSlots(ctx context.Context) ([]Slot, error)
	ListSlotsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Slot, error)
	ListBookedTimes(ctx context.Context, doctorID uuid.UUID, slotDate time.Time) ([]string, error)

	// Appointments
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	CreateAppointment(ctx context.Context, a *Appointment) error
	UpdateAppointment(ctx context.Context, a *Appointment) error
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	ListAppointmentDetails(ctx context.Context) ([]AppointmentDetail, error)
	ListAppointmentsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]UserAppointment, error)
	ListAppointmentsForPatient(ctx context.Context, patientID uuid.UUID) ([]UserAppointment, error)

	// Reconcile worker
	DeleteOrphanSlots(ctx context.Context) (int64, error)
	CancelOrphanAppointments(ctx context.Context) (int64, error)
}
