package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no-show"
)

func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusBooked, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

const (
	// DateLayout is the calendar-day form used in requests and lock keys.
	DateLayout = "2006-01-02"
	// TimeLayout is the human slot label, e.g. "09:00 AM".
	TimeLayout = "03:04 PM"
)

// Slot reserves one (doctor, date, time) tuple. No two rows may share the
// same tuple; the slots table enforces this with a unique constraint.
type Slot struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	SlotDate  time.Time
	SlotTime  string
	ExpireAt  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment owns exactly one Slot while active.
type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	SlotID    uuid.UUID
	Status    AppointmentStatus
	Purpose   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppointmentDetail is the admin listing shape with identity fields of the
// joined patient, doctor and slot resolved.
type AppointmentDetail struct {
	Appointment
	PatientName  string
	PatientEmail string
	DoctorName   string
	DoctorEmail  string
	SlotDate     time.Time
	SlotTime     string
}

// UserAppointment is the per-user listing row. Counterparty is the patient
// when the viewer is a doctor and the doctor when the viewer is a patient.
type UserAppointment struct {
	ID                uuid.UUID
	CounterpartyName  string
	CounterpartyEmail string
	SlotDate          time.Time
	SlotTime          string
	Purpose           *string
	Status            AppointmentStatus
}

// ComposeExpireAt builds the slot's wall-clock timestamp from its calendar
// day and time label.
func ComposeExpireAt(slotDate, slotTime string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, slotDate, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot_date %q: %w", slotDate, err)
	}

	clock, err := time.Parse(TimeLayout, slotTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot_time %q: %w", slotTime, err)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.Local), nil
}
