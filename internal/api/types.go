package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/careslot/careslot/internal/booking"
	"github.com/careslot/careslot/internal/user"
)

type RegisterRequest struct {
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	PhoneNumber    *string `json:"phone_number,omitempty"`
	Role           string  `json:"role"`
	Password       string  `json:"password"`
	Specialization *string `json:"specialization,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Gender         *string `json:"gender,omitempty"`
	DateOfBirth    *string `json:"date_of_birth,omitempty"`
}

type RegisterResponse struct {
	Message  string    `json:"message"`
	UserID   uuid.UUID `json:"user_id"`
	UserType string    `json:"user_type"`
	Token    string    `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string    `json:"token"`
	UserID   uuid.UUID `json:"user_id"`
	UserType string    `json:"user_type"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type CreateAppointmentRequest struct {
	DoctorID string  `json:"doctor_id"`
	SlotDate string  `json:"slot_date"`
	SlotTime string  `json:"slot_time"`
	Purpose  *string `json:"purpose,omitempty"`
}

type UpdateAppointmentRequest struct {
	SlotDate *string `json:"slot_date,omitempty"`
	SlotTime *string `json:"slot_time,omitempty"`
	Purpose  *string `json:"purpose,omitempty"`
	Status   *string `json:"status,omitempty"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	SlotID    uuid.UUID `json:"slot_id"`
	Status    string    `json:"status"`
	Purpose   *string   `json:"purpose,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		SlotID:    a.SlotID,
		Status:    string(a.Status),
		Purpose:   a.Purpose,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type AppointmentDetailResponse struct {
	ID           uuid.UUID `json:"id"`
	PatientName  string    `json:"patient_name"`
	PatientEmail string    `json:"patient_email"`
	DoctorName   string    `json:"doctor_name"`
	DoctorEmail  string    `json:"doctor_email"`
	SlotDate     string    `json:"slot_date"`
	SlotTime     string    `json:"slot_time"`
	Status       string    `json:"status"`
	Purpose      *string   `json:"purpose,omitempty"`
}

type UserAppointmentResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Date    string    `json:"date"`
	Time    string    `json:"time"`
	Purpose *string   `json:"purpose,omitempty"`
	Status  string    `json:"status"`
}

type SlotResponse struct {
	ID       uuid.UUID `json:"id"`
	DoctorID uuid.UUID `json:"doctor_id"`
	SlotDate string    `json:"slot_date"`
	SlotTime string    `json:"slot_time"`
	ExpireAt time.Time `json:"expire_at"`
}

func toSlotResponse(s *booking.Slot) SlotResponse {
	return SlotResponse{
		ID:       s.ID,
		DoctorID: s.DoctorID,
		SlotDate: s.SlotDate.Format(booking.DateLayout),
		SlotTime: s.SlotTime,
		ExpireAt: s.ExpireAt,
	}
}

type UpdateUserRequest struct {
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	PhoneNumber    *string `json:"phone_number,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Gender         *string `json:"gender,omitempty"`
	DateOfBirth    *string `json:"date_of_birth,omitempty"`
}

type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PhoneNumber    *string   `json:"phone_number,omitempty"`
	Role           string    `json:"role"`
	Specialization *string   `json:"specialization,omitempty"`
	Bio            *string   `json:"bio,omitempty"`
	Gender         *string   `json:"gender,omitempty"`
	DateOfBirth    *string   `json:"date_of_birth,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toUserResponse(d *user.Detail) UserResponse {
	resp := UserResponse{
		ID:             d.ID,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Email:          d.Email,
		PhoneNumber:    d.PhoneNumber,
		Role:           string(d.Role),
		Specialization: d.Specialization,
		Bio:            d.Bio,
		Gender:         d.Gender,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.DateOfBirth != nil {
		dob := d.DateOfBirth.Format(user.DateOfBirthLayout)
		resp.DateOfBirth = &dob
	}
	return resp
}
