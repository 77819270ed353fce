package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careslot/careslot/internal/booking"
)

func createAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		claims := ClaimsFromContext(r.Context())
		patientID, err := uuid.Parse(claims.UserID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token", "token subject is not a valid UUID")
			return
		}

		var doctorID uuid.UUID
		if req.DoctorID != "" {
			doctorID, err = uuid.Parse(req.DoctorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
		}

		appt, err := svc.CreateAppointment(r.Context(), patientID, booking.CreateAppointmentInput{
			DoctorID: doctorID,
			SlotDate: req.SlotDate,
			SlotTime: req.SlotTime,
			Purpose:  req.Purpose,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details, err := svc.ListAppointments(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]AppointmentDetailResponse, 0, len(details))
		for _, d := range details {
			resp = append(resp, AppointmentDetailResponse{
				ID:           d.ID,
				PatientName:  d.PatientName,
				PatientEmail: d.PatientEmail,
				DoctorName:   d.DoctorName,
				DoctorEmail:  d.DoctorEmail,
				SlotDate:     d.SlotDate.Format(booking.DateLayout),
				SlotTime:     d.SlotTime,
				Status:       string(d.Status),
				Purpose:      d.Purpose,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func myAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token", "token subject is not a valid UUID")
			return
		}

		rows, err := svc.ListForUser(r.Context(), userID, claims.Role)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]UserAppointmentResponse, 0, len(rows))
		for _, row := range rows {
			resp = append(resp, UserAppointmentResponse{
				ID:      row.ID,
				Name:    row.CounterpartyName,
				Email:   row.CounterpartyEmail,
				Date:    row.SlotDate.Format(booking.DateLayout),
				Time:    row.SlotTime,
				Purpose: row.Purpose,
				Status:  string(row.Status),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in := booking.UpdateAppointmentInput{
			SlotDate: req.SlotDate,
			SlotTime: req.SlotTime,
			Purpose:  req.Purpose,
		}
		if req.Status != nil {
			status := booking.AppointmentStatus(*req.Status)
			in.Status = &status
		}

		appt, err := svc.UpdateAppointment(r.Context(), id, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteAppointment(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "appointment deleted"})
	}
}

func listSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.ListSlots(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, slotResponses(slots))
	}
}

func getSlotHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		slot, err := svc.GetSlot(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func mySlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		doctorID, err := uuid.Parse(claims.UserID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token", "token subject is not a valid UUID")
			return
		}

		slots, err := svc.ListSlotsByDoctor(r.Context(), doctorID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, slotResponses(slots))
	}
}

func bookedTimesHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doctorID uuid.UUID
		if raw := r.URL.Query().Get("doctor_id"); raw != "" {
			var err error
			doctorID, err = uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
		}

		times, err := svc.BookedTimes(r.Context(), doctorID, r.URL.Query().Get("slot_date"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if times == nil {
			times = []string{}
		}
		writeJSON(w, http.StatusOK, times)
	}
}

func slotResponses(slots []booking.Slot) []SlotResponse {
	resp := make([]SlotResponse, 0, len(slots))
	for i := range slots {
		resp = append(resp, toSlotResponse(&slots[i]))
	}
	return resp
}
