package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careslot/careslot/internal/user"
)

func listUsersHandler(svc *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := user.Role(r.URL.Query().Get("role"))

		details, err := svc.List(r.Context(), role)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]UserResponse, 0, len(details))
		for i := range details {
			resp = append(resp, toUserResponse(&details[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func meHandler(svc *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		id, err := uuid.Parse(claims.UserID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token", "token subject is not a valid UUID")
			return
		}

		det, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(det))
	}
}

// selfOrAdmin extracts the {id} param and rejects callers that are neither
// the target user nor an admin.
func selfOrAdmin(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "id must be a valid UUID")
		return uuid.Nil, false
	}

	claims := ClaimsFromContext(r.Context())
	if claims.Role != "admin" && claims.UserID != id.String() {
		writeError(w, http.StatusForbidden, "forbidden", "not allowed to manage this user")
		return uuid.Nil, false
	}
	return id, true
}

func getUserHandler(svc *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := selfOrAdmin(w, r)
		if !ok {
			return
		}

		det, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(det))
	}
}

func updateUserHandler(svc *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := selfOrAdmin(w, r)
		if !ok {
			return
		}

		var req UpdateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		det, err := svc.Update(r.Context(), id, user.UpdateInput{
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			PhoneNumber:    req.PhoneNumber,
			Specialization: req.Specialization,
			Bio:            req.Bio,
			Gender:         req.Gender,
			DateOfBirth:    req.DateOfBirth,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(det))
	}
}

func deleteUserHandler(svc *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := selfOrAdmin(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
	}
}
