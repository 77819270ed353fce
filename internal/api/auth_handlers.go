package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/careslot/careslot/internal/user"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

func setAuthCookies(w http.ResponseWriter, token, refreshToken string, accessTTL, refreshTTL time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func registerHandler(svc *user.Service, accessTTL, refreshTTL time.Duration, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		res, err := svc.Register(r.Context(), user.RegisterInput{
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Email:          req.Email,
			PhoneNumber:    req.PhoneNumber,
			Role:           user.Role(req.Role),
			Password:       req.Password,
			Specialization: req.Specialization,
			Bio:            req.Bio,
			Gender:         req.Gender,
			DateOfBirth:    req.DateOfBirth,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		setAuthCookies(w, res.Token, res.RefreshToken, accessTTL, refreshTTL, secure)
		writeJSON(w, http.StatusCreated, RegisterResponse{
			Message:  "registration successful",
			UserID:   res.User.ID,
			UserType: string(res.User.Role),
			Token:    res.Token,
		})
	}
}

func loginHandler(svc *user.Service, accessTTL, refreshTTL time.Duration, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "invalid_input", "email and password are required")
			return
		}

		res, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		setAuthCookies(w, res.Token, res.RefreshToken, accessTTL, refreshTTL, secure)
		writeJSON(w, http.StatusOK, LoginResponse{
			Token:    res.Token,
			UserID:   res.User.ID,
			UserType: string(res.User.Role),
		})
	}
}

func refreshHandler(svc *user.Service, accessTTL time.Duration, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(refreshCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "missing_token", "refresh token cookie is required")
			return
		}

		access, err := svc.Refresh(cookie.Value)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     accessCookieName,
			Value:    access,
			Path:     "/",
			MaxAge:   int(accessTTL.Seconds()),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		})
		writeJSON(w, http.StatusOK, RefreshResponse{AccessToken: access})
	}
}
