package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/careslot/careslot/internal/auth"
	"github.com/careslot/careslot/internal/booking"
	"github.com/careslot/careslot/internal/user"
)

type RouterConfig struct {
	Users     *user.Service
	Booking   *booking.Service
	Issuer    *auth.Issuer
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    zerolog.Logger
	Env       string
	Version   string
	AuthRate  float64
	AuthBurst int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	secure := cfg.Env == "prod"
	accessTTL := cfg.Issuer.AccessTTL()
	refreshTTL := cfg.Issuer.RefreshTTL()

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			limiter := NewRateLimiter(cfg.AuthRate, cfg.AuthBurst)
			r.Use(limiter.Middleware)

			r.Post("/register", registerHandler(cfg.Users, accessTTL, refreshTTL, secure))
			r.Post("/login", loginHandler(cfg.Users, accessTTL, refreshTTL, secure))
			r.Post("/refresh-token", refreshHandler(cfg.Users, accessTTL, secure))
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticator(cfg.Issuer))

			r.Route("/appointments", func(r chi.Router) {
				r.With(RequireRole("admin")).Get("/", listAppointmentsHandler(cfg.Booking))
				r.With(RequireRole("patient")).Post("/", createAppointmentHandler(cfg.Booking))
				r.Get("/me", myAppointmentsHandler(cfg.Booking))
				r.Put("/{id}", updateAppointmentHandler(cfg.Booking))
				r.Delete("/{id}", deleteAppointmentHandler(cfg.Booking))
			})

			r.Route("/slots", func(r chi.Router) {
				r.Get("/", listSlotsHandler(cfg.Booking))
				r.With(RequireRole("doctor")).Get("/me", mySlotsHandler(cfg.Booking))
				r.With(RequireRole("patient")).Get("/doctor", bookedTimesHandler(cfg.Booking))
				r.Get("/{id}", getSlotHandler(cfg.Booking))
			})

			r.Route("/users", func(r chi.Router) {
				r.With(RequireRole("admin")).Get("/", listUsersHandler(cfg.Users))
				r.Get("/me", meHandler(cfg.Users))
				r.Get("/{id}", getUserHandler(cfg.Users))
				r.Put("/{id}", updateUserHandler(cfg.Users))
				r.Delete("/{id}", deleteUserHandler(cfg.Users))
			})
		})
	})

	return r
}
