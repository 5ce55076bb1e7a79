package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/caremont/hospital-api/internal/auth"
	"github.com/caremont/hospital-api/internal/handlers"
	"github.com/caremont/hospital-api/internal/middleware"
)

// Handlers groups everything RegisterRoutes needs to wire
type Handlers struct {
	Auth         *handlers.AuthHandler
	Users        *handlers.UserHandler
	Patients     *handlers.PatientHandler
	Doctors      *handlers.DoctorHandler
	Departments  *handlers.DepartmentHandler
	Appointments *handlers.AppointmentHandler
	Applications *handlers.ApplicationHandler
	Contact      *handlers.ContactHandler
	Settings     *handlers.SettingsHandler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokenManager *auth.TokenManager,
	userRepo auth.UserRepository,
) {
	authLimit := middleware.DefaultAuthRateLimit()
	publicLimit := middleware.DefaultPublicRateLimit()

	// Auth endpoints - public, tightly rate limited
	router.With(middleware.RateLimitByIP(authLimit)).Post("/auth/login", h.Auth.Login)
	router.With(middleware.RateLimitByIP(authLimit)).Post("/auth/refresh", h.Auth.Refresh)
	router.With(middleware.RateLimitByIP(authLimit)).Post("/auth/forgot-password", h.Auth.ForgotPassword)
	router.With(middleware.RateLimitByIP(authLimit)).Post("/auth/reset-password", h.Auth.ResetPassword)

	// Public website surface - browse directory, submit forms
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(publicLimit))
		h.Doctors.RegisterPublicRoutes(r)
		h.Departments.RegisterPublicRoutes(r)
		h.Applications.RegisterPublicRoutes(r)
		h.Contact.RegisterPublicRoutes(r)
	})

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))

		// Any authenticated staff member
		h.Patients.RegisterRoutes(r)
		h.Appointments.RegisterRoutes(r)
		h.Settings.RegisterRoutes(r)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, "admin"))
			r.Post("/auth/register", h.Auth.Register)
			h.Users.RegisterRoutes(r)
			h.Doctors.RegisterRoutes(r)
			h.Departments.RegisterRoutes(r)
			h.Applications.RegisterRoutes(r)
			h.Contact.RegisterRoutes(r)
		})
	})
}
