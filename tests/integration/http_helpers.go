package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/caremont/hospital-api/internal/auth"
	"github.com/caremont/hospital-api/internal/config"
	"github.com/caremont/hospital-api/internal/database"
	"github.com/caremont/hospital-api/internal/handlers"
	middlewareCustom "github.com/caremont/hospital-api/internal/middleware"
	"github.com/caremont/hospital-api/internal/models"
	"github.com/caremont/hospital-api/internal/repositories"
	"github.com/caremont/hospital-api/internal/routes"
	"github.com/caremont/hospital-api/internal/services"
	pkglogger "github.com/caremont/hospital-api/pkg/logger"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// CapturingEmailSender records outgoing email for test assertions instead of
// delivering it.
type CapturingEmailSender struct {
	mu         sync.Mutex
	SentEmails []SentEmail
}

func (m *CapturingEmailSender) SendEmail(ctx context.Context, to, subject, text, html string) (*models.EmailDeliveryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentEmails = append(m.SentEmails, SentEmail{To: to, Subject: subject, Body: text})
	return &models.EmailDeliveryResult{
		MessageID:  "test-" + uuid.New().String(),
		Accepted:   []string{to},
		StatusText: "SENT",
	}, nil
}

// LastEmail returns the most recent captured email, or nil
func (m *CapturingEmailSender) LastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with the full application stack wired to
// a real database and a capturing email sender.
type TestServer struct {
	Server *httptest.Server
	DB     *database.DB
	Email  *CapturingEmailSender
	Config *config.Config

	ipCounter atomic.Uint32
}

// NewTestServer initializes a complete HTTP server against db
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-32-characters-long-for-testing",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
			ResetTokenExpiry:   1 * time.Hour,
			CleanupInterval:    1 * time.Hour,
		},
		Email: config.EmailConfig{
			FromAddress:  "noreply@test.local",
			StaffInbox:   "frontdesk@test.local",
			ResetURLBase: "http://localhost:3000/reset-password",
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
		},
	}

	userRepo := repositories.NewUserRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)
	prefsRepo := repositories.NewPreferencesRepository(db)
	patientRepo := repositories.NewPatientRepository(db)
	doctorRepo := repositories.NewDoctorRepository(db)
	deptRepo := repositories.NewDepartmentRepository(db)
	apptRepo := repositories.NewAppointmentRepository(db)
	applicationRepo := repositories.NewApplicationRepository(db)
	contactRepo := repositories.NewContactMessageRepository(db)

	sender := &CapturingEmailSender{}

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Keep auth timing short so the suite stays fast
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 1, RandomDelayMs: 1})

	notificationService := services.NewNotificationService(prefsRepo, sender, logger)
	lockoutService := services.NewLockoutService(userRepo, logger, auditLogger)
	authService := services.NewAuthService(
		userRepo,
		resetRepo,
		prefsRepo,
		lockoutService,
		sender,
		tokenManager,
		timingDelay,
		logger,
		auditLogger,
		cfg.Auth.ResetTokenExpiry,
		cfg.Email.ResetURLBase,
	)
	userService := services.NewUserService(userRepo, logger)
	patientService := services.NewPatientService(patientRepo, logger)
	doctorService := services.NewDoctorService(doctorRepo, deptRepo, logger)
	deptService := services.NewDepartmentService(deptRepo, logger)
	apptService := services.NewAppointmentService(apptRepo, patientRepo, doctorRepo, notificationService, logger)
	applicationService := services.NewApplicationService(applicationRepo, notificationService, logger)
	contactService := services.NewContactService(contactRepo, notificationService, cfg.Email.StaffInbox, logger)
	settingsService := services.NewSettingsService(prefsRepo, logger)

	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Users:        handlers.NewUserHandler(userService),
		Patients:     handlers.NewPatientHandler(patientService),
		Doctors:      handlers.NewDoctorHandler(doctorService),
		Departments:  handlers.NewDepartmentHandler(deptService),
		Appointments: handlers.NewAppointmentHandler(apptService),
		Applications: handlers.NewApplicationHandler(applicationService),
		Contact:      handlers.NewContactHandler(contactService),
		Settings:     handlers.NewSettingsHandler(settingsService),
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, h, tokenManager, userRepo)

	server := httptest.NewServer(r)

	return &TestServer{
		Server: server,
		DB:     db,
		Email:  sender,
		Config: cfg,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// PostJSON sends a JSON POST request and returns the response
func (ts *TestServer) PostJSON(path string, body any, token string) (*http.Response, error) {
	return ts.doJSON(http.MethodPost, path, body, token)
}

// PutJSON sends a JSON PUT request and returns the response
func (ts *TestServer) PutJSON(path string, body any, token string) (*http.Response, error) {
	return ts.doJSON(http.MethodPut, path, body, token)
}

// PatchJSON sends a JSON PATCH request and returns the response
func (ts *TestServer) PatchJSON(path string, body any, token string) (*http.Response, error) {
	return ts.doJSON(http.MethodPatch, path, body, token)
}

// Get sends a GET request and returns the response
func (ts *TestServer) Get(path, token string) (*http.Response, error) {
	return ts.doJSON(http.MethodGet, path, nil, token)
}

func (ts *TestServer) doJSON(method, path string, body any, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// Every request presents a distinct client IP so the per-IP rate
	// limiter never couples unrelated tests. The limiter itself is covered
	// by its own unit tests.
	n := ts.ipCounter.Add(1)
	req.Header.Set("X-Real-IP", fmt.Sprintf("10.1.%d.%d", (n>>8)&255, n&255))

	return http.DefaultClient.Do(req)
}

// DecodeJSON reads and unmarshals a response body
func DecodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
