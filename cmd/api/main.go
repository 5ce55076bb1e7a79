package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/caremont/hospital-api/internal/auth"
	"github.com/caremont/hospital-api/internal/background"
	"github.com/caremont/hospital-api/internal/config"
	"github.com/caremont/hospital-api/internal/database"
	"github.com/caremont/hospital-api/internal/handlers"
	"github.com/caremont/hospital-api/internal/maillog"
	middlewareCustom "github.com/caremont/hospital-api/internal/middleware"
	"github.com/caremont/hospital-api/internal/models"
	"github.com/caremont/hospital-api/internal/repositories"
	"github.com/caremont/hospital-api/internal/routes"
	"github.com/caremont/hospital-api/internal/services"
	pkgauth "github.com/caremont/hospital-api/pkg/auth"
	pkghttp "github.com/caremont/hospital-api/pkg/http"
	pkglogger "github.com/caremont/hospital-api/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)
	prefsRepo := repositories.NewPreferencesRepository(db)
	patientRepo := repositories.NewPatientRepository(db)
	doctorRepo := repositories.NewDoctorRepository(db)
	deptRepo := repositories.NewDepartmentRepository(db)
	apptRepo := repositories.NewAppointmentRepository(db)
	applicationRepo := repositories.NewApplicationRepository(db)
	contactRepo := repositories.NewContactMessageRepository(db)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(userRepo, resetRepo, logger, cfg.Auth.CleanupInterval)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Timing delay for auth endpoints
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   100,
		RandomDelayMs: 50,
	})

	// Email delivery log
	mailLog, err := maillog.Open(cfg.Email.MailLogPath)
	if err != nil {
		logger.Error("failed to open mail log", slog.Any("error", err))
		os.Exit(1)
	}
	defer mailLog.Close()

	// Email delivery with SES-first and SMTP fallback chain
	emailService, err := services.NewEmailService(cfg.Email, mailLog, logger)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	notificationService := services.NewNotificationService(prefsRepo, emailService, logger)
	lockoutService := services.NewLockoutService(userRepo, logger, auditLogger)
	authService := services.NewAuthService(
		userRepo,
		resetRepo,
		prefsRepo,
		lockoutService,
		emailService,
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

	// Initialize handlers
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

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger, &pkghttp.IPConfig{
		TrustedProxies: cfg.Server.TrustedProxies,
	}))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, h, tokenManager, userRepo)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	// Check if admin already exists
	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now()
	admin := &models.User{
		Email:             adminEmail,
		PasswordHash:      hashedPassword,
		Name:              "Admin",
		Role:              "admin",
		Status:            "active",
		PasswordChangedAt: &now,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
