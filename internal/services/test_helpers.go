package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/caremont/hospital-api/internal/models"
	"github.com/caremont/hospital-api/internal/repositories"
	pkglogger "github.com/caremont/hospital-api/pkg/logger"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(newTestLogger())
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc         func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc      func(ctx context.Context, email string) (*models.User, error)
	ListFunc            func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateFunc          func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc          func(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdateLockStateFunc func(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error
	DeleteFunc          func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateLockState(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
	if m.UpdateLockStateFunc != nil {
		return m.UpdateLockStateFunc(ctx, id, failedAttempts, lockedUntil)
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// memoryUserRepo keeps a single user in memory with live lock-state writes,
// so lockout sequences exercise the real read-modify-write flow.
type memoryUserRepo struct {
	MockUserRepository
	mu   sync.Mutex
	user *models.User
}

func newMemoryUserRepo(user *models.User) *memoryUserRepo {
	r := &memoryUserRepo{user: user}
	r.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.user == nil || r.user.ID != id {
			return nil, models.ErrNotFound
		}
		u := *r.user
		return &u, nil
	}
	r.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.user == nil || r.user.Email != email {
			return nil, models.ErrNotFound
		}
		u := *r.user
		return &u, nil
	}
	r.UpdateLockStateFunc = func(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.user == nil || r.user.ID != id {
			return models.ErrNotFound
		}
		r.user.FailedLoginAttempts = failedAttempts
		r.user.LockedUntil = lockedUntil
		return nil
	}
	return r
}

// MockPreferencesRepository implements PreferencesRepository for testing
type MockPreferencesRepository struct {
	GetByUserIDFunc func(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	UpsertFunc      func(ctx context.Context, prefs *models.NotificationPreferences) (*models.NotificationPreferences, error)
}

func (m *MockPreferencesRepository) GetByUserID(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockPreferencesRepository) Upsert(ctx context.Context, prefs *models.NotificationPreferences) (*models.NotificationPreferences, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, prefs)
	}
	return prefs, nil
}

// MockEmailSender implements EmailSender for testing, counting calls so
// tests can assert suppression and short-circuiting.
type MockEmailSender struct {
	SendEmailFunc func(ctx context.Context, to, subject, text, html string) (*models.EmailDeliveryResult, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockEmailSender) SendEmail(ctx context.Context, to, subject, text, html string) (*models.EmailDeliveryResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, to)
	m.mu.Unlock()

	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, to, subject, text, html)
	}
	return &models.EmailDeliveryResult{
		MessageID:  "test-message-id",
		Accepted:   []string{to},
		StatusText: "sent",
	}, nil
}

// CallCount reports the number of SendEmail invocations.
func (m *MockEmailSender) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Recipients returns the recorded recipients in call order.
func (m *MockEmailSender) Recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockPasswordResetRepository implements PasswordResetRepository for testing
type MockPasswordResetRepository struct {
	CreateFunc         func(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error)
	GetByTokenHashFunc func(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	ConsumeFunc        func(ctx context.Context, tokenID, userID, passwordHash string) error
	DeleteByUserIDFunc func(ctx context.Context, userID string) error
}

func (m *MockPasswordResetRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, tokenHash, expiresAt)
	}
	return &models.PasswordResetToken{ID: "token_123", UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}, nil
}

func (m *MockPasswordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockPasswordResetRepository) Consume(ctx context.Context, tokenID, userID, passwordHash string) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, tokenID, userID, passwordHash)
	}
	return nil
}

func (m *MockPasswordResetRepository) DeleteByUserID(ctx context.Context, userID string) error {
	if m.DeleteByUserIDFunc != nil {
		return m.DeleteByUserIDFunc(ctx, userID)
	}
	return nil
}

// MockPatientRepository implements PatientRepository for testing
type MockPatientRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.Patient, error)
	ListFunc    func(ctx context.Context, filter repositories.PatientFilter, limit, offset int) ([]*models.Patient, error)
	CreateFunc  func(ctx context.Context, patient *models.Patient) (*models.Patient, error)
	UpdateFunc  func(ctx context.Context, id string, patient *models.Patient) (*models.Patient, error)
	DeleteFunc  func(ctx context.Context, id string) error
}

func (m *MockPatientRepository) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPatientRepository) List(ctx context.Context, filter repositories.PatientFilter, limit, offset int) ([]*models.Patient, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, limit, offset)
	}
	return []*models.Patient{}, nil
}

func (m *MockPatientRepository) Create(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, patient)
	}
	return patient, nil
}

func (m *MockPatientRepository) Update(ctx context.Context, id string, patient *models.Patient) (*models.Patient, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patient)
	}
	return patient, nil
}

func (m *MockPatientRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockDoctorRepository implements DoctorRepository for testing
type MockDoctorRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.Doctor, error)
	ListFunc    func(ctx context.Context, filter repositories.DoctorFilter, limit, offset int) ([]*models.Doctor, error)
	CreateFunc  func(ctx context.Context, doctor *models.Doctor) (*models.Doctor, error)
	UpdateFunc  func(ctx context.Context, id string, doctor *models.Doctor) (*models.Doctor, error)
	DeleteFunc  func(ctx context.Context, id string) error
}

func (m *MockDoctorRepository) GetByID(ctx context.Context, id string) (*models.Doctor, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockDoctorRepository) List(ctx context.Context, filter repositories.DoctorFilter, limit, offset int) ([]*models.Doctor, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, limit, offset)
	}
	return []*models.Doctor{}, nil
}

func (m *MockDoctorRepository) Create(ctx context.Context, doctor *models.Doctor) (*models.Doctor, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, doctor)
	}
	return doctor, nil
}

func (m *MockDoctorRepository) Update(ctx context.Context, id string, doctor *models.Doctor) (*models.Doctor, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, doctor)
	}
	return doctor, nil
}

func (m *MockDoctorRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockDepartmentRepository implements DepartmentRepository for testing
type MockDepartmentRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.Department, error)
	ListFunc    func(ctx context.Context, limit, offset int) ([]*models.Department, error)
	CreateFunc  func(ctx context.Context, dept *models.Department) (*models.Department, error)
	UpdateFunc  func(ctx context.Context, id string, dept *models.Department) (*models.Department, error)
	DeleteFunc  func(ctx context.Context, id string) error
}

func (m *MockDepartmentRepository) GetByID(ctx context.Context, id string) (*models.Department, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockDepartmentRepository) List(ctx context.Context, limit, offset int) ([]*models.Department, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.Department{}, nil
}

func (m *MockDepartmentRepository) Create(ctx context.Context, dept *models.Department) (*models.Department, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, dept)
	}
	return dept, nil
}

func (m *MockDepartmentRepository) Update(ctx context.Context, id string, dept *models.Department) (*models.Department, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, dept)
	}
	return dept, nil
}

func (m *MockDepartmentRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockAppointmentRepository implements AppointmentRepository for testing
type MockAppointmentRepository struct {
	GetByIDFunc         func(ctx context.Context, id string) (*models.Appointment, error)
	ListFunc            func(ctx context.Context, filter repositories.AppointmentFilter, limit, offset int) ([]*models.Appointment, error)
	FindConflictingFunc func(ctx context.Context, doctorID string, scheduledAt time.Time, slot time.Duration) ([]*models.Appointment, error)
	CreateFunc          func(ctx context.Context, appt *models.Appointment) (*models.Appointment, error)
	UpdateFunc          func(ctx context.Context, id string, appt *models.Appointment) (*models.Appointment, error)
	UpdateStatusFunc    func(ctx context.Context, id, status string) (*models.Appointment, error)
	DeleteFunc          func(ctx context.Context, id string) error
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAppointmentRepository) List(ctx context.Context, filter repositories.AppointmentFilter, limit, offset int) ([]*models.Appointment, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, limit, offset)
	}
	return []*models.Appointment{}, nil
}

func (m *MockAppointmentRepository) FindConflicting(ctx context.Context, doctorID string, scheduledAt time.Time, slot time.Duration) ([]*models.Appointment, error) {
	if m.FindConflictingFunc != nil {
		return m.FindConflictingFunc(ctx, doctorID, scheduledAt, slot)
	}
	return []*models.Appointment{}, nil
}

func (m *MockAppointmentRepository) Create(ctx context.Context, appt *models.Appointment) (*models.Appointment, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, appt)
	}
	return appt, nil
}

func (m *MockAppointmentRepository) Update(ctx context.Context, id string, appt *models.Appointment) (*models.Appointment, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, appt)
	}
	return appt, nil
}

func (m *MockAppointmentRepository) UpdateStatus(ctx context.Context, id, status string) (*models.Appointment, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil, models.ErrNotFound
}

func (m *MockAppointmentRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockApplicationRepository implements ApplicationRepository for testing
type MockApplicationRepository struct {
	GetByIDFunc      func(ctx context.Context, id string) (*models.Application, error)
	ListFunc         func(ctx context.Context, filter repositories.ApplicationFilter, limit, offset int) ([]*models.Application, error)
	CreateFunc       func(ctx context.Context, app *models.Application) (*models.Application, error)
	UpdateStatusFunc func(ctx context.Context, id, status string) (*models.Application, error)
	DeleteFunc       func(ctx context.Context, id string) error
}

func (m *MockApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockApplicationRepository) List(ctx context.Context, filter repositories.ApplicationFilter, limit, offset int) ([]*models.Application, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, limit, offset)
	}
	return []*models.Application{}, nil
}

func (m *MockApplicationRepository) Create(ctx context.Context, app *models.Application) (*models.Application, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, app)
	}
	return app, nil
}

func (m *MockApplicationRepository) UpdateStatus(ctx context.Context, id, status string) (*models.Application, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil, models.ErrNotFound
}

func (m *MockApplicationRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockContactRepository implements ContactRepository for testing
type MockContactRepository struct {
	GetByIDFunc      func(ctx context.Context, id string) (*models.ContactMessage, error)
	ListFunc         func(ctx context.Context, status string, limit, offset int) ([]*models.ContactMessage, error)
	CreateFunc       func(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error)
	UpdateStatusFunc func(ctx context.Context, id, status string) (*models.ContactMessage, error)
	DeleteFunc       func(ctx context.Context, id string) error
}

func (m *MockContactRepository) GetByID(ctx context.Context, id string) (*models.ContactMessage, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockContactRepository) List(ctx context.Context, status string, limit, offset int) ([]*models.ContactMessage, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, status, limit, offset)
	}
	return []*models.ContactMessage{}, nil
}

func (m *MockContactRepository) Create(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, msg)
	}
	return msg, nil
}

func (m *MockContactRepository) UpdateStatus(ctx context.Context, id, status string) (*models.ContactMessage, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil, models.ErrNotFound
}

func (m *MockContactRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}
