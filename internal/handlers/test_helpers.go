package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/caremont/hospital-api/internal/auth"
	"github.com/caremont/hospital-api/internal/models"
	"github.com/caremont/hospital-api/internal/repositories"
	"github.com/caremont/hospital-api/internal/services"
	pkghttp "github.com/caremont/hospital-api/pkg/http"
)

// NewTestRequest creates an HTTP request with a JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to the request context for testing
// authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   "access",
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithChiID injects an "id" URL parameter the way the chi router would
func WithChiID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that a response has the expected status and
// decodes its JSON body into target
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that a response is a well-formed error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	RegisterFunc       func(ctx context.Context, email, password, name string) (*services.AuthResponse, error)
	RefreshTokenFunc   func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, token, newPassword string) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (*services.AuthResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, name)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword)
	}
	return nil
}

// MockPatientService implements PatientService for testing
type MockPatientService struct {
	GetPatientByIDFunc func(ctx context.Context, id string) (*models.Patient, error)
	ListPatientsFunc   func(ctx context.Context, filter repositories.PatientFilter, limit, offset int) ([]*models.Patient, error)
	CreatePatientFunc  func(ctx context.Context, patient *models.Patient) (*models.Patient, error)
	UpdatePatientFunc  func(ctx context.Context, id string, patient *models.Patient) (*models.Patient, error)
	DeletePatientFunc  func(ctx context.Context, id string) error
}

func (m *MockPatientService) GetPatientByID(ctx context.Context, id string) (*models.Patient, error) {
	if m.GetPatientByIDFunc != nil {
		return m.GetPatientByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPatientService) ListPatients(ctx context.Context, filter repositories.PatientFilter, limit, offset int) ([]*models.Patient, error) {
	if m.ListPatientsFunc != nil {
		return m.ListPatientsFunc(ctx, filter, limit, offset)
	}
	return nil, nil
}

func (m *MockPatientService) CreatePatient(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	if m.CreatePatientFunc != nil {
		return m.CreatePatientFunc(ctx, patient)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPatientService) UpdatePatient(ctx context.Context, id string, patient *models.Patient) (*models.Patient, error) {
	if m.UpdatePatientFunc != nil {
		return m.UpdatePatientFunc(ctx, id, patient)
	}
	return nil, models.ErrNotFound
}

func (m *MockPatientService) DeletePatient(ctx context.Context, id string) error {
	if m.DeletePatientFunc != nil {
		return m.DeletePatientFunc(ctx, id)
	}
	return models.ErrNotFound
}

// MockAppointmentService implements AppointmentService for testing
type MockAppointmentService struct {
	GetAppointmentByIDFunc      func(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointmentsFunc        func(ctx context.Context, filter repositories.AppointmentFilter, limit, offset int) ([]*models.Appointment, error)
	CreateAppointmentFunc       func(ctx context.Context, appt *models.Appointment) (*models.Appointment, error)
	UpdateAppointmentFunc       func(ctx context.Context, id string, appt *models.Appointment) (*models.Appointment, error)
	UpdateAppointmentStatusFunc func(ctx context.Context, id, status string) (*models.Appointment, error)
	DeleteAppointmentFunc       func(ctx context.Context, id string) error
}

func (m *MockAppointmentService) GetAppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	if m.GetAppointmentByIDFunc != nil {
		return m.GetAppointmentByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAppointmentService) ListAppointments(ctx context.Context, filter repositories.AppointmentFilter, limit, offset int) ([]*models.Appointment, error) {
	if m.ListAppointmentsFunc != nil {
		return m.ListAppointmentsFunc(ctx, filter, limit, offset)
	}
	return nil, nil
}

func (m *MockAppointmentService) CreateAppointment(ctx context.Context, appt *models.Appointment) (*models.Appointment, error) {
	if m.CreateAppointmentFunc != nil {
		return m.CreateAppointmentFunc(ctx, appt)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAppointmentService) UpdateAppointment(ctx context.Context, id string, appt *models.Appointment) (*models.Appointment, error) {
	if m.UpdateAppointmentFunc != nil {
		return m.UpdateAppointmentFunc(ctx, id, appt)
	}
	return nil, models.ErrNotFound
}

func (m *MockAppointmentService) UpdateAppointmentStatus(ctx context.Context, id, status string) (*models.Appointment, error) {
	if m.UpdateAppointmentStatusFunc != nil {
		return m.UpdateAppointmentStatusFunc(ctx, id, status)
	}
	return nil, models.ErrNotFound
}

func (m *MockAppointmentService) DeleteAppointment(ctx context.Context, id string) error {
	if m.DeleteAppointmentFunc != nil {
		return m.DeleteAppointmentFunc(ctx, id)
	}
	return models.ErrNotFound
}

// MockSettingsService implements SettingsService for testing
type MockSettingsService struct {
	GetPreferencesFunc    func(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	UpdatePreferencesFunc func(ctx context.Context, prefs *models.NotificationPreferences) (*models.NotificationPreferences, error)
}

func (m *MockSettingsService) GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	if m.GetPreferencesFunc != nil {
		return m.GetPreferencesFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockSettingsService) UpdatePreferences(ctx context.Context, prefs *models.NotificationPreferences) (*models.NotificationPreferences, error) {
	if m.UpdatePreferencesFunc != nil {
		return m.UpdatePreferencesFunc(ctx, prefs)
	}
	return prefs, nil
}
