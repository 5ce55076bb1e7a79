package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/caremont/hospital-api/internal/handlers"
	"github.com/caremont/hospital-api/internal/models"
	"github.com/caremont/hospital-api/internal/services"
)

func TestLogin_Success(t *testing.T) {
	mockService := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			assert.Equal(t, "nurse@hospital.test", email)
			return &services.AuthResponse{
				AccessToken:  "access-token",
				RefreshToken: "refresh-token",
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockService)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", map[string]string{
		"email":    "nurse@hospital.test",
		"password": "secret-password",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp services.AuthResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
}

func TestLogin_LowercasesEmail(t *testing.T) {
	var gotEmail string
	mockService := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			gotEmail = email
			return &services.AuthResponse{AccessToken: "a", RefreshToken: "r"}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockService)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", map[string]string{
		"email":    "  Nurse@Hospital.TEST ",
		"password": "secret-password",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "nurse@hospital.test", gotEmail)
}

func TestLogin_LockedAccountIs423(t *testing.T) {
	mockService := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return nil, &services.AccountLockedError{RemainingSeconds: 540}
		},
	}

	handler := handlers.NewAuthHandler(mockService)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", map[string]string{
		"email":    "nurse@hospital.test",
		"password": "secret-password",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 423, "account_locked")
	assert.Contains(t, w.Body.String(), "Try again in about 9 minute(s)")
}

func TestLogin_LockedRoundsRemainingTimeUp(t *testing.T) {
	mockService := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return nil, &services.AccountLockedError{RemainingSeconds: 61}
		},
	}

	handler := handlers.NewAuthHandler(mockService)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", map[string]string{
		"email":    "nurse@hospital.test",
		"password": "secret-password",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, 423, w.Code)
	assert.Contains(t, w.Body.String(), "about 2 minute(s)")
}

func TestLogin_DisabledAccountLooksLikeBadCredentials(t *testing.T) {
	// Account state must not be distinguishable from a wrong password
	for _, serviceErr := range []error{
		models.ErrUnauthorized,
		models.ErrAccountDisabled,
		models.ErrAccountSuspended,
	} {
		mockService := &handlers.MockAuthService{
			LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
				return nil, serviceErr
			},
		}

		handler := handlers.NewAuthHandler(mockService)
		req := handlers.NewTestRequest(t, "POST", "/auth/login", map[string]string{
			"email":    "nurse@hospital.test",
			"password": "secret-password",
		})

		w := httptest.NewRecorder()
		handler.Login(w, req)

		handlers.AssertErrorResponse(t, w, 401, "unauthorized")
		assert.Contains(t, w.Body.String(), "Authentication failed")
	}
}

func TestLogin_MissingFieldsRejected(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/login", map[string]string{
		"email": "nurse@hospital.test",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestRegister_DuplicateEmailIs409(t *testing.T) {
	mockService := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string) (*services.AuthResponse, error) {
			return nil, models.ErrConflict
		},
	}

	handler := handlers.NewAuthHandler(mockService)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", map[string]string{
		"email":    "nurse@hospital.test",
		"password": "secret-password-1",
		"name":     "New Nurse",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestForgotPassword_ResponseIsUniform(t *testing.T) {
	// Known and unknown emails produce byte-identical responses
	mockService := &handlers.MockAuthService{
		ForgotPasswordFunc: func(ctx context.Context, email string) error {
			return nil // service is silent either way
		},
	}
	handler := handlers.NewAuthHandler(mockService)

	bodies := make([]string, 0, 2)
	for _, email := range []string{"real.user@hospital.test", "nobody@hospital.test"} {
		req := handlers.NewTestRequest(t, "POST", "/auth/forgot-password", map[string]string{
			"email": email,
		})

		w := httptest.NewRecorder()
		handler.ForgotPassword(w, req)

		assert.Equal(t, 200, w.Code)
		bodies = append(bodies, w.Body.String())
	}
	assert.Equal(t, bodies[0], bodies[1])
}

func TestResetPassword_BadTokensAreUnauthorized(t *testing.T) {
	cases := map[error]string{
		models.ErrTokenExpired: "expired",
		models.ErrTokenUsed:    "already been used",
		models.ErrUnauthorized: "Invalid reset link",
	}

	for serviceErr, wantFragment := range cases {
		mockService := &handlers.MockAuthService{
			ResetPasswordFunc: func(ctx context.Context, token, newPassword string) error {
				return serviceErr
			},
		}

		handler := handlers.NewAuthHandler(mockService)
		req := handlers.NewTestRequest(t, "POST", "/auth/reset-password", map[string]string{
			"token":        "some-token",
			"new_password": "NewPassword123!",
		})

		w := httptest.NewRecorder()
		handler.ResetPassword(w, req)

		handlers.AssertErrorResponse(t, w, 401, "unauthorized")
		assert.Contains(t, w.Body.String(), wantFragment)
	}
}

func TestRefresh_InvalidTokenIsUnauthorized(t *testing.T) {
	mockService := &handlers.MockAuthService{
		RefreshTokenFunc: func(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
			return nil, models.ErrUnauthorized
		},
	}

	handler := handlers.NewAuthHandler(mockService)
	req := handlers.NewTestRequest(t, "POST", "/auth/refresh", map[string]string{
		"refresh_token": "stale-token",
	})

	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}
