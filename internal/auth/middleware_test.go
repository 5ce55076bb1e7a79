package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caremont/hospital-api/internal/auth"
	"github.com/caremont/hospital-api/internal/models"
)

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	tm := newTokenManager()
	called := false
	handler := auth.AuthMiddleware(tm)(okHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Error("handler should not be reached without a token")
	}
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	tm := newTokenManager()
	called := false
	handler := auth.AuthMiddleware(tm)(okHandler(&called))

	for _, header := range []string{"Basic abc", "Bearer", "token-without-scheme"} {
		req := httptest.NewRequest(http.MethodGet, "/patients", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
	if called {
		t.Error("handler should not be reached with a malformed header")
	}
}

func TestAuthMiddleware_RejectsRefreshToken(t *testing.T) {
	tm := newTokenManager()
	called := false
	handler := auth.AuthMiddleware(tm)(okHandler(&called))

	refresh, err := tm.GenerateRefreshToken("user-1", "a@b.c", "staff")
	if err != nil {
		t.Fatalf("failed to generate refresh token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for refresh token, got %d", rec.Code)
	}
	if called {
		t.Error("handler should not be reached with a refresh token")
	}
}

func TestAuthMiddleware_ValidTokenInjectsClaims(t *testing.T) {
	tm := newTokenManager()

	var gotUserID string
	handler := auth.AuthMiddleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := auth.GetUserFromContext(r); claims != nil {
			gotUserID = claims.UserID
		}
		w.WriteHeader(http.StatusOK)
	}))

	token, err := tm.GenerateAccessToken("user-42", "a@b.c", "staff")
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUserID != "user-42" {
		t.Errorf("expected claims for user-42 in context, got %q", gotUserID)
	}
}

func requireRoleRequest(t *testing.T, repo *stubUserRepo, roles ...string) *httptest.ResponseRecorder {
	t.Helper()

	tm := newTokenManager()
	called := false
	handler := auth.AuthMiddleware(tm)(auth.RequireRole(repo, roles...)(okHandler(&called)))

	token, err := tm.GenerateAccessToken("user-1", "a@b.c", "staff")
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireRole_AllowsMatchingRole(t *testing.T) {
	repo := &stubUserRepo{user: &models.User{ID: "user-1", Role: "admin", Status: "active"}}

	rec := requireRoleRequest(t, repo, "admin")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestRequireRole_ForbidsOtherRoles(t *testing.T) {
	repo := &stubUserRepo{user: &models.User{ID: "user-1", Role: "staff", Status: "active"}}

	rec := requireRoleRequest(t, repo, "admin")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for staff, got %d", rec.Code)
	}
}

func TestRequireRole_CurrentRoleWins(t *testing.T) {
	// The token says admin but the database says staff: a demotion takes
	// effect before the token expires.
	tm := newTokenManager()
	repo := &stubUserRepo{user: &models.User{ID: "user-1", Role: "staff", Status: "active"}}

	called := false
	handler := auth.AuthMiddleware(tm)(auth.RequireRole(repo, "admin")(okHandler(&called)))

	token, err := tm.GenerateAccessToken("user-1", "a@b.c", "admin")
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 after demotion, got %d", rec.Code)
	}
	if called {
		t.Error("handler should not be reached after demotion")
	}
}

func TestRequireRole_SuspendedAccountForbidden(t *testing.T) {
	repo := &stubUserRepo{user: &models.User{ID: "user-1", Role: "admin", Status: "suspended"}}

	rec := requireRoleRequest(t, repo, "admin")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for suspended account, got %d", rec.Code)
	}
}

func TestRequireRole_DeletedUserUnauthorized(t *testing.T) {
	repo := &stubUserRepo{err: models.ErrNotFound}

	rec := requireRoleRequest(t, repo, "admin")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for deleted user, got %d", rec.Code)
	}
}

func TestGetUserFromContext_NilWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	if claims := auth.GetUserFromContext(req); claims != nil {
		t.Errorf("expected nil claims, got %+v", claims)
	}
}

// Sanity check that token expiry propagates through the middleware
func TestAuthMiddleware_ExpiredTokenRejected(t *testing.T) {
	expired := auth.NewTokenManager(testSecret, -1*time.Minute, time.Hour)
	tm := newTokenManager()

	called := false
	handler := auth.AuthMiddleware(tm)(okHandler(&called))

	token, err := expired.GenerateAccessToken("user-1", "a@b.c", "staff")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired token, got %d", rec.Code)
	}
}
