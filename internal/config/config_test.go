package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"AccessTokenExpiry", cfg.Auth.AccessTokenExpiry, 15 * time.Minute},
		{"RefreshTokenExpiry", cfg.Auth.RefreshTokenExpiry, 7 * 24 * time.Hour},
		{"ResetTokenExpiry", cfg.Auth.ResetTokenExpiry, 1 * time.Hour},
		{"CleanupInterval", cfg.Auth.CleanupInterval, 1 * time.Hour},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.Database.Name != "hospital" {
		t.Errorf("DB name: got %q, want %q", cfg.Database.Name, "hospital")
	}
	if cfg.Email.FromAddress != "no-reply@hospital.local" {
		t.Errorf("FromAddress: got %q", cfg.Email.FromAddress)
	}
}

func TestLoad_CustomDurations(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ACCESS_TOKEN_EXPIRY", "30m")
	os.Setenv("RESET_TOKEN_EXPIRY", "2h")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Auth.AccessTokenExpiry != 30*time.Minute {
		t.Errorf("AccessTokenExpiry: got %v, want 30m", cfg.Auth.AccessTokenExpiry)
	}
	if cfg.Auth.ResetTokenExpiry != 2*time.Hour {
		t.Errorf("ResetTokenExpiry: got %v, want 2h", cfg.Auth.ResetTokenExpiry)
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ACCESS_TOKEN_EXPIRY", "not-a-duration")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Auth.AccessTokenExpiry != 15*time.Minute {
		t.Errorf("AccessTokenExpiry with invalid value: got %v, want 15m", cfg.Auth.AccessTokenExpiry)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() with missing JWT_SECRET should fail")
	}
}

func TestLoad_WeakJWTSecretRejected(t *testing.T) {
	os.Setenv("JWT_SECRET", "short")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() with short JWT_SECRET should fail")
	}
}

func TestLoad_ProductionRequiresLongerSecret(t *testing.T) {
	os.Setenv("JWT_SECRET", "only-20-chars-secret")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ENV", "production")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() in production with <32 char JWT_SECRET should fail")
	}
}

func TestEmailConfig_ConfiguredFlags(t *testing.T) {
	cfg := EmailConfig{}
	if cfg.SMTPConfigured() {
		t.Error("empty SMTP config should not report configured")
	}
	if cfg.SESConfigured() {
		t.Error("empty SES config should not report configured")
	}

	cfg = EmailConfig{SMTPHost: "smtp.example.com", SMTPUsername: "u", SMTPPassword: "p"}
	if !cfg.SMTPConfigured() {
		t.Error("full SMTP config should report configured")
	}

	cfg = EmailConfig{AWSRegion: "us-east-1"}
	if !cfg.SESConfigured() {
		t.Error("SES region set should report configured")
	}
}
