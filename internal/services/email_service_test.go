package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremont/hospital-api/internal/config"
	"github.com/caremont/hospital-api/internal/maillog"
)

func smtpOnlyConfig() config.EmailConfig {
	return config.EmailConfig{
		SMTPHost:     "smtp.hospital.example",
		SMTPUsername: "mailer",
		SMTPPassword: "secret",
		FromAddress:  "no-reply@hospital.example",
	}
}

// newEmailFixture builds an EmailService with a buffer-backed delivery log
// and no real transports.
func newEmailFixture(cfg config.EmailConfig) (*EmailService, *bytes.Buffer) {
	var buf bytes.Buffer
	svc := &EmailService{
		cfg:     cfg,
		mailLog: maillog.NewWriter(&buf),
		logger:  newTestLogger(),
	}
	svc.sendSES = func(ctx context.Context, to, subject, text, html string) (string, error) {
		return "", fmt.Errorf("ses not configured in tests")
	}
	svc.sendSMTP = func(ctx context.Context, tc transportConfig, to, subject, text, html string) error {
		return fmt.Errorf("smtp not configured in tests")
	}
	return svc, &buf
}

func logEntries(t *testing.T, buf *bytes.Buffer) []maillog.Entry {
	t.Helper()
	var entries []maillog.Entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e maillog.Entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

// ============================================================================
// No configuration
// ============================================================================

func TestEmailService_NoConfigReturnsSyntheticResult(t *testing.T) {
	svc, buf := newEmailFixture(config.EmailConfig{FromAddress: "no-reply@hospital.example"})

	result, err := svc.SendEmail(context.Background(), "patient@example.com", "Hello", "body", "")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, strings.HasPrefix(result.MessageID, "mock-"))
	assert.Equal(t, []string{"patient@example.com"}, result.Accepted)
	assert.Empty(t, result.Rejected)

	entries := logEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, maillog.StatusNoConfig, entries[0].Status)
	assert.Equal(t, "patient@example.com", entries[0].To)
}

// ============================================================================
// Fallback chain
// ============================================================================

func TestEmailService_AllTransportsFailNeverErrors(t *testing.T) {
	svc, buf := newEmailFixture(smtpOnlyConfig())

	var attempts []string
	svc.sendSMTP = func(ctx context.Context, tc transportConfig, to, subject, text, html string) error {
		attempts = append(attempts, tc.Name)
		return fmt.Errorf("connection refused")
	}

	result, err := svc.SendEmail(context.Background(), "patient@example.com", "Hello", "body", "")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []string{"patient@example.com"}, result.Rejected)
	assert.Empty(t, result.Accepted)
	assert.Contains(t, result.StatusText, "connection refused")

	// Every configuration was tried, in chain order.
	assert.Equal(t, []string{"starttls-587", "tls-465", "preset-587"}, attempts)

	entries := logEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, maillog.StatusFailed, entries[0].Status)
	assert.Contains(t, entries[0].Error, "connection refused")
}

func TestEmailService_FirstSuccessShortCircuits(t *testing.T) {
	svc, buf := newEmailFixture(smtpOnlyConfig())

	calls := 0
	svc.sendSMTP = func(ctx context.Context, tc transportConfig, to, subject, text, html string) error {
		calls++
		return nil
	}

	result, err := svc.SendEmail(context.Background(), "patient@example.com", "Hello", "body", "<p>body</p>")

	require.NoError(t, err)
	assert.Equal(t, 1, calls, "later configurations must not be attempted")
	assert.Equal(t, []string{"patient@example.com"}, result.Accepted)
	assert.Contains(t, result.StatusText, "starttls-587")

	entries := logEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, maillog.StatusSent, entries[0].Status)
	assert.Equal(t, entries[0].MessageID, result.MessageID)
}

func TestEmailService_SecondTransportRecovers(t *testing.T) {
	svc, _ := newEmailFixture(smtpOnlyConfig())

	var attempts []string
	svc.sendSMTP = func(ctx context.Context, tc transportConfig, to, subject, text, html string) error {
		attempts = append(attempts, tc.Name)
		if tc.Name == "starttls-587" {
			return fmt.Errorf("STARTTLS handshake failed")
		}
		return nil
	}

	result, err := svc.SendEmail(context.Background(), "patient@example.com", "Hello", "body", "")

	require.NoError(t, err)
	assert.Equal(t, []string{"starttls-587", "tls-465"}, attempts)
	assert.Equal(t, []string{"patient@example.com"}, result.Accepted)
}

func TestEmailService_SlowTransportTimesOutAndFallsBack(t *testing.T) {
	svc, _ := newEmailFixture(smtpOnlyConfig())

	// The abandoned first-tier goroutine outlives its timeout, so the
	// recorder must be safe to touch from two goroutines at once.
	var mu sync.Mutex
	var attempts []string
	svc.sendSMTP = func(ctx context.Context, tc transportConfig, to, subject, text, html string) error {
		mu.Lock()
		attempts = append(attempts, tc.Name)
		mu.Unlock()
		if tc.Name == "starttls-587" {
			time.Sleep(200 * time.Millisecond)
		}
		return nil
	}

	// Shrink the first tier's timeout so the hang is detected quickly.
	orig := smtpChain[0].Timeout
	smtpChain[0].Timeout = 20 * time.Millisecond
	defer func() { smtpChain[0].Timeout = orig }()

	result, err := svc.SendEmail(context.Background(), "patient@example.com", "Hello", "body", "")

	require.NoError(t, err)
	assert.Equal(t, []string{"patient@example.com"}, result.Accepted)

	mu.Lock()
	recorded := append([]string(nil), attempts...)
	mu.Unlock()
	assert.Equal(t, []string{"starttls-587", "tls-465"}, recorded)
}

// ============================================================================
// SES-first path
// ============================================================================

func TestEmailService_SESTriedBeforeSMTP(t *testing.T) {
	cfg := smtpOnlyConfig()
	cfg.AWSRegion = "eu-west-1"
	svc, buf := newEmailFixture(cfg)

	smtpCalls := 0
	svc.sendSES = func(ctx context.Context, to, subject, text, html string) (string, error) {
		return "ses-message-id", nil
	}
	svc.sendSMTP = func(ctx context.Context, tc transportConfig, to, subject, text, html string) error {
		smtpCalls++
		return nil
	}

	result, err := svc.SendEmail(context.Background(), "patient@example.com", "Hello", "body", "")

	require.NoError(t, err)
	assert.Equal(t, "ses-message-id", result.MessageID)
	assert.Equal(t, 0, smtpCalls, "smtp chain must not run when ses succeeds")

	entries := logEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, maillog.StatusSent, entries[0].Status)
}

func TestEmailService_SESFailureFallsBackToSMTP(t *testing.T) {
	cfg := smtpOnlyConfig()
	cfg.AWSRegion = "eu-west-1"
	svc, _ := newEmailFixture(cfg)

	svc.sendSES = func(ctx context.Context, to, subject, text, html string) (string, error) {
		return "", fmt.Errorf("throttled")
	}
	svc.sendSMTP = func(ctx context.Context, tc transportConfig, to, subject, text, html string) error {
		return nil
	}

	result, err := svc.SendEmail(context.Background(), "patient@example.com", "Hello", "body", "")

	require.NoError(t, err)
	assert.Equal(t, []string{"patient@example.com"}, result.Accepted)
	assert.True(t, strings.HasPrefix(result.MessageID, "smtp-"))
}

func TestEmailService_NilMailLogIsTolerated(t *testing.T) {
	svc, _ := newEmailFixture(config.EmailConfig{})
	svc.mailLog = nil

	result, err := svc.SendEmail(context.Background(), "patient@example.com", "Hello", "body", "")

	require.NoError(t, err)
	assert.NotNil(t, result)
}
