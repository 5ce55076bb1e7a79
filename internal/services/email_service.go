package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/caremont/hospital-api/internal/config"
	"github.com/caremont/hospital-api/internal/maillog"
	"github.com/caremont/hospital-api/internal/models"
)

// transportConfig is one SMTP configuration in the fallback chain.
type transportConfig struct {
	Name    string
	Port    int
	SSL     bool
	Timeout time.Duration
}

// smtpChain is the ordered fallback list: submission port with STARTTLS
// first, implicit TLS second, then a loose preset with the longest timeout
// as the last resort. Tried strictly in order; concurrent multi-provider
// sends could double-deliver.
var smtpChain = []transportConfig{
	{Name: "starttls-587", Port: 587, SSL: false, Timeout: 15 * time.Second},
	{Name: "tls-465", Port: 465, SSL: true, Timeout: 20 * time.Second},
	{Name: "preset-587", Port: 587, SSL: false, Timeout: 30 * time.Second},
}

// EmailService delivers mail through AWS SES when configured, falling back
// to an ordered chain of SMTP configurations. SendEmail never returns an
// error for transport problems; callers always get a structured result and
// every outcome lands in the append-only delivery log.
type EmailService struct {
	cfg       config.EmailConfig
	sesClient *ses.Client
	mailLog   *maillog.Log
	logger    *slog.Logger

	// Overridable in tests to avoid real network dials.
	sendSES  func(ctx context.Context, to, subject, text, html string) (string, error)
	sendSMTP func(ctx context.Context, tc transportConfig, to, subject, text, html string) error
}

// NewEmailService creates a new EmailService. The SES client is only
// constructed when a region is configured; SMTP availability is decided
// per call from the config.
func NewEmailService(cfg config.EmailConfig, mailLog *maillog.Log, logger *slog.Logger) (*EmailService, error) {
	s := &EmailService{
		cfg:     cfg,
		mailLog: mailLog,
		logger:  logger,
	}
	s.sendSES = s.sendViaSES
	s.sendSMTP = s.sendViaSMTP

	if cfg.SESConfigured() {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		s.sesClient = ses.NewFromConfig(awsCfg)
	}

	return s, nil
}

// SendEmail attempts delivery of one message. SES is tried first when
// configured, then each SMTP configuration in chain order, each attempt
// bounded by its own timeout. The first success wins and later
// configurations are never touched. With nothing configured the message is
// logged with NO_CONFIG and a synthetic result is returned; if every
// attempt fails the result carries the recipient in Rejected. The returned
// error is reserved for context cancellation between attempts.
func (s *EmailService) SendEmail(ctx context.Context, to, subject, text, html string) (*models.EmailDeliveryResult, error) {
	if !s.cfg.SESConfigured() && !s.cfg.SMTPConfigured() {
		s.record(maillog.Entry{
			Status:  maillog.StatusNoConfig,
			To:      to,
			Subject: subject,
			Text:    text,
		})
		s.logger.Warn("no email transport configured, message logged only",
			slog.String("subject", subject))
		return &models.EmailDeliveryResult{
			MessageID:  "mock-" + uuid.New().String(),
			Accepted:   []string{to},
			StatusText: "no transport configured",
		}, nil
	}

	var lastErr error

	if s.cfg.SESConfigured() {
		messageID, err := s.sendSES(ctx, to, subject, text, html)
		if err == nil {
			s.record(maillog.Entry{
				Status:      maillog.StatusSent,
				MessageID:   messageID,
				To:          to,
				Subject:     subject,
				Text:        text,
				HTMLExcerpt: html,
			})
			return &models.EmailDeliveryResult{
				MessageID:  messageID,
				Accepted:   []string{to},
				StatusText: "sent via ses",
			}, nil
		}
		lastErr = err
		s.logger.Warn("ses delivery failed, falling back to smtp chain",
			slog.Any("error", err))
	}

	if s.cfg.SMTPConfigured() {
		for _, tc := range smtpChain {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			err := s.attemptWithTimeout(ctx, tc, to, subject, text, html)
			if err == nil {
				messageID := "smtp-" + uuid.New().String()
				s.record(maillog.Entry{
					Status:      maillog.StatusSent,
					MessageID:   messageID,
					To:          to,
					Subject:     subject,
					Text:        text,
					HTMLExcerpt: html,
				})
				s.logger.Info("email sent",
					slog.String("transport", tc.Name),
					slog.String("message_id", messageID))
				return &models.EmailDeliveryResult{
					MessageID:  messageID,
					Accepted:   []string{to},
					StatusText: "sent via " + tc.Name,
				}, nil
			}

			lastErr = err
			s.logger.Warn("smtp attempt failed",
				slog.String("transport", tc.Name),
				slog.Any("error", err))
		}
	}

	errText := "delivery failed"
	if lastErr != nil {
		errText = lastErr.Error()
	}
	s.record(maillog.Entry{
		Status:  maillog.StatusFailed,
		To:      to,
		Subject: subject,
		Text:    text,
		Error:   errText,
	})
	s.logger.Error("all email transports exhausted",
		slog.String("subject", subject),
		slog.Any("error", lastErr))
	return &models.EmailDeliveryResult{
		Rejected:   []string{to},
		StatusText: errText,
	}, nil
}

// attemptWithTimeout races one SMTP attempt against the configuration's
// timeout. An abandoned attempt may still complete server-side; the chain
// moves on regardless.
func (s *EmailService) attemptWithTimeout(ctx context.Context, tc transportConfig, to, subject, text, html string) error {
	done := make(chan error, 1)
	go func() {
		done <- s.sendSMTP(ctx, tc, to, subject, text, html)
	}()

	timer := time.NewTimer(tc.Timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("smtp attempt %s timed out after %s", tc.Name, tc.Timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *EmailService) sendViaSES(ctx context.Context, to, subject, text, html string) (string, error) {
	body := &types.Body{
		Text: &types.Content{Data: aws.String(text)},
	}
	if html != "" {
		body.Html = &types.Content{Data: aws.String(html)}
	}

	result, err := s.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.cfg.FromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body:    body,
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(result.MessageId), nil
}

func (s *EmailService) sendViaSMTP(_ context.Context, tc transportConfig, to, subject, text, html string) error {
	dialer := gomail.NewDialer(s.cfg.SMTPHost, tc.Port, s.cfg.SMTPUsername, s.cfg.SMTPPassword)
	dialer.SSL = tc.SSL
	if !tc.SSL {
		dialer.TLSConfig = &tls.Config{ServerName: s.cfg.SMTPHost}
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.cfg.FromAddress)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	if html != "" {
		msg.SetBody("text/html", html)
		if text != "" {
			msg.AddAlternative("text/plain", text)
		}
	} else {
		msg.SetBody("text/plain", text)
	}

	return dialer.DialAndSend(msg)
}

// record writes the delivery log entry; a log failure is itself only
// logged, it never alters the delivery outcome.
func (s *EmailService) record(e maillog.Entry) {
	if s.mailLog == nil {
		return
	}
	if err := s.mailLog.Record(e); err != nil {
		s.logger.Error("failed to write mail log entry", slog.Any("error", err))
	}
}
