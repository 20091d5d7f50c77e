// Package mailer delivers account emails over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/prperemyshlev/spamdetect-backend/internal/config"
	"go.uber.org/zap"
)

const (
	verificationSubject = "Email Verification - ML Spam Detection"
	verificationPath    = "/api/v1/auth/verify"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends verification emails through an SMTP relay
type SMTPMailer struct {
	addr    string
	auth    smtp.Auth
	from    string
	baseURL string
	send    sendFunc
}

// NewSMTPMailer creates a mailer for cfg. Links in emails point at baseURL.
func NewSMTPMailer(cfg config.MailConfig, baseURL string) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr:    cfg.Address(),
		auth:    auth,
		from:    cfg.From,
		baseURL: baseURL,
		send:    smtp.SendMail,
	}
}

// SendVerificationEmail sends the verification link for token to email.
// It returns when the relay accepted the message or ctx is done.
func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	msg := buildVerificationMessage(m.from, email, VerificationLink(m.baseURL, token), time.Now())

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.send(m.addr, m.auth, m.from, []string{email}, msg)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send email: %w", ctx.Err())
	}
}

// VerificationLink builds the link that confirms ownership of an email
func VerificationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + verificationPath + "?" + url.Values{"token": {token}}.Encode()
}

func buildVerificationMessage(from, to, link string, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", verificationSubject)
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("Please click the link below to verify your email address:\r\n")
	b.WriteString(link + "\r\n")
	return b.Bytes()
}

// LogMailer writes verification links to the log instead of sending them.
// It is used when no SMTP host is configured.
type LogMailer struct {
	baseURL string
	logger  *zap.Logger
}

func NewLogMailer(baseURL string, logger *zap.Logger) *LogMailer {
	return &LogMailer{baseURL: baseURL, logger: logger}
}

func (m *LogMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	m.logger.Info("verification email",
		zap.String("to", email),
		zap.String("link", VerificationLink(m.baseURL, token)),
	)
	return nil
}

// Mailer is implemented by SMTPMailer and LogMailer
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
}

// New selects SMTP delivery when a host is configured
func New(cfg config.MailConfig, baseURL string, logger *zap.Logger) Mailer {
	if cfg.Host == "" {
		logger.Warn("MAIL_HOST is empty, verification emails will only be logged")
		return NewLogMailer(baseURL, logger)
	}
	return NewSMTPMailer(cfg, baseURL)
}
