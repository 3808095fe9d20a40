package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// EmailSender sends plain-text mail over SMTP, rate limited so a burst of
// cancellations cannot trip the provider's throttling.
type EmailSender struct {
	addr    string // host:port
	from    string
	auth    smtp.Auth
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

// EmailConfig configures the SMTP sender.
type EmailConfig struct {
	SMTPAddr   string
	From       string
	Username   string
	Password   string
	RatePerSec float64
	Burst      int
}

// NewEmailSender creates a rate-limited SMTP sender.
func NewEmailSender(cfg EmailConfig, logger *zerolog.Logger) *EmailSender {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		host := cfg.SMTPAddr
		if i := strings.Index(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	return &EmailSender{
		addr:    cfg.SMTPAddr,
		from:    cfg.From,
		auth:    auth,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		logger:  logger,
	}
}

// Send delivers one message. Blocks on the rate limiter, not on retries;
// retry policy belongs to the task queue.
func (s *EmailSender) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		s.logger.Warn().Str("subject", subject).Msg("skipping email, recipient has no address")
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	s.logger.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}
