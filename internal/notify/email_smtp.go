package notify

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/wolfman30/leadrelay/pkg/logging"
)

// SMTPConfig holds conventional SMTP settings.
type SMTPConfig struct {
	Enabled   bool
	Host      string
	Port      int
	User      string
	Password  string
	FromEmail string
	FromName  string
}

// Configured reports whether SMTP is enabled and all four connection settings are set.
func (c SMTPConfig) Configured() bool {
	return c.Enabled &&
		strings.TrimSpace(c.Host) != "" &&
		c.Port > 0 &&
		strings.TrimSpace(c.User) != "" &&
		c.Password != ""
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends mail through an authenticated SMTP relay.
type SMTPSender struct {
	dialer    mailDialer
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSMTPSender returns nil when the config is incomplete.
func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if !cfg.Configured() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.User
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SMTPSender{
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send dials the relay and sends msg. gomail has no context support, so the
// dial runs in its own goroutine and Send returns early if ctx is done.
func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.dialer == nil {
		return fmt.Errorf("notify: smtp: %w", ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notify: smtp: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.fromEmail, s.fromName))
	if msg.ToName != "" {
		m.SetHeader("To", m.FormatAddress(msg.To, msg.ToName))
	} else {
		m.SetHeader("To", msg.To)
	}
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	if msg.Body != "" {
		m.SetBody("text/plain", msg.Body)
		if msg.HTML != "" {
			m.AddAlternative("text/html", msg.HTML)
		}
	} else {
		m.SetBody("text/html", msg.HTML)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("smtp send failed", "error", err, "to", msg.To)
			return fmt.Errorf("notify: smtp send failed: %w", err)
		}
	case <-ctx.Done():
		s.logger.Error("smtp send abandoned", "error", ctx.Err(), "to", msg.To)
		return fmt.Errorf("notify: smtp send: %w", ctx.Err())
	}

	s.logger.Info("email sent via smtp", "to", msg.To, "subject", msg.Subject)
	return nil
}

var _ EmailSender = (*SMTPSender)(nil)
