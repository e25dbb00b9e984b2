package receipts

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/hearthstay/hearthstay-backend/pkg/config"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
)

// Mailer delivers a rendered receipt email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail through the configured SMTP relay.
type SMTPMailer struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewSMTPMailer builds a mailer from the mail config.
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("smtp host required")
	}
	if cfg.SMTPPort <= 0 {
		return nil, fmt.Errorf("smtp port required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, fmt.Errorf("mail from address required")
	}
	return &SMTPMailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.DefaultFrom,
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("recipient required")
	}

	msg := strings.Builder{}
	msg.WriteString("From: " + m.from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg.String()))
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	}
}

// LogMailer writes the mail to the log instead of a relay. Used in dev and
// anywhere SMTP is not configured.
type LogMailer struct {
	logg *logger.Logger
}

// NewLogMailer builds a mailer that only logs.
func NewLogMailer(logg *logger.Logger) (*LogMailer, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LogMailer{logg: logg}, nil
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	logCtx := m.logg.WithFields(ctx, map[string]any{
		"to":      to,
		"subject": subject,
	})
	m.logg.Info(logCtx, "receipt email (log only)")
	return nil
}
