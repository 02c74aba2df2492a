package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// SMTPSender delivers plain-text notifications over SMTP.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(host string, port int, username string, password string, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to string, subject string, message string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("set sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, message)

	client, err := mail.NewClient(s.host,
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.username),
		mail.WithPassword(s.password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogSender is the fallback when SMTP is not configured: deliveries are
// logged and reported as successful. Useful for local development.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to string, subject string, _ string) error {
	slog.Info("email delivery skipped: smtp not configured", "to", to, "subject", subject)
	return nil
}
