package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"zoombid/internal/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const resetSubject = "Password Reset OTP"

var resetTemplate = template.Must(template.New("reset").Parse(
	`<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. To reset your password, use this OTP: <strong>{{.OTP}}</strong></p>
<p>Thank you!<br>ZoomBid Support Team</p>
`))

// OTPSender sends password reset codes
type OTPSender interface {
	SendPasswordResetOTP(ctx context.Context, to, name, otp string) error
}

// Sender delivers a composed message
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends account emails over SMTP
type Mailer struct {
	sender Sender
	from   string
}

// New returns an SMTP mailer, or a LogMailer when no SMTP host is configured
func New(cfg config.SMTPConfig, logger *zap.Logger) OTPSender {
	if cfg.Host == "" {
		logger.Warn("SMTP host not configured, password reset codes will be logged")
		return &LogMailer{logger: logger}
	}
	return NewWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From)
}

// NewWithSender builds a Mailer on top of an existing sender
func NewWithSender(sender Sender, from string) *Mailer {
	return &Mailer{sender: sender, from: from}
}

// SendPasswordResetOTP mails a one time password reset code
func (m *Mailer) SendPasswordResetOTP(ctx context.Context, to, name, otp string) error {
	msg, err := m.resetMessage(to, name, otp)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- m.sender.DialAndSend(msg) }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send mail to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mailer) resetMessage(to, name, otp string) (*gomail.Message, error) {
	body, err := resetBody(name, otp)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", resetSubject)
	msg.SetBody("text/html", body)
	return msg, nil
}

func resetBody(name, otp string) (string, error) {
	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, struct{ Name, OTP string }{name, otp}); err != nil {
		return "", fmt.Errorf("failed to render reset mail: %w", err)
	}
	return body.String(), nil
}

// LogMailer writes reset codes to the log. Development only.
type LogMailer struct {
	logger *zap.Logger
}

func (l *LogMailer) SendPasswordResetOTP(ctx context.Context, to, name, otp string) error {
	l.logger.Info("Password reset OTP", zap.String("to", to), zap.String("otp", otp))
	return nil
}
