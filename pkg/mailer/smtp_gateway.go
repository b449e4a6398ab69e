package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPGateway delivers login codes through a plain SMTP relay
type SMTPGateway struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// SMTPConfig holds configuration for the SMTP gateway
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewSMTPGateway creates a new SMTP mail gateway
func NewSMTPGateway(cfg SMTPConfig) *SMTPGateway {
	return &SMTPGateway{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}
}

// SendOTP sends a login code to the given address
func (g *SMTPGateway) SendOTP(toEmail, code string, expiryMinutes int) error {
	subject := "Your WAVE login code"
	body := fmt.Sprintf(
		"Your one-time login code is %s.\r\n\r\nIt expires in %d minutes. If you did not request this code, ignore this mail.\r\n",
		code, expiryMinutes,
	)

	msg := strings.Join([]string{
		"From: " + g.from,
		"To: " + toEmail,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", g.host, g.port)
	auth := smtp.PlainAuth("", g.username, g.password, g.host)

	if err := smtp.SendMail(addr, auth, g.from, []string{toEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send OTP mail: %w", err)
	}
	return nil
}

// GetName returns the gateway name
func (g *SMTPGateway) GetName() string {
	return "smtp"
}
