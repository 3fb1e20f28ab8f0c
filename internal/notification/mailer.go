// Package notification delivers fully-formed notification content. Delivery
// failure is reported as delivered=false and logged by the caller; it never
// blocks or rolls back a state transition.
package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/approval-service/internal/config"
)

// Notification kinds.
const (
	KindApprovalRequested = "approval-requested"
	KindAssignmentMade    = "assignment-made"
)

// Message is a fully-formed email.
type Message struct {
	Kind      string
	Recipient string
	Subject   string
	HTMLBody  string
}

// Mailer sends a message and reports whether it was delivered. It never
// returns an error.
type Mailer interface {
	Send(msg Message) (delivered bool)
}

// NewMailer returns an SMTP mailer when mail is configured, otherwise a
// mailer that drops messages and logs at debug level.
func NewMailer(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if !cfg.Configured() {
		logger.Warn("email not configured; notifications will be dropped")
		return &noopMailer{logger: logger}
	}
	return &smtpMailer{cfg: cfg, logger: logger}
}

type smtpMailer struct {
	cfg    config.MailConfig
	logger *zap.Logger
}

func (m *smtpMailer) Send(msg Message) bool {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&body, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&body, "Subject: %s\r\n", msg.Subject)
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	body.WriteString("\r\n")
	body.WriteString(msg.HTMLBody)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{msg.Recipient}, []byte(body.String())); err != nil {
		m.logger.Warn("email delivery failed",
			zap.String("kind", msg.Kind),
			zap.String("recipient", msg.Recipient),
			zap.Error(err))
		return false
	}
	m.logger.Info("email sent",
		zap.String("kind", msg.Kind),
		zap.String("recipient", msg.Recipient))
	return true
}

type noopMailer struct {
	logger *zap.Logger
}

func (m *noopMailer) Send(msg Message) bool {
	m.logger.Debug("email dropped (mail not configured)",
		zap.String("kind", msg.Kind),
		zap.String("recipient", msg.Recipient))
	return false
}
