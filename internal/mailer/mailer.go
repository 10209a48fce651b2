package mailer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cottonstock/invoicedesk/config"
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/cottonstock/invoicedesk/pkg/common"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// ErrDisabled is returned when no SMTP host is configured.
var ErrDisabled = errors.New("smtp not configured")

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer delivers drafted reminders to invoice recipients.
type Mailer struct {
	dialer Dialer
	from   string
}

func New(cfg config.SMTPConfig) *Mailer {
	if cfg.Host == "" {
		return &Mailer{}
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return NewWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), from)
}

func NewWithDialer(d Dialer, from string) *Mailer {
	return &Mailer{dialer: d, from: from}
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.dialer != nil
}

// SplitSubject separates a leading "Subject:" line from the body.
func SplitSubject(text string) (subject, body string) {
	text = strings.TrimSpace(text)
	first, rest, _ := strings.Cut(text, "\n")
	if !strings.HasPrefix(first, "Subject:") {
		return "", text
	}
	return strings.TrimSpace(strings.TrimPrefix(first, "Subject:")), strings.TrimSpace(rest)
}

// SendReminder mails text to the invoice's client. The reply-to header is
// set to the seller email when present.
func (m *Mailer) SendReminder(inv *domain.Invoice, text string) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	if common.IsEmptyOrNA(inv.BillTo.Email) {
		return fmt.Errorf("%w: invoice %s has no client email", domain.ErrValidation, inv.InvoiceNumber)
	}
	subject, body := SplitSubject(text)
	if subject == "" {
		subject = "Payment Reminder for Invoice " + inv.InvoiceNumber
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", inv.BillTo.Email)
	if !common.IsEmptyOrNA(inv.BillFrom.Email) {
		msg.SetHeader("Reply-To", inv.BillFrom.Email)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		zap.L().Error("send reminder failed", zap.String("namespace", "mailer"),
			zap.String("invoice", inv.InvoiceNumber), zap.Error(err))
		return fmt.Errorf("send reminder: %w", err)
	}
	zap.L().Info("reminder sent", zap.String("namespace", "mailer"), zap.String("invoice", inv.InvoiceNumber))
	return nil
}
