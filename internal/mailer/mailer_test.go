package mailer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/cottonstock/invoicedesk/config"
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureDialer struct {
	sent []*gomail.Message
	err  error
}

func (c *captureDialer) DialAndSend(m ...*gomail.Message) error {
	c.sent = append(c.sent, m...)
	return c.err
}

func reminderInvoice() *domain.Invoice {
	return &domain.Invoice{
		InvoiceNumber: "INV-3",
		BillFrom:      domain.Seller{Email: "accounts@cottonstock.in"},
		BillTo:        domain.Buyer{ClientName: "Ravi", Email: "ravi@example.com"},
	}
}

func TestSplitSubject(t *testing.T) {
	subject, body := SplitSubject("Subject: Reminder INV-3\n\nDear Ravi,\nPlease pay.")
	assert.Equal(t, "Reminder INV-3", subject)
	assert.Equal(t, "Dear Ravi,\nPlease pay.", body)

	subject, body = SplitSubject("Dear Ravi")
	assert.Empty(t, subject)
	assert.Equal(t, "Dear Ravi", body)
}

func TestSendReminder(t *testing.T) {
	d := &captureDialer{}
	m := NewWithDialer(d, "billing@cottonstock.in")

	require.NoError(t, m.SendReminder(reminderInvoice(), "Subject: Reminder INV-3\n\nDear Ravi"))
	require.Len(t, d.sent, 1)
	msg := d.sent[0]
	assert.Equal(t, []string{"ravi@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Reminder INV-3"}, msg.GetHeader("Subject"))
	assert.Equal(t, []string{"accounts@cottonstock.in"}, msg.GetHeader("Reply-To"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Dear Ravi")
}

func TestSendReminderErrors(t *testing.T) {
	assert.False(t, New(config.SMTPConfig{}).Enabled())
	assert.True(t, errors.Is(New(config.SMTPConfig{}).SendReminder(reminderInvoice(), "x"), ErrDisabled))

	inv := reminderInvoice()
	inv.BillTo.Email = ""
	err := NewWithDialer(&captureDialer{}, "a@b.c").SendReminder(inv, "x")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	err = NewWithDialer(&captureDialer{err: errors.New("connection refused")}, "a@b.c").SendReminder(reminderInvoice(), "x")
	assert.Error(t, err)
}
