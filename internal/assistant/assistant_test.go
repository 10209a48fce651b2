package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cottonstock/invoicedesk/config"
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/cottonstock/invoicedesk/internal/invoice"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.prompts = append(f.prompts, req.Messages[0].Content)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.reply}}},
	}, nil
}

var business = config.BusinessConfig{Currency: "₹", Language: "en-IN"}

func newAssistant(fc *fakeCompleter) *Assistant {
	if fc == nil {
		return NewWithClient(nil, "test-model", time.Second, business)
	}
	return NewWithClient(fc, "test-model", time.Second, business)
}

func sampleInvoice() *domain.Invoice {
	return &domain.Invoice{
		InvoiceNumber: "INV-7",
		InvoiceDate:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		BillTo:        domain.Buyer{ClientName: "Ravi Traders", Phone: "99"},
		Total:         decimal.NewFromInt(450),
		Status:        domain.StatusUnpaid,
	}
}

func TestParseTextDecodesLooseJSON(t *testing.T) {
	fc := &fakeCompleter{reply: "```json\n" + `{
		"clientName": "Ravi Traders",
		"email": "ravi@example.com",
		"items": [
			{"name": "boys shorts", "quantity": "3", "unitPrice": "120.50"},
			{"name": "Socks", "quantity": 0, "unitPrice": 10}
		]
	}` + "\n```"}
	a := newAssistant(fc)

	got, err := a.ParseText(context.Background(), "3 boys shorts for Ravi at 120.50")
	require.NoError(t, err)
	assert.False(t, got.Fallback)
	assert.Equal(t, "Ravi Traders", got.ClientName)
	assert.Equal(t, "ravi@example.com", got.Email)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Boys Shorts", got.Items[0].Name)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.RequireFromString("120.5")))
	assert.Equal(t, domain.OtherItem, got.Items[1].Name)
	assert.Equal(t, 1, got.Items[1].Quantity)
	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "3 boys shorts for Ravi")
}

func TestParseTextFallback(t *testing.T) {
	for name, fc := range map[string]*fakeCompleter{
		"disabled":  nil,
		"error":     {err: errors.New("quota exceeded")},
		"not json":  {reply: "sorry, I cannot help"},
		"no fields": {reply: `{"notes":"x"}`},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := newAssistant(fc).ParseText(context.Background(), "anything")
			require.NoError(t, err)
			assert.True(t, got.Fallback)
			assert.Equal(t, "Client Name", got.ClientName)
			require.Len(t, got.Items, 1)
			assert.Equal(t, domain.OtherItem, got.Items[0].Name)
		})
	}
}

func TestParseTextRequiresText(t *testing.T) {
	_, err := newAssistant(nil).ParseText(context.Background(), "  ")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestDraftReminder(t *testing.T) {
	fc := &fakeCompleter{reply: "Subject: Invoice INV-7\n\nHello Ravi"}
	got, err := newAssistant(fc).DraftReminder(context.Background(), sampleInvoice(), "Cotton Stock")
	require.NoError(t, err)
	assert.False(t, got.Fallback)
	assert.Equal(t, "Subject: Invoice INV-7\n\nHello Ravi", got.Text)
	assert.Contains(t, fc.prompts[0], "Ravi Traders")
	assert.Contains(t, fc.prompts[0], "₹450.00")
}

func TestDraftReminderFallback(t *testing.T) {
	fc := &fakeCompleter{reply: "Dear Ravi, please pay."}
	got, err := newAssistant(fc).DraftReminder(context.Background(), sampleInvoice(), "")
	require.NoError(t, err)
	assert.True(t, got.Fallback)
	assert.True(t, strings.HasPrefix(got.Text, "Subject: Payment Reminder for Invoice INV-7"))
	assert.Contains(t, got.Text, "Dear Ravi Traders")
	assert.Contains(t, got.Text, "₹450.00")
	assert.Contains(t, got.Text, "Your Business Team")
}

func TestDashboardInsights(t *testing.T) {
	stats := invoice.DashboardStats{
		TotalInvoices: 3,
		TotalPaid:     1,
		TotalUnpaid:   2,
		PaidAmount:    decimal.NewFromInt(100),
		UnpaidAmount:  decimal.NewFromInt(250),
	}

	t.Run("model", func(t *testing.T) {
		fc := &fakeCompleter{reply: `{"insights":["a","b","c","d"]}`}
		got, err := newAssistant(fc).DashboardInsights(context.Background(), stats, []*domain.Invoice{sampleInvoice()})
		require.NoError(t, err)
		assert.False(t, got.Fallback)
		assert.Equal(t, []string{"a", "b", "c"}, got.Insights)
		assert.Contains(t, fc.prompts[0], "Invoice #INV-7")
	})

	t.Run("fallback", func(t *testing.T) {
		got, err := newAssistant(&fakeCompleter{reply: `{"insights":[]}`}).DashboardInsights(context.Background(), stats, nil)
		require.NoError(t, err)
		assert.True(t, got.Fallback)
		assert.Equal(t, []string{
			"You have 2 unpaid invoices totaling ₹250.00",
			"Great job! You've collected ₹100.00 from 1 paid invoices",
			"Consider sending payment reminders for outstanding invoices",
		}, got.Insights)
	})

	t.Run("empty", func(t *testing.T) {
		fc := &fakeCompleter{}
		got, err := newAssistant(fc).DashboardInsights(context.Background(), invoice.DashboardStats{}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"No invoice data available to generate insights."}, got.Insights)
		assert.Empty(t, fc.prompts)
	})
}
