package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cottonstock/invoicedesk/config"
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/cottonstock/invoicedesk/internal/invoice"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errDisabled = errors.New("ai api key not configured")

// Completer is the subset of the go-openai client the assistant uses.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Assistant wraps an OpenAI compatible chat endpoint. Every method falls
// back to deterministic output when the endpoint fails, and marks the
// result with Fallback.
type Assistant struct {
	client   Completer
	model    string
	timeout  time.Duration
	currency string
	printer  *message.Printer
}

// New builds an assistant from configuration. Without an API key every
// call takes the fallback path.
func New(cfg config.AIConfig, business config.BusinessConfig) *Assistant {
	var client Completer
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
		client = openai.NewClientWithConfig(clientCfg)
	}
	return NewWithClient(client, cfg.Model, cfg.Timeout, business)
}

func NewWithClient(client Completer, model string, timeout time.Duration, business config.BusinessConfig) *Assistant {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tag, err := language.Parse(business.Language)
	if err != nil {
		tag = language.English
	}
	return &Assistant{
		client:   client,
		model:    model,
		timeout:  timeout,
		currency: business.Currency,
		printer:  message.NewPrinter(tag),
	}
}

type ParsedItem struct {
	Name      string          `json:"name" mapstructure:"name"`
	Quantity  int             `json:"quantity" mapstructure:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" mapstructure:"-"`
}

// ParsedInvoice is a draft extracted from free text.
type ParsedInvoice struct {
	ClientName string       `json:"clientName" mapstructure:"clientName"`
	Email      string       `json:"email" mapstructure:"email"`
	Address    string       `json:"address" mapstructure:"address"`
	Phone      string       `json:"phone" mapstructure:"phone"`
	Items      []ParsedItem `json:"items" mapstructure:"-"`
	Fallback   bool         `json:"fallback"`
}

type Reminder struct {
	Text     string `json:"reminderText"`
	Fallback bool   `json:"fallback"`
}

type Insights struct {
	Insights []string `json:"insights"`
	Fallback bool     `json:"fallback"`
}

const parsePrompt = `You are an expert invoice data extraction AI. Analyze the following text and extract the relevant information to create an invoice. The output MUST be a valid JSON object.

{
  "clientName": "String",
  "email": "String (if available)",
  "address": "String (if available)",
  "phone": "String (if available)",
  "items": [
    {"name": "string", "quantity": "number", "unitPrice": "number"}
  ]
}

Item names must be one of: %s.

TEXT START
%s
TEXT END

Provide only JSON.`

// ParseText extracts an invoice draft from text. Item names outside the
// catalog become Others.
func (a *Assistant) ParseText(ctx context.Context, text string) (*ParsedInvoice, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrValidation)
	}
	prompt := fmt.Sprintf(parsePrompt, strings.Join(domain.ItemCatalog, ", "), text)
	raw, err := a.complete(ctx, prompt)
	if err == nil {
		var parsed *ParsedInvoice
		if parsed, err = decodeParsedInvoice(raw); err == nil {
			return parsed, nil
		}
	}
	a.logFallback("parse-text", err)
	return &ParsedInvoice{
		ClientName: "Client Name",
		Items:      []ParsedItem{{Name: domain.OtherItem, Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
		Fallback:   true,
	}, nil
}

const reminderPrompt = `You are a professional and polite accounting assistant. Write a friendly reminder email to a client about an overdue or upcoming invoice payment.

Client Name: %s
Invoice Number: %s
Amount Due: %s
Invoice Date: %s

The tone should be friendly but clear. Keep it concise. Start the email with "Subject:".`

// DraftReminder writes a payment reminder for inv. The text always starts
// with "Subject:".
func (a *Assistant) DraftReminder(ctx context.Context, inv *domain.Invoice, sender string) (*Reminder, error) {
	amount := a.Money(inv.Total)
	date := inv.InvoiceDate.Format("02 Jan 2006")
	prompt := fmt.Sprintf(reminderPrompt, inv.BillTo.ClientName, inv.InvoiceNumber, amount, date)

	text, err := a.complete(ctx, prompt)
	if err == nil {
		text = strings.TrimSpace(text)
		if strings.HasPrefix(text, "Subject:") {
			return &Reminder{Text: text}, nil
		}
		err = errors.New("reminder does not start with Subject:")
	}
	a.logFallback("generate-reminder", err)

	client := inv.BillTo.ClientName
	if client == "" {
		client = "Client"
	}
	if sender == "" {
		sender = "Your Business Team"
	}
	fallback := fmt.Sprintf("Subject: Payment Reminder for Invoice %s\n\n"+
		"Dear %s,\n\n"+
		"This is a friendly reminder regarding invoice #%s for %s dated %s.\n\n"+
		"Please process the payment at your earliest convenience.\n\n"+
		"Best regards,\n%s", inv.InvoiceNumber, client, inv.InvoiceNumber, amount, date, sender)
	return &Reminder{Text: fallback, Fallback: true}, nil
}

const insightPrompt = `You are a friendly and insightful financial analyst for a small business.

Based on the following summary of invoice data, provide 2-3 insights.
Each insight should be a short string in a JSON array.
Do not repeat the data directly.

Data Summary:
%s

Return ONLY valid JSON in this format:
{"insights":["Insight 1","Insight 2"]}`

// DashboardInsights turns aggregate statistics and the most recent
// invoices into two or three short insights.
func (a *Assistant) DashboardInsights(ctx context.Context, stats invoice.DashboardStats, recent []*domain.Invoice) (*Insights, error) {
	if stats.TotalInvoices == 0 {
		return &Insights{Insights: []string{"No invoice data available to generate insights."}}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total number of invoices: %d\n", stats.TotalInvoices)
	fmt.Fprintf(&sb, "Total paid invoices: %d\n", stats.TotalPaid)
	fmt.Fprintf(&sb, "Total unpaid invoices: %d\n", stats.TotalUnpaid)
	fmt.Fprintf(&sb, "Total revenue from paid invoices: %s\n", a.Money(stats.PaidAmount))
	fmt.Fprintf(&sb, "Total outstanding amount: %s\n", a.Money(stats.UnpaidAmount))
	fmt.Fprintf(&sb, "Total pieces sold: %d\n", stats.TotalPieces)
	sb.WriteString("Recent invoices:\n")
	for i, inv := range recent {
		if i == 5 {
			break
		}
		fmt.Fprintf(&sb, "Invoice #%s for %s with status %s\n", inv.InvoiceNumber, a.Money(inv.Total), inv.Status)
	}

	raw, err := a.complete(ctx, fmt.Sprintf(insightPrompt, sb.String()))
	if err == nil {
		var out Insights
		if err = json.Unmarshal([]byte(stripFences(raw)), &out); err == nil && len(out.Insights) > 0 {
			if len(out.Insights) > 3 {
				out.Insights = out.Insights[:3]
			}
			return &out, nil
		}
		if err == nil {
			err = errors.New("no insights returned")
		}
	}
	a.logFallback("dashboard-summary", err)
	return &Insights{Insights: a.fallbackInsights(stats), Fallback: true}, nil
}

func (a *Assistant) fallbackInsights(stats invoice.DashboardStats) []string {
	out := make([]string, 0, 3)
	if stats.TotalUnpaid > 0 {
		out = append(out, fmt.Sprintf("You have %d unpaid invoices totaling %s", stats.TotalUnpaid, a.Money(stats.UnpaidAmount)))
	}
	if stats.TotalPaid > 0 {
		out = append(out, fmt.Sprintf("Great job! You've collected %s from %d paid invoices", a.Money(stats.PaidAmount), stats.TotalPaid))
	}
	if stats.TotalUnpaid > stats.TotalPaid {
		out = append(out, "Consider sending payment reminders for outstanding invoices")
	} else {
		out = append(out, "Your payment collection rate is looking good!")
	}
	return out
}

// Money formats an amount with the configured currency symbol and locale
// digit grouping.
func (a *Assistant) Money(d decimal.Decimal) string {
	return a.currency + a.printer.Sprintf("%.2f", d.InexactFloat64())
}

func (a *Assistant) complete(ctx context.Context, prompt string) (string, error) {
	if a.client == nil {
		return "", errDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *Assistant) logFallback(op string, err error) {
	if errors.Is(err, errDisabled) {
		zap.L().Debug("ai disabled, using fallback", zap.String("namespace", "assistant"), zap.String("op", op))
		return
	}
	zap.L().Warn("ai request failed, using fallback", zap.String("namespace", "assistant"), zap.String("op", op), zap.Error(err))
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeParsedInvoice reads loosely typed model output: numbers may come
// back as strings and fields may be missing.
func decodeParsedInvoice(raw string) (*ParsedInvoice, error) {
	var generic map[string]interface{}
	if err := json.Unmarshal([]byte(stripFences(raw)), &generic); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}

	out := &ParsedInvoice{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(generic); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}

	for _, rawItem := range cast.ToSlice(generic["items"]) {
		m := cast.ToStringMap(rawItem)
		if len(m) == 0 {
			continue
		}
		qty := cast.ToInt(m["quantity"])
		if qty < 1 {
			qty = 1
		}
		price, err := decimal.NewFromString(strings.TrimSpace(cast.ToString(m["unitPrice"])))
		if err != nil || price.IsNegative() {
			price = decimal.Zero
		}
		out.Items = append(out.Items, ParsedItem{
			Name:      domain.MatchCatalogItem(cast.ToString(m["name"])),
			Quantity:  qty,
			UnitPrice: price,
		})
	}
	if out.ClientName == "" && len(out.Items) == 0 {
		return nil, errors.New("completion carried no invoice data")
	}
	return out, nil
}
