package adminapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/cottonstock/invoicedesk/internal/export"
	"github.com/cottonstock/invoicedesk/internal/invoice"
	"github.com/cottonstock/invoicedesk/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type itemPayload struct {
	Name      string          `json:"name" validate:"required,max=64"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type sellerPayload struct {
	BusinessName string `json:"businessName" validate:"omitempty,max=200"`
	Email        string `json:"email" validate:"omitempty,email"`
	Address      string `json:"address" validate:"omitempty,max=500"`
	Phone        string `json:"phone" validate:"omitempty,max=32"`
}

type buyerPayload struct {
	ClientName string `json:"clientName" validate:"omitempty,max=200"`
	Phone      string `json:"phone" validate:"omitempty,max=32"`
	Email      string `json:"email" validate:"omitempty,email"`
	Address    string `json:"address" validate:"omitempty,max=500"`
}

// invoicePayload serves both create and update. Absent fields keep their
// stored value on update.
type invoicePayload struct {
	InvoiceNumber         string           `json:"invoiceNumber" validate:"omitempty,max=64"`
	InvoiceDate           string           `json:"invoiceDate"`
	BillFrom              *sellerPayload   `json:"billFrom"`
	BillTo                *buyerPayload    `json:"billTo"`
	Items                 []itemPayload    `json:"items" validate:"omitempty,dive"`
	Notes                 string           `json:"notes" validate:"omitempty,max=2000"`
	PaymentMode           string           `json:"paymentMode" validate:"omitempty,max=32"`
	Status                string           `json:"status" validate:"omitempty,max=16"`
	DirectAmountReduction *decimal.Decimal `json:"directAmountReduction"`
	InvoiceDiscount       *decimal.Decimal `json:"invoiceDiscount"`
}

type reminderPayload struct {
	Text string `json:"text" validate:"omitempty,max=10000"`
}

func registerInvoiceRoutes() {
	webserver.ApiGET("/invoices", listInvoices)
	webserver.ApiPOST("/invoices", createInvoice)
	webserver.ApiGET("/invoices/stats", invoiceStats)
	webserver.ApiGET("/invoices/export", exportInvoices)
	webserver.ApiGET("/invoices/:id", getInvoice)
	webserver.ApiPUT("/invoices/:id", updateInvoice)
	webserver.ApiDELETE("/invoices/:id", deleteInvoice)
	webserver.ApiPOST("/invoices/:id/reminder", sendInvoiceReminder)
}

func (p *invoicePayload) toInput() (invoice.Input, error) {
	in := invoice.Input{
		InvoiceNumber:         p.InvoiceNumber,
		Notes:                 p.Notes,
		PaymentMode:           p.PaymentMode,
		Status:                p.Status,
		DirectAmountReduction: p.DirectAmountReduction,
		InvoiceDiscount:       p.InvoiceDiscount,
	}
	if strings.TrimSpace(p.InvoiceDate) != "" {
		t, err := dateparse.ParseIn(p.InvoiceDate, time.Local)
		if err != nil {
			return in, fmt.Errorf("%w: invalid invoiceDate %q", domain.ErrValidation, p.InvoiceDate)
		}
		in.InvoiceDate = &t
	}
	if p.BillFrom != nil {
		s := domain.Seller(*p.BillFrom)
		in.BillFrom = &s
	}
	if p.BillTo != nil {
		b := domain.Buyer(*p.BillTo)
		in.BillTo = &b
	}
	if p.Items != nil {
		in.Items = make([]domain.LineItem, 0, len(p.Items))
		for _, item := range p.Items {
			in.Items = append(in.Items, domain.LineItem{
				Name:      strings.TrimSpace(item.Name),
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}
	}
	return in, nil
}

// bindInvoice writes the failure response itself; done reports whether it did.
func bindInvoice(c echo.Context) (in invoice.Input, done bool, err error) {
	var payload invoicePayload
	if err := c.Bind(&payload); err != nil {
		return in, true, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse invoice", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return in, true, handleValidationError(c, err)
	}
	if in, err = payload.toInput(); err != nil {
		return in, true, respondError(c, err)
	}
	return in, false, nil
}

// dateFilter reads range, start and end query params.
func dateFilter(c echo.Context) (invoice.DateFilter, error) {
	return invoice.ParseDateFilter(c.QueryParam("range"), c.QueryParam("start"), c.QueryParam("end"), time.Local)
}

func createInvoice(c echo.Context) error {
	in, done, err := bindInvoice(c)
	if done {
		return err
	}
	inv, err := GetAppContext(c).Invoices().Create(c.Request().Context(), currentUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return created(c, inv)
}

func listInvoices(c echo.Context) error {
	filter, err := dateFilter(c)
	if err != nil {
		return respondError(c, err)
	}
	rows, err := GetAppContext(c).Invoices().ListByOwner(c.Request().Context(), currentUserID(c), filter)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, rows, int64(len(rows)))
}

func getInvoice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid invoice ID", nil)
	}
	inv, err := GetAppContext(c).Invoices().GetByID(c.Request().Context(), id, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, inv)
}

func updateInvoice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid invoice ID", nil)
	}
	in, done, err := bindInvoice(c)
	if done {
		return err
	}
	inv, err := GetAppContext(c).Invoices().Update(c.Request().Context(), id, currentUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, inv)
}

func deleteInvoice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid invoice ID", nil)
	}
	if err := GetAppContext(c).Invoices().Delete(c.Request().Context(), id, currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return ok(c, map[string]string{"message": "Invoice deleted successfully"})
}

func invoiceStats(c echo.Context) error {
	filter, err := dateFilter(c)
	if err != nil {
		return respondError(c, err)
	}
	stats, err := GetAppContext(c).Invoices().DashboardStats(c.Request().Context(), currentUserID(c), filter)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, stats)
}

func exportInvoices(c echo.Context) error {
	format := strings.ToLower(strings.TrimSpace(c.QueryParam("format")))
	if format == "" {
		format = export.FormatCSV
	}
	contentType, supported := export.ContentType(format)
	if !supported {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "format must be csv or xlsx", nil)
	}
	filter, err := dateFilter(c)
	if err != nil {
		return respondError(c, err)
	}
	repo := GetAppContext(c).Invoices()
	rows, err := repo.ListByOwner(c.Request().Context(), currentUserID(c), filter)
	if err != nil {
		return respondError(c, err)
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, rows); err != nil {
		return respondError(c, err)
	}
	filename := fmt.Sprintf("invoices-%s.%s", repo.Now().Format("20060102"), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

// sendInvoiceReminder mails the supplied text, or a drafted reminder when
// no text is given.
func sendInvoiceReminder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid invoice ID", nil)
	}
	var payload reminderPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	appCtx := GetAppContext(c)
	ctx := c.Request().Context()
	if !appCtx.Mailer().Enabled() {
		return fail(c, http.StatusServiceUnavailable, "MAIL_DISABLED", "Email delivery is not configured", nil)
	}
	inv, err := appCtx.Invoices().GetByID(ctx, id, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	text, fallback := strings.TrimSpace(payload.Text), false
	if text == "" {
		reminder, err := appCtx.Assistant().DraftReminder(ctx, inv, inv.BillFrom.BusinessName)
		if err != nil {
			return respondError(c, err)
		}
		text, fallback = reminder.Text, reminder.Fallback
	}
	if err := appCtx.Mailer().SendReminder(inv, text); err != nil {
		return respondError(c, err)
	}
	return ok(c, map[string]interface{}{
		"sent":         true,
		"to":           inv.BillTo.Email,
		"reminderText": text,
		"fallback":     fallback,
	})
}
