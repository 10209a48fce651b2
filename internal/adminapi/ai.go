package adminapi

import (
	"net/http"

	"github.com/cottonstock/invoicedesk/internal/invoice"
	"github.com/cottonstock/invoicedesk/internal/webserver"
	"github.com/cottonstock/invoicedesk/pkg/common"
	"github.com/labstack/echo/v4"
)

type parseTextPayload struct {
	Text string `json:"text" validate:"required,max=10000"`
}

// invoiceId arrives as a string or a number depending on the client.
type generateReminderPayload struct {
	InvoiceID interface{} `json:"invoiceId"`
}

func registerAIRoutes() {
	webserver.ApiPOST("/ai/parse-text", parseText)
	webserver.ApiPOST("/ai/generate-reminder", generateReminder)
	webserver.ApiGET("/ai/dashboard-summary", dashboardSummary)
}

func parseText(c echo.Context) error {
	var payload parseTextPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	parsed, err := GetAppContext(c).Assistant().ParseText(c.Request().Context(), payload.Text)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, parsed)
}

func generateReminder(c echo.Context) error {
	var payload generateReminderPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	id, err := common.ParseInt64(payload.InvoiceID)
	if err != nil || id <= 0 {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invoice ID is required", nil)
	}

	appCtx := GetAppContext(c)
	ctx := c.Request().Context()
	inv, err := appCtx.Invoices().GetByID(ctx, id, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	reminder, err := appCtx.Assistant().DraftReminder(ctx, inv, inv.BillFrom.BusinessName)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, reminder)
}

func dashboardSummary(c echo.Context) error {
	appCtx := GetAppContext(c)
	ctx := c.Request().Context()
	uid := currentUserID(c)

	rows, err := appCtx.Invoices().ListByOwner(ctx, uid, invoice.AllDates)
	if err != nil {
		return respondError(c, err)
	}
	insights, err := appCtx.Assistant().DashboardInsights(ctx, invoice.Summarize(rows), rows)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, insights)
}
