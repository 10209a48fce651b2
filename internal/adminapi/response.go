package adminapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cottonstock/invoicedesk/internal/app"
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/cottonstock/invoicedesk/internal/mailer"
	"github.com/cottonstock/invoicedesk/internal/webserver"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Response is the success envelope. Meta is only set on lists.
type Response struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type Meta struct {
	Total int64 `json:"total"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Data: data})
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Data: data})
}

func list(c echo.Context, data interface{}, total int64) error {
	return c.JSON(http.StatusOK, Response{Data: data, Meta: &Meta{Total: total}})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Error: code, Message: message, Details: details})
}

// respondError maps service errors onto status codes.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, domain.ErrUnauthorized):
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials", nil)
	case errors.Is(err, domain.ErrForbidden):
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Not allowed to access this resource", nil)
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, domain.ErrDuplicateKey):
		return fail(c, http.StatusConflict, "DUPLICATE_KEY", err.Error(), nil)
	case errors.Is(err, domain.ErrConflict):
		return fail(c, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, domain.ErrStoreUnavailable):
		zap.L().Error("store unavailable", zap.String("namespace", "api"), zap.String("path", c.Path()), zap.Error(err))
		return fail(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage is temporarily unavailable", nil)
	case errors.Is(err, mailer.ErrDisabled):
		return fail(c, http.StatusServiceUnavailable, "MAIL_DISABLED", "Email delivery is not configured", nil)
	}
	zap.L().Error("request failed", zap.String("namespace", "api"), zap.String("path", c.Path()), zap.Error(err))
	return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
}

// handleValidationError reports the failing fields of a validator error.
func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		details[field] = fe.Tag()
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", details)
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// currentUserID reads the id placed on the context by the jwt middleware.
func currentUserID(c echo.Context) int64 {
	id, _ := c.Get(webserver.UserContextKey).(int64)
	return id
}

var appContext app.AppContext

// GetAppContext returns the application the routes were registered with.
func GetAppContext(c echo.Context) app.AppContext {
	return appContext
}

// Init registers every api route against appCtx.
func Init(appCtx app.AppContext) {
	appContext = appCtx
	registerAuthRoutes()
	registerInvoiceRoutes()
	registerAIRoutes()
}
