package adminapi

import (
	"net/http"

	"github.com/cottonstock/invoicedesk/internal/auth"
	"github.com/cottonstock/invoicedesk/internal/webserver"
	"github.com/labstack/echo/v4"
)

type registerPayload struct {
	Name          string `json:"name" validate:"required,max=128"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	BusinessName  string `json:"businessName" validate:"omitempty,max=200"`
	BusinessEmail string `json:"businessEmail" validate:"omitempty,email"`
	BusinessPhone string `json:"businessPhone" validate:"omitempty,max=32"`
	Address       string `json:"address" validate:"omitempty,max=500"`
	Phone         string `json:"phone" validate:"omitempty,max=32"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// profilePayload relaxes validation rules for partial updates
type profilePayload struct {
	Name          string `json:"name" validate:"omitempty,max=128"`
	Email         string `json:"email" validate:"omitempty,email"`
	Password      string `json:"password" validate:"omitempty,min=6"`
	BusinessName  string `json:"businessName" validate:"omitempty,max=200"`
	BusinessEmail string `json:"businessEmail" validate:"omitempty,email"`
	BusinessPhone string `json:"businessPhone" validate:"omitempty,max=32"`
	Address       string `json:"address" validate:"omitempty,max=500"`
	Phone         string `json:"phone" validate:"omitempty,max=32"`
}

func registerAuthRoutes() {
	webserver.ApiPOST("/auth/register", register)
	webserver.ApiPOST("/auth/login", login)
	webserver.ApiGET("/auth/me", getProfile)
	webserver.ApiPUT("/auth/me", updateProfile)
	webserver.Public("/auth/register")
	webserver.Public("/auth/login")
}

func register(c echo.Context) error {
	var payload registerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	session, err := GetAppContext(c).Auth().Register(c.Request().Context(), auth.RegisterInput(payload))
	if err != nil {
		return respondError(c, err)
	}
	return created(c, session)
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	session, err := GetAppContext(c).Auth().Login(c.Request().Context(), payload.Email, payload.Password)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, session)
}

func getProfile(c echo.Context) error {
	user, err := GetAppContext(c).Auth().Profile(c.Request().Context(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, user)
}

func updateProfile(c echo.Context) error {
	var payload profilePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	user, err := GetAppContext(c).Auth().UpdateProfile(c.Request().Context(), currentUserID(c), auth.ProfileInput(payload))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, user)
}
