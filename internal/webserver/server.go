package webserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cottonstock/invoicedesk/config"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// UserContextKey holds the authenticated user id (int64) on the echo context.
const UserContextKey = "user"

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	Parse(raw string) (int64, error)
}

type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
}

var (
	routesMu sync.Mutex
	routes   = map[string]route{}
	order    []string

	// public api paths that bypass the jwt middleware
	publicMu sync.Mutex
	public   = map[string]bool{}
)

func register(method, path string, h echo.HandlerFunc) {
	routesMu.Lock()
	defer routesMu.Unlock()
	key := method + " " + path
	if _, ok := routes[key]; !ok {
		order = append(order, key)
	}
	routes[key] = route{method: method, path: path, handler: h}
}

// ApiGET registers a handler under /api.
func ApiGET(path string, h echo.HandlerFunc) { register(http.MethodGet, path, h) }

func ApiPOST(path string, h echo.HandlerFunc) { register(http.MethodPost, path, h) }

func ApiPUT(path string, h echo.HandlerFunc) { register(http.MethodPut, path, h) }

func ApiDELETE(path string, h echo.HandlerFunc) { register(http.MethodDelete, path, h) }

// Public marks an /api path as reachable without a token.
func Public(path string) {
	publicMu.Lock()
	defer publicMu.Unlock()
	public["/api"+path] = true
}

func isPublic(path string) bool {
	publicMu.Lock()
	defer publicMu.Unlock()
	return public[path]
}

type Server struct {
	root     *echo.Echo
	addr     string
	registry *prometheus.Registry
}

// NewServer builds the echo instance and mounts every registered route.
func NewServer(cfg *config.AppConfig, tokens TokenParser, registry *prometheus.Registry) *Server {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Validator = &structValidator{validate: validator.New()}
	e.HTTPErrorHandler = errorHandler
	if cfg.System.Debug {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.INFO)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("2M"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("namespace", "web"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zap.L().Debug("request", fields...)
			return nil
		},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "invoicedesk",
		Registerer: registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "InvoiceDesk API is running"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "time": time.Now()})
	})
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: registry}))

	api := e.Group("/api")
	api.Use(echojwt.WithConfig(echojwt.Config{
		Skipper: func(c echo.Context) bool {
			return isPublic(c.Path())
		},
		ContextKey: UserContextKey,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			uid, err := tokens.Parse(auth)
			if err != nil {
				return nil, err
			}
			return uid, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, map[string]interface{}{
				"error":   "UNAUTHORIZED",
				"message": "Missing or invalid token",
			})
		},
	}))

	routesMu.Lock()
	for _, key := range order {
		r := routes[key]
		api.Add(r.method, r.path, r.handler)
	}
	routesMu.Unlock()

	return &Server{
		root:     e,
		addr:     fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		registry: registry,
	}
}

func (s *Server) Echo() *echo.Echo {
	return s.root
}

func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Listen blocks until the server stops. A graceful shutdown returns nil.
func (s *Server) Listen() error {
	zap.S().Infof("Starting web server at %s", s.addr)
	err := s.root.Start(s.addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}

type structValidator struct {
	validate *validator.Validate
}

func (v *structValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body: "+err.Error()).SetInternal(err)
	}
	return nil
}

// errorHandler renders framework errors (unknown route, bad method, bad
// body) in the api envelope.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	}
	errCode := strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))
	if code >= http.StatusInternalServerError {
		zap.L().Error("unhandled error", zap.String("namespace", "web"), zap.String("path", c.Path()), zap.Error(err))
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]interface{}{"error": errCode, "message": message})
}
