package router

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	echoSwagger "github.com/swaggo/echo-swagger"

	"authservice/internal/config"
	apperrors "authservice/internal/errors"
	"authservice/internal/handler"
	"authservice/internal/metrics"
	"authservice/internal/middleware"
	"authservice/internal/model"
	"authservice/internal/ratelimit"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth  *handler.AuthHandler
	OAuth *handler.OAuthHandler
	User  *handler.UserHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	gate *middleware.Gate,
	limiter *ratelimit.Limiter,
	gatherer prometheus.Gatherer,
	h Handlers,
) {
	e.HTTPErrorHandler = apperrors.Handler(cfg.IsProduction())
	e.Validator = NewValidator()

	e.IPExtractor = echo.ExtractIPDirect()
	if cfg.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	}

	e.Use(echomw.RequestID())
	e.Use(requestLogger())
	e.Use(echomw.Recover())

	e.GET("/", handler.Index)
	e.GET("/health", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	throttle := middleware.RateLimit(limiter, cfg.RateLimitMax, cfg.RateLimitWindow)

	api := e.Group("/api")

	// Public routes
	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Auth.Register, throttle)
	authGroup.POST("/login", h.Auth.Login, throttle)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.GET("/:provider", h.OAuth.Begin, throttle)
	authGroup.GET("/:provider/callback", h.OAuth.Callback)

	// Secured routes (require an access token)
	users := api.Group("/users")
	users.GET("/me", gate.Protected(h.User.GetMe))
	users.PATCH("/me", gate.Protected(h.User.UpdateMe))
	users.GET("", gate.RequireRole(model.RoleAdmin, h.User.ListUsers))
}

func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				if v.Status >= 500 {
					level = slog.LevelError
				}
			}
			slog.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Validation("Invalid request body")
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "max":
		return apperrors.Validation(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	case "required":
		return apperrors.Validation(fmt.Sprintf("%s is required", fe.Field()))
	default:
		return apperrors.Validation(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}
