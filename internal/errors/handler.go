package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
)

// Handler returns the single top-level echo error handler. Unexpected faults
// are logged, reported to Sentry and rendered as a generic 500; outside
// production the original error text is attached as detail.
func Handler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		httpErr := resolve(err, c)
		resp := httpErr.ToErrorResponse()

		if httpErr.StatusCode >= http.StatusInternalServerError {
			slog.Error("request failed",
				slog.String("method", c.Request().Method),
				slog.String("uri", c.Request().RequestURI),
				slog.Int("status", httpErr.StatusCode),
				slog.String("error", err.Error()),
			)
			sentry.CaptureException(err)
			if !production {
				resp.Detail = err.Error()
			}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(httpErr.StatusCode)
		} else {
			writeErr = c.JSON(httpErr.StatusCode, resp)
		}
		if writeErr != nil {
			slog.Warn("write error response", slog.String("error", writeErr.Error()))
		}
	}
}

func resolve(err error, c echo.Context) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		switch echoErr.Code {
		case http.StatusNotFound:
			return NewHTTPError(http.StatusNotFound, fmt.Sprintf("Can't find %s on this server!", c.Request().RequestURI), "NOT_FOUND")
		case http.StatusInternalServerError:
			return MapErrorToHTTP(err)
		default:
			msg := http.StatusText(echoErr.Code)
			if s, ok := echoErr.Message.(string); ok && s != "" {
				msg = s
			}
			code := strings.ToUpper(strings.ReplaceAll(http.StatusText(echoErr.Code), " ", "_"))
			return NewHTTPError(echoErr.Code, msg, code)
		}
	}

	return MapErrorToHTTP(err)
}
