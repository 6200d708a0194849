package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe. It is mounted outside /api.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Index returns the service banner.
func Index(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"message": "Multi-provider auth service is running",
		"endpoints": map[string]string{
			"health": "/health",
			"docs":   "/swagger/index.html",
		},
	})
}
