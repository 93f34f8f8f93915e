package api

import (
	"net/http"

	"firstcall/internal/modules/dispatch"
	"firstcall/internal/modules/fleet"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all the API endpoints for the application.
func SetupRoutes(
	e *echo.Echo,
	dispatchHandler *dispatch.Handler,
	fleetHandler *fleet.Handler,
) {
	// --- Public Routes ---
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Welcome to FirstCall emergency dispatch!"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Dispatch Sessions & Live Tracking ---
	dispatch.RegisterRoutes(e.Group("/sessions"), e.Group("/ws"), dispatchHandler)

	// --- Fleet Roster ---
	fleet.RegisterRoutes(e.Group("/fleet"), fleetHandler)
}
