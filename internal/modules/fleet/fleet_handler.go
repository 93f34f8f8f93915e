package fleet

import (
	"net/http"

	"firstcall/internal/models"
	"firstcall/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler exposes HTTP endpoints for the ambulance roster.
type Handler struct {
	svc ServiceInterface
}

// NewHandler constructs a Handler with the provided service.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// GetFleet returns every ambulance with its current status.
func (h *Handler) GetFleet(c echo.Context) error {
	vehicles, err := h.svc.List(c.Request().Context())
	if err != nil {
		return utils.RespondWithError(c, http.StatusInternalServerError, "failed to list ambulances")
	}
	return utils.RespondWithJSON(c, http.StatusOK, vehicles)
}

// SetVehicleStatus handles PUT /fleet/:vehicleId/status.
func (h *Handler) SetVehicleStatus(c echo.Context) error {
	vehicleID := c.Param("vehicleId")
	var req models.AmbulanceStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetStatus(c.Request().Context(), vehicleID, req); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RegisterRoutes attaches the roster routes to g.
func RegisterRoutes(g *echo.Group, h *Handler) {
	g.GET("", h.GetFleet)
	g.PUT("/:vehicleId/status", h.SetVehicleStatus)
}
