package dispatch

import (
	"net/http"

	"firstcall/internal/models"
	"firstcall/pkg/utils"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for dispatch sessions.
type Handler struct {
	svc      ServiceInterface
	upgrader websocket.Upgrader
}

// NewHandler creates a dispatch handler. A non-empty allowedOrigin restricts
// which browser origins may open the tracking stream.
func NewHandler(svc ServiceInterface, allowedOrigin string) *Handler {
	return &Handler{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

func (h *Handler) CreateSession(c echo.Context) error {
	var req models.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	snap, err := h.svc.CreateSession(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, snap)
}

func (h *Handler) GetSession(c echo.Context) error {
	snap, err := h.svc.GetSnapshot(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, snap)
}

// ReportPosition handles POST /sessions/:sessionId/position.
func (h *Handler) ReportPosition(c echo.Context) error {
	var req models.PositionReport
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ReportPosition(c.Request().Context(), c.Param("sessionId"), req); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) ReportPositionFailure(c echo.Context) error {
	var req models.PositionFailureReport
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.svc.ReportPositionFailure(c.Request().Context(), c.Param("sessionId"), req); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) SetPermission(c echo.Context) error {
	var req models.PermissionRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.svc.SetPermission(c.Request().Context(), c.Param("sessionId"), req); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Recover handles the "tap to fix" GPS retry.
func (h *Handler) Recover(c echo.Context) error {
	var req models.RecoverRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	snap, err := h.svc.Recover(c.Request().Context(), c.Param("sessionId"), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, snap)
}

func (h *Handler) Cancel(c echo.Context) error {
	snap, err := h.svc.Cancel(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, snap)
}

func (h *Handler) CallDriver(c echo.Context) error {
	if err := h.svc.CallDriver(c.Request().Context(), c.Param("sessionId")); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

// Dismiss handles DELETE /sessions/:sessionId, sent when the tracking view closes.
func (h *Handler) Dismiss(c echo.Context) error {
	if err := h.svc.Dismiss(c.Request().Context(), c.Param("sessionId")); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RegisterRoutes attaches the session routes to the provided groups.
func RegisterRoutes(sessions, ws *echo.Group, h *Handler) {
	sessions.POST("", h.CreateSession)
	sessions.GET("/:sessionId", h.GetSession)
	sessions.POST("/:sessionId/position", h.ReportPosition)
	sessions.POST("/:sessionId/position/failure", h.ReportPositionFailure)
	sessions.PUT("/:sessionId/permission", h.SetPermission)
	sessions.POST("/:sessionId/recover", h.Recover)
	sessions.POST("/:sessionId/cancel", h.Cancel)
	sessions.POST("/:sessionId/call", h.CallDriver)
	sessions.DELETE("/:sessionId", h.Dismiss)

	ws.GET("/sessions/:sessionId/track", h.StreamSession)
}
