package utils

import (
	"errors"
	"net/http"
	"sync"

	"firstcall/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator adapts go-playground/validator to echo.Validator.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate checks the struct tags of i.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

var (
	validatorOnce sync.Once
	instance      *CustomValidator
)

// GetValidator returns the shared request validator.
func GetValidator() *CustomValidator {
	validatorOnce.Do(func() {
		instance = &CustomValidator{validator: validator.New()}
	})
	return instance
}

// RespondWithError writes a JSON error body.
func RespondWithError(c echo.Context, code int, message string) error {
	return c.JSON(code, models.ErrorResponse{Message: message})
}

// RespondWithJSON writes payload as JSON.
func RespondWithJSON(c echo.Context, code int, payload interface{}) error {
	return c.JSON(code, payload)
}

// HandleServiceError maps service-layer sentinel errors to HTTP responses.
// Anything unrecognised is logged and reported as a 500.
func HandleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		return RespondWithError(c, http.StatusNotFound, "session not found")
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, "resource not found")
	case errors.Is(err, models.ErrSessionTerminal):
		return RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrNotRecoverable):
		return RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrNotConfirmed):
		return RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrPermissionDenied):
		return RespondWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrNoAvailableVehicle):
		return RespondWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		c.Logger().Errorf("unhandled service error: %v", err)
		return RespondWithError(c, http.StatusInternalServerError, "internal server error")
	}
}
