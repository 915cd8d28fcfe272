package utils

import (
	"errors"
	"net/http"
	"strconv"

	"street-dispatch/internal/models"

	"github.com/labstack/echo/v4"
)

// RespondWithJSON writes payload with the given status code.
func RespondWithJSON(c echo.Context, code int, payload interface{}) error {
	return c.JSON(code, payload)
}

// RespondWithError writes a models.ErrorResponse.
func RespondWithError(c echo.Context, code int, message string) error {
	return c.JSON(code, models.ErrorResponse{Message: message})
}

// HandleServiceError maps service errors onto HTTP status codes.
func HandleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrValidation):
		return RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrRoleMismatch):
		return RespondWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrConflict):
		return RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidCredentials):
		return RespondWithError(c, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, models.ErrNoActiveRoute), errors.Is(err, models.ErrNoStreetAssigned):
		return RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	}
	c.Logger().Error("unhandled service error: ", err)
	return RespondWithError(c, http.StatusInternalServerError, "Internal server error")
}

// ExtractUserInfo reads the identity the JWT middleware stored on the context.
func ExtractUserInfo(c echo.Context) (int64, models.Role, error) {
	userID, ok := c.Get("userID").(int64)
	if !ok || userID == 0 {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	role, _ := c.Get("userRole").(models.Role)
	return userID, role, nil
}

// ParseIDParam reads a positive integer path parameter.
func ParseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}
