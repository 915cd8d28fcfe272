package users

import (
	"net/http"

	"street-dispatch/internal/models"
	"street-dispatch/pkg/utils"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new user handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// Register creates a driver or resident account.
func (h *Handler) Register(c echo.Context) error {
	var req models.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	user, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, user)
}

func (h *Handler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	authResponse, err := h.service.Login(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, authResponse)
}

func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.service.List(c.Request().Context())
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, users)
}

func (h *Handler) UpdateUserStreet(c echo.Context) error {
	userID, err := utils.ParseIDParam(c, "userId")
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	var body struct {
		StreetID int64 `json:"street_id"`
	}
	if err := c.Bind(&body); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	user, _, err := h.service.UpdateStreet(c.Request().Context(), models.UpdateUserStreetRequest{
		UserID:   userID,
		StreetID: body.StreetID,
	})
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, user)
}
