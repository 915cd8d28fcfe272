package requests

import (
	"net/http"

	"street-dispatch/internal/models"
	"street-dispatch/pkg/utils"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// OpenRequest opens a stop request for the calling resident on :routeId.
func (h *Handler) OpenRequest(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}
	routeID, err := utils.ParseIDParam(c, "routeId")
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	var req models.OpenRequestRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	req.ResidentID = userID
	req.RouteID = routeID

	created, err := h.svc.Open(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, created)
}

func (h *Handler) ManageRequest(c echo.Context) error {
	requestID, err := utils.ParseIDParam(c, "requestId")
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	var body models.ManageRequestRequest
	if err := c.Bind(&body); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	req, old, err := h.svc.Manage(c.Request().Context(), requestID, body.Action)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{
		"request":    req,
		"old_status": old,
	})
}
