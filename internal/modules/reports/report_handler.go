package reports

import (
	"net/http"

	"street-dispatch/pkg/utils"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// GetMyInbox lists upcoming routes on the calling resident's street.
func (h *Handler) GetMyInbox(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}
	inbox, err := h.svc.Inbox(c.Request().Context(), userID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, inbox)
}

// GetMyStatus reports the calling driver's current and next route.
func (h *Handler) GetMyStatus(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}
	status, err := h.svc.DriverStatus(c.Request().Context(), userID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, status)
}

func (h *Handler) ListStops(c echo.Context) error {
	routeID, err := utils.ParseIDParam(c, "routeId")
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	route, stops, err := h.svc.Stops(c.Request().Context(), routeID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{
		"route": route,
		"stops": stops,
	})
}
