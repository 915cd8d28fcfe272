package routes

import (
	"context"
	"net/http"

	"street-dispatch/internal/models"
	"street-dispatch/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for routes.
type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ScheduleRoute(c echo.Context) error {
	var req models.ScheduleRouteRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	route, err := h.svc.Schedule(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, route)
}

func (h *Handler) ListRoutes(c echo.Context) error {
	var filter models.RouteFilter
	if raw := c.QueryParam("status"); raw != "" {
		status, err := models.ParseRouteStatus(raw)
		if err != nil {
			return utils.HandleServiceError(c, err)
		}
		filter.Status = &status
	}

	routes, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, routes)
}

func (h *Handler) SetRouteStatus(c echo.Context) error {
	routeID, err := utils.ParseIDParam(c, "routeId")
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	var req models.SetRouteStatusRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	route, old, err := h.svc.SetStatus(c.Request().Context(), routeID, req.Status)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{
		"route":      route,
		"old_status": old,
	})
}

func (h *Handler) StartRoute(c echo.Context) error    { return h.lifecycle(c, h.svc.Start) }
func (h *Handler) ArriveRoute(c echo.Context) error   { return h.lifecycle(c, h.svc.Arrive) }
func (h *Handler) CompleteRoute(c echo.Context) error { return h.lifecycle(c, h.svc.Complete) }
func (h *Handler) CancelRoute(c echo.Context) error   { return h.lifecycle(c, h.svc.Cancel) }

func (h *Handler) lifecycle(c echo.Context, action func(ctx context.Context, routeID int64) (*models.Route, error)) error {
	routeID, err := utils.ParseIDParam(c, "routeId")
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	route, err := action(c.Request().Context(), routeID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, route)
}

// UpdateMyLocation takes the driver id from the token.
func (h *Handler) UpdateMyLocation(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.LocationUpdateRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	req.DriverID = userID

	route, err := h.svc.UpdateLocation(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, route)
}
