package api

import (
	"log/slog"
	"net/http"

	"street-dispatch/internal/api/middleware"
	"street-dispatch/internal/metrics"
	"street-dispatch/internal/models"
	"street-dispatch/internal/modules/reports"
	"street-dispatch/internal/modules/requests"
	"street-dispatch/internal/modules/routes"
	"street-dispatch/internal/modules/streets"
	"street-dispatch/internal/modules/users"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Handlers groups the module handlers the router mounts.
type Handlers struct {
	Users    *users.Handler
	Streets  *streets.Handler
	Routes   *routes.Handler
	Requests *requests.Handler
	Reports  *reports.Handler
}

// SetupRoutes sets up all the API endpoints for the application.
func SetupRoutes(e *echo.Echo, h Handlers, jwtSecret string, gatherer prometheus.Gatherer, logger *slog.Logger) {
	authMiddleware := middleware.JWTMAuth(jwtSecret, logger)
	driverOnly := middleware.RoleRequired(models.RoleDriver)
	residentOnly := middleware.RoleRequired(models.RoleResident)

	// --- Public Routes ---
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))

	e.POST("/auth/login", h.Users.Login)
	e.POST("/users", h.Users.Register)

	// --- Authenticated Routes ---
	userGroup := e.Group("/users", authMiddleware)
	{
		userGroup.GET("", h.Users.ListUsers)
		userGroup.PUT("/:userId/street", h.Users.UpdateUserStreet)
	}

	streetGroup := e.Group("/streets", authMiddleware)
	{
		streetGroup.GET("", h.Streets.ListStreets)
		streetGroup.POST("", h.Streets.AddStreet)
	}

	routeGroup := e.Group("/routes", authMiddleware)
	{
		routeGroup.GET("", h.Routes.ListRoutes)
		routeGroup.POST("", h.Routes.ScheduleRoute)
		routeGroup.PUT("/:routeId/status", h.Routes.SetRouteStatus)
		routeGroup.GET("/:routeId/stops", h.Reports.ListStops)

		routeGroup.POST("/:routeId/start", h.Routes.StartRoute, driverOnly)
		routeGroup.POST("/:routeId/arrive", h.Routes.ArriveRoute, driverOnly)
		routeGroup.POST("/:routeId/complete", h.Routes.CompleteRoute, driverOnly)
		routeGroup.POST("/:routeId/cancel", h.Routes.CancelRoute, driverOnly)

		routeGroup.POST("/:routeId/requests", h.Requests.OpenRequest, residentOnly)
	}

	e.PUT("/requests/:requestId", h.Requests.ManageRequest, authMiddleware, driverOnly)

	driverGroup := e.Group("/drivers/me", authMiddleware, driverOnly)
	{
		driverGroup.PUT("/location", h.Routes.UpdateMyLocation)
		driverGroup.GET("/status", h.Reports.GetMyStatus)
	}

	e.GET("/residents/me/inbox", h.Reports.GetMyInbox, authMiddleware, residentOnly)
}
