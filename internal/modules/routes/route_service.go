package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"street-dispatch/internal/metrics"
	"street-dispatch/internal/models"
	"street-dispatch/internal/modules/lookup"
	"street-dispatch/pkg/utils"
)

// ServiceInterface is the route lifecycle.
type ServiceInterface interface {
	Schedule(ctx context.Context, req models.ScheduleRouteRequest) (*models.Route, error)
	Start(ctx context.Context, routeID int64) (*models.Route, error)
	Arrive(ctx context.Context, routeID int64) (*models.Route, error)
	Complete(ctx context.Context, routeID int64) (*models.Route, error)
	Cancel(ctx context.Context, routeID int64) (*models.Route, error)
	// SetStatus overrides the status without consulting the transition graph and
	// returns the status the route had before.
	SetStatus(ctx context.Context, routeID int64, status string) (*models.Route, models.RouteStatus, error)
	UpdateLocation(ctx context.Context, req models.LocationUpdateRequest) (*models.Route, error)
	List(ctx context.Context, filter models.RouteFilter) ([]*models.Route, error)
}

type Service struct {
	repo     RepositoryInterface
	resolver *lookup.Resolver
	notifier Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewService wires the route lifecycle. notifier may be nil.
func NewService(repo RepositoryInterface, resolver *lookup.Resolver, notifier Notifier, recorder metrics.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		notifier: notifier,
		metrics:  recorder,
		logger:   logger,
	}
}

func (s *Service) Schedule(ctx context.Context, req models.ScheduleRouteRequest) (*models.Route, error) {
	if err := utils.GetValidator().Validate(req); err != nil {
		return nil, err
	}

	driver, err := s.resolver.User(ctx, req.DriverID, models.RoleDriver)
	if err != nil {
		s.metrics.RecordOperationFailure("route.schedule")
		return nil, lookup.AsValidation("driver_id", err)
	}
	street, err := s.resolver.Street(ctx, req.StreetID)
	if err != nil {
		s.metrics.RecordOperationFailure("route.schedule")
		return nil, lookup.AsValidation("street_id", err)
	}
	at, err := utils.ParseISOTime(req.Time)
	if err != nil {
		s.metrics.RecordOperationFailure("route.schedule")
		return nil, err
	}

	route, err := s.repo.Create(ctx, &models.Route{
		DriverID:      driver.ID,
		StreetID:      street.ID,
		ScheduledTime: at,
		Status:        models.RouteScheduled,
	})
	if err != nil {
		return nil, fmt.Errorf("service.ScheduleRoute: %w", err)
	}

	s.logger.Info("route scheduled",
		slog.Int64("route_id", route.ID),
		slog.Int64("driver_id", driver.ID),
		slog.Int64("street_id", street.ID),
		slog.Time("scheduled_time", route.ScheduledTime),
	)
	return route, nil
}

func (s *Service) Start(ctx context.Context, routeID int64) (*models.Route, error) {
	return s.apply(ctx, routeID, models.RouteStart)
}

func (s *Service) Arrive(ctx context.Context, routeID int64) (*models.Route, error) {
	return s.apply(ctx, routeID, models.RouteArrive)
}

func (s *Service) Complete(ctx context.Context, routeID int64) (*models.Route, error) {
	return s.apply(ctx, routeID, models.RouteComplete)
}

func (s *Service) Cancel(ctx context.Context, routeID int64) (*models.Route, error) {
	return s.apply(ctx, routeID, models.RouteCancel)
}

// apply moves a route along the transition graph with a conditional write.
func (s *Service) apply(ctx context.Context, routeID int64, ev models.RouteEvent) (*models.Route, error) {
	route, err := s.resolver.Route(ctx, routeID)
	if err != nil {
		return nil, err
	}

	next, ok := models.NextRouteStatus(route.Status, ev)
	if !ok {
		s.metrics.RecordOperationFailure("route." + string(ev))
		return nil, s.invalidTransition(route.ID, ev, route.Status)
	}

	err = s.repo.TransitionStatus(ctx, route.ID, route.Status, next)
	if errors.Is(err, models.ErrStatusConflict) {
		// another writer moved the route first; report what it is now
		current, ferr := s.repo.FindByID(ctx, route.ID)
		if ferr != nil {
			return nil, fmt.Errorf("service.Route.%s: %w", ev, ferr)
		}
		s.metrics.RecordOperationFailure("route." + string(ev))
		return nil, s.invalidTransition(route.ID, ev, current.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("service.Route.%s: %w", ev, err)
	}

	old := route.Status
	route.Status = next
	s.afterStatusChange(ctx, route, old)
	return route, nil
}

func (s *Service) invalidTransition(id int64, ev models.RouteEvent, current models.RouteStatus) error {
	return &models.InvalidTransitionError{Entity: "route", ID: id, Action: string(ev), Current: string(current)}
}

func (s *Service) SetStatus(ctx context.Context, routeID int64, status string) (*models.Route, models.RouteStatus, error) {
	target, err := models.ParseRouteStatus(status)
	if err != nil {
		return nil, "", err
	}
	route, err := s.resolver.Route(ctx, routeID)
	if err != nil {
		return nil, "", err
	}

	if err := s.repo.SetStatus(ctx, route.ID, target); err != nil {
		return nil, "", fmt.Errorf("service.SetRouteStatus: %w", err)
	}

	old := route.Status
	route.Status = target
	s.afterStatusChange(ctx, route, old)
	return route, old, nil
}

func (s *Service) afterStatusChange(ctx context.Context, route *models.Route, old models.RouteStatus) {
	s.logger.Info("route status changed",
		slog.Int64("route_id", route.ID),
		slog.String("old_status", string(old)),
		slog.String("new_status", string(route.Status)),
	)
	s.metrics.RecordRouteTransition(string(old), string(route.Status))

	if s.notifier == nil || old == route.Status {
		return
	}
	if err := s.notifier.NotifyRouteStatus(ctx, route, old); err != nil {
		s.logger.Warn("route status notification failed",
			slog.Int64("route_id", route.ID),
			slog.String("error", err.Error()),
		)
	}
}

// UpdateLocation records the driver's position on their earliest active route.
func (s *Service) UpdateLocation(ctx context.Context, req models.LocationUpdateRequest) (*models.Route, error) {
	if err := utils.GetValidator().Validate(req); err != nil {
		return nil, err
	}
	driver, err := s.resolver.User(ctx, req.DriverID, models.RoleDriver)
	if err != nil {
		return nil, err
	}

	route, err := s.repo.FindActiveByDriver(ctx, driver.ID)
	if errors.Is(err, models.ErrNotFound) {
		s.metrics.RecordOperationFailure("route.update_location")
		return nil, fmt.Errorf("%w for driver %d", models.ErrNoActiveRoute, driver.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("service.UpdateLocation.FindActive: %w", err)
	}

	if err := s.repo.UpdateLocation(ctx, route.ID, req.Latitude, req.Longitude); err != nil {
		return nil, fmt.Errorf("service.UpdateLocation: %w", err)
	}
	lat, lng := req.Latitude, req.Longitude
	route.CurrentLat, route.CurrentLng = &lat, &lng

	s.logger.Debug("driver location updated",
		slog.Int64("driver_id", driver.ID),
		slog.Int64("route_id", route.ID),
	)
	return route, nil
}

func (s *Service) List(ctx context.Context, filter models.RouteFilter) ([]*models.Route, error) {
	routes, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service.ListRoutes: %w", err)
	}
	return routes, nil
}
