// Package reports builds read-only views over routes, requests and users.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"street-dispatch/internal/models"
	"street-dispatch/internal/modules/lookup"
)

type UserReader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

type StreetReader interface {
	FindByID(ctx context.Context, id int64) (*models.Street, error)
}

type RouteReader interface {
	FindByID(ctx context.Context, id int64) (*models.Route, error)
	List(ctx context.Context, filter models.RouteFilter) ([]*models.Route, error)
	ListByStreetFrom(ctx context.Context, streetID int64, from time.Time) ([]*models.Route, error)
	FindActiveByDriver(ctx context.Context, driverID int64) (*models.Route, error)
	NextScheduled(ctx context.Context, from time.Time) (*models.Route, error)
}

type RequestReader interface {
	ListByRoute(ctx context.Context, routeID int64) ([]*models.Request, error)
}

// RouteView is a route with its driver and street names resolved.
type RouteView struct {
	Route      *models.Route `json:"route"`
	DriverName string        `json:"driver_name"`
	StreetName string        `json:"street_name"`
}

// StopView is a stop request with its resident's name resolved.
type StopView struct {
	Request      *models.Request `json:"request"`
	ResidentName string          `json:"resident_name"`
}

type Inbox struct {
	Resident *models.User   `json:"resident"`
	Street   *models.Street `json:"street"`
	Routes   []RouteView    `json:"routes"`
}

type DriverStatus struct {
	Driver  *models.User `json:"driver"`
	Current *RouteView   `json:"current,omitempty"`
	Next    *RouteView   `json:"next,omitempty"`
}

type ServiceInterface interface {
	Inbox(ctx context.Context, residentID int64) (*Inbox, error)
	DriverStatus(ctx context.Context, driverID int64) (*DriverStatus, error)
	Routes(ctx context.Context, filter models.RouteFilter) ([]RouteView, error)
	Stops(ctx context.Context, routeID int64) (*models.Route, []StopView, error)
	Users(ctx context.Context) ([]*models.User, error)
}

type Service struct {
	users    UserReader
	streets  StreetReader
	routes   RouteReader
	requests RequestReader
	resolver *lookup.Resolver
	now      func() time.Time
}

func NewService(users UserReader, streets StreetReader, routes RouteReader, requests RequestReader) *Service {
	return &Service{
		users:    users,
		streets:  streets,
		routes:   routes,
		requests: requests,
		resolver: lookup.NewResolver(users, streets, routes),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock that decides which routes are upcoming.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Inbox lists routes on the resident's street scheduled from now on.
func (s *Service) Inbox(ctx context.Context, residentID int64) (*Inbox, error) {
	resident, err := s.resolver.User(ctx, residentID, models.RoleResident)
	if err != nil {
		return nil, err
	}
	if resident.StreetID == nil {
		return nil, fmt.Errorf("resident %d (%s): %w", resident.ID, resident.Username, models.ErrNoStreetAssigned)
	}
	street, err := s.resolver.Street(ctx, *resident.StreetID)
	if err != nil {
		return nil, err
	}

	routes, err := s.routes.ListByStreetFrom(ctx, street.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("service.Inbox: %w", err)
	}
	views, err := s.decorate(ctx, routes)
	if err != nil {
		return nil, err
	}
	return &Inbox{Resident: resident, Street: street, Routes: views}, nil
}

// DriverStatus reports the driver's active route and, if it is theirs and
// different from the active one, the next scheduled route overall.
func (s *Service) DriverStatus(ctx context.Context, driverID int64) (*DriverStatus, error) {
	driver, err := s.resolver.User(ctx, driverID, models.RoleDriver)
	if err != nil {
		return nil, err
	}
	status := &DriverStatus{Driver: driver}

	current, err := s.routes.FindActiveByDriver(ctx, driver.ID)
	switch {
	case err == nil:
		v, err := s.view(ctx, current)
		if err != nil {
			return nil, err
		}
		status.Current = &v
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("service.DriverStatus.Current: %w", err)
	}

	next, err := s.routes.NextScheduled(ctx, s.now())
	switch {
	case err == nil:
		if next.DriverID != driver.ID || (current != nil && next.ID == current.ID) {
			break
		}
		v, err := s.view(ctx, next)
		if err != nil {
			return nil, err
		}
		status.Next = &v
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("service.DriverStatus.Next: %w", err)
	}

	return status, nil
}

func (s *Service) Routes(ctx context.Context, filter models.RouteFilter) ([]RouteView, error) {
	routes, err := s.routes.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service.Routes: %w", err)
	}
	return s.decorate(ctx, routes)
}

func (s *Service) Stops(ctx context.Context, routeID int64) (*models.Route, []StopView, error) {
	route, err := s.resolver.Route(ctx, routeID)
	if err != nil {
		return nil, nil, err
	}
	reqs, err := s.requests.ListByRoute(ctx, route.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("service.Stops: %w", err)
	}

	names := map[int64]string{}
	stops := make([]StopView, 0, len(reqs))
	for _, r := range reqs {
		name, ok := names[r.ResidentID]
		if !ok {
			name = s.username(ctx, r.ResidentID)
			names[r.ResidentID] = name
		}
		stops = append(stops, StopView{Request: r, ResidentName: name})
	}
	return route, stops, nil
}

func (s *Service) Users(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.Users: %w", err)
	}
	return users, nil
}

func (s *Service) decorate(ctx context.Context, routes []*models.Route) ([]RouteView, error) {
	views := make([]RouteView, 0, len(routes))
	for _, r := range routes {
		v, err := s.view(ctx, r)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) view(ctx context.Context, r *models.Route) (RouteView, error) {
	v := RouteView{Route: r, DriverName: s.username(ctx, r.DriverID)}
	street, err := s.streets.FindByID(ctx, r.StreetID)
	switch {
	case err == nil:
		v.StreetName = street.Name
	case errors.Is(err, models.ErrNotFound):
		v.StreetName = fmt.Sprintf("street #%d", r.StreetID)
	default:
		return v, fmt.Errorf("service.RouteView: %w", err)
	}
	return v, nil
}

// username falls back to "#id" for dangling references.
func (s *Service) username(ctx context.Context, id int64) string {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return fmt.Sprintf("#%d", id)
	}
	return u.Username
}
