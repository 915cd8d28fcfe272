package models

import (
	"fmt"
	"strings"
	"time"
)

// RouteStatus is the lifecycle state of a route.
type RouteStatus string

const (
	RouteScheduled RouteStatus = "scheduled"
	RouteOnTheWay  RouteStatus = "on_the_way"
	RouteArrived   RouteStatus = "arrived"
	RouteCompleted RouteStatus = "completed"
	RouteCancelled RouteStatus = "cancelled"
)

// RouteStatuses lists every route status in lifecycle order.
var RouteStatuses = []RouteStatus{RouteScheduled, RouteOnTheWay, RouteArrived, RouteCompleted, RouteCancelled}

// ParseRouteStatus accepts the canonical names plus the legacy "on the way" spelling.
func ParseRouteStatus(s string) (RouteStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, " ", "_")
	norm = strings.ReplaceAll(norm, "-", "_")
	for _, st := range RouteStatuses {
		if string(st) == norm {
			return st, nil
		}
	}
	return "", NewValidationError("status", fmt.Sprintf("%q is not a route status", s))
}

// IsTerminal reports whether no further lifecycle action applies.
func (s RouteStatus) IsTerminal() bool {
	return s == RouteCompleted || s == RouteCancelled
}

// IsActive reports whether the driver is out on the route; location updates are only
// accepted in these states.
func (s RouteStatus) IsActive() bool {
	return s == RouteOnTheWay || s == RouteArrived
}

// AcceptsRequests reports whether residents may still open stop requests on the route.
func (s RouteStatus) AcceptsRequests() bool {
	return s == RouteScheduled || s == RouteOnTheWay
}

// ActiveRouteStatuses are the statuses in which a route counts as the driver's current one.
var ActiveRouteStatuses = []RouteStatus{RouteOnTheWay, RouteArrived}

// RouteEvent is a lifecycle action applied to a route.
type RouteEvent string

const (
	RouteStart    RouteEvent = "start"
	RouteArrive   RouteEvent = "arrive"
	RouteComplete RouteEvent = "complete"
	RouteCancel   RouteEvent = "cancel"
)

type routeTransition struct {
	from []RouteStatus
	to   RouteStatus
}

var routeTransitions = map[RouteEvent]routeTransition{
	RouteStart:    {from: []RouteStatus{RouteScheduled}, to: RouteOnTheWay},
	RouteArrive:   {from: []RouteStatus{RouteOnTheWay}, to: RouteArrived},
	RouteComplete: {from: []RouteStatus{RouteArrived}, to: RouteCompleted},
	RouteCancel:   {from: []RouteStatus{RouteScheduled, RouteOnTheWay, RouteArrived}, to: RouteCancelled},
}

// NextRouteStatus returns the status an event leads to from current, and false when
// the event is not allowed from current.
func NextRouteStatus(current RouteStatus, ev RouteEvent) (RouteStatus, bool) {
	t, ok := routeTransitions[ev]
	if !ok {
		return "", false
	}
	for _, from := range t.from {
		if from == current {
			return t.to, true
		}
	}
	return "", false
}

// Route is a driver's scheduled visit to a street.
type Route struct {
	ID            int64       `json:"id"`
	DriverID      int64       `json:"driver_id"`
	StreetID      int64       `json:"street_id"`
	ScheduledTime time.Time   `json:"scheduled_time"`
	Status        RouteStatus `json:"status"`
	CurrentLat    *float64    `json:"current_lat,omitempty"`
	CurrentLng    *float64    `json:"current_lng,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// RouteFilter narrows a route listing. A nil Status lists every route.
type RouteFilter struct {
	Status *RouteStatus
}

// ScheduleRouteRequest is the input for scheduling a route. Time is an ISO-8601 string.
type ScheduleRouteRequest struct {
	DriverID int64  `json:"driver_id" validate:"required,gt=0"`
	StreetID int64  `json:"street_id" validate:"required,gt=0"`
	Time     string `json:"time" validate:"required"`
}

// LocationUpdateRequest carries a driver's current position.
type LocationUpdateRequest struct {
	DriverID  int64   `json:"driver_id" validate:"required,gt=0"`
	Latitude  float64 `json:"lat" validate:"latitude"`
	Longitude float64 `json:"lng" validate:"longitude"`
}

// SetRouteStatusRequest is the administrative override body.
type SetRouteStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
