package models

import (
	"fmt"
	"strings"
	"time"
)

// RequestStatus is the lifecycle state of a stop request.
type RequestStatus string

const (
	RequestRequested RequestStatus = "requested"
	RequestOnTheWay  RequestStatus = "on_the_way"
	// RequestAvailable is what a driver's decline leads to: the stop is open again.
	RequestAvailable RequestStatus = "available"
	RequestCompleted RequestStatus = "completed"
	RequestCancelled RequestStatus = "cancelled"
)

// RequestStatuses lists every request status.
var RequestStatuses = []RequestStatus{RequestRequested, RequestOnTheWay, RequestAvailable, RequestCompleted, RequestCancelled}

// ParseRequestStatus accepts the canonical names plus the legacy "on the way" spelling.
func ParseRequestStatus(s string) (RequestStatus, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	for _, st := range RequestStatuses {
		if string(st) == norm {
			return st, nil
		}
	}
	return "", NewValidationError("status", fmt.Sprintf("%q is not a request status", s))
}

// IsTerminal reports whether the request is completed or cancelled.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestCompleted || s == RequestCancelled
}

// RequestAction is what a driver or dispatcher does with a stop request.
type RequestAction string

const (
	ActionAccept  RequestAction = "accept"
	ActionDecline RequestAction = "decline"
	ActionFulfill RequestAction = "fulfill"
	ActionCancel  RequestAction = "cancel"
)

// RequestActions lists every action in the order they are documented.
var RequestActions = []RequestAction{ActionAccept, ActionDecline, ActionFulfill, ActionCancel}

var actionTargets = map[RequestAction]RequestStatus{
	ActionAccept:  RequestOnTheWay,
	ActionDecline: RequestAvailable,
	ActionFulfill: RequestCompleted,
	ActionCancel:  RequestCancelled,
}

// Allowed source statuses per action when strict guarding is on.
var actionSources = map[RequestAction][]RequestStatus{
	ActionAccept:  {RequestRequested, RequestAvailable},
	ActionDecline: {RequestRequested, RequestOnTheWay},
	ActionFulfill: {RequestOnTheWay},
	ActionCancel:  {RequestRequested, RequestOnTheWay, RequestAvailable},
}

// ParseRequestAction accepts an action name case-insensitively.
func ParseRequestAction(s string) (RequestAction, error) {
	a := RequestAction(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := actionTargets[a]; !ok {
		return "", NewValidationError("action", fmt.Sprintf("%q is not one of accept, decline, fulfill, cancel", s))
	}
	return a, nil
}

// Target is the status the action always maps to.
func (a RequestAction) Target() RequestStatus {
	return actionTargets[a]
}

// AllowedFrom reports whether strict guarding permits the action from current.
func (a RequestAction) AllowedFrom(current RequestStatus) bool {
	for _, st := range actionSources[a] {
		if st == current {
			return true
		}
	}
	return false
}

// Request is a resident's ask for a stop on a route.
type Request struct {
	ID         int64         `json:"id"`
	RouteID    int64         `json:"route_id"`
	ResidentID int64         `json:"resident_id"`
	Notes      *string       `json:"notes,omitempty"`
	Quantity   *int          `json:"quantity,omitempty"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}

// OpenRequestRequest is the input for a resident opening a stop request.
type OpenRequestRequest struct {
	ResidentID int64  `json:"resident_id" validate:"required,gt=0"`
	RouteID    int64  `json:"route_id" validate:"required,gt=0"`
	Quantity   *int   `json:"quantity" validate:"required,gte=0,max=2147483647"`
	Notes      string `json:"notes,omitempty" validate:"max=500"`
}

// ManageRequestRequest is the body for acting on a request.
type ManageRequestRequest struct {
	Action string `json:"action" validate:"required"`
}
