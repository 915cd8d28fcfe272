// Package dataimport loads streets, users, routes and requests from a JSON document,
// matching existing rows by natural key so the same file can be applied repeatedly.
package dataimport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"street-dispatch/internal/models"
	"street-dispatch/pkg/utils"
)

type Document struct {
	Streets  []StreetRecord  `json:"streets" validate:"dive"`
	Users    []UserRecord    `json:"users" validate:"dive"`
	Routes   []RouteRecord   `json:"routes" validate:"dive"`
	Requests []RequestRecord `json:"requests" validate:"dive"`
}

type StreetRecord struct {
	Name string `json:"name" validate:"required,max=200"`
}

type UserRecord struct {
	Username string `json:"username" validate:"required,max=20"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role" validate:"required,oneof=driver resident"`
	Street   string `json:"street,omitempty"`
}

// RouteKey identifies a route by driver username, street name and scheduled time.
type RouteKey struct {
	Driver        string `json:"driver" validate:"required"`
	Street        string `json:"street" validate:"required"`
	ScheduledTime string `json:"scheduled_time" validate:"required"`
}

type RouteRecord struct {
	RouteKey
	Status string `json:"status,omitempty"`
}

type RequestRecord struct {
	Resident string   `json:"resident" validate:"required"`
	Route    RouteKey `json:"route" validate:"required"`
	Quantity *int     `json:"quantity,omitempty" validate:"omitempty,gte=0,max=2147483647"`
	Notes    string   `json:"notes,omitempty" validate:"max=500"`
	Status   string   `json:"status,omitempty"`
}

// Load reads and decodes a document. Unknown fields are rejected.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataimport.Load: %w", err)
	}
	return Decode(raw)
}

func Decode(raw []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, models.NewValidationError("file", fmt.Sprintf("malformed import document: %v", err))
	}
	return &doc, nil
}

type routePlan struct {
	driver string
	street string
	at     time.Time
	status models.RouteStatus
}

type requestPlan struct {
	resident string
	route    routePlan
	quantity *int
	notes    *string
	status   models.RequestStatus
}

type userPlan struct {
	UserRecord
	role models.Role
}

// plan is the parsed document: every time, role and status already checked.
type plan struct {
	streets  []string
	users    []userPlan
	routes   []routePlan
	requests []requestPlan
}

func (d *Document) plan() (*plan, error) {
	if err := utils.GetValidator().Validate(d); err != nil {
		return nil, err
	}

	p := &plan{}
	for _, s := range d.Streets {
		p.streets = append(p.streets, s.Name)
	}
	for i, u := range d.Users {
		role, err := models.ParseRole(u.Role)
		if err != nil {
			return nil, err
		}
		if err := models.CheckPasswordLength(u.Password); err != nil {
			return nil, fmt.Errorf("users[%d]: %w", i, err)
		}
		p.users = append(p.users, userPlan{UserRecord: u, role: role})
	}
	for i, r := range d.Routes {
		rp, err := parseRouteKey(r.RouteKey)
		if err != nil {
			return nil, fmt.Errorf("routes[%d]: %w", i, err)
		}
		rp.status = models.RouteScheduled
		if r.Status != "" {
			if rp.status, err = models.ParseRouteStatus(r.Status); err != nil {
				return nil, fmt.Errorf("routes[%d]: %w", i, err)
			}
		}
		p.routes = append(p.routes, rp)
	}
	for i, r := range d.Requests {
		key, err := parseRouteKey(r.Route)
		if err != nil {
			return nil, fmt.Errorf("requests[%d]: %w", i, err)
		}
		rq := requestPlan{resident: r.Resident, route: key, quantity: r.Quantity, status: models.RequestRequested}
		if r.Notes != "" {
			notes := r.Notes
			rq.notes = &notes
		}
		if r.Status != "" {
			if rq.status, err = models.ParseRequestStatus(r.Status); err != nil {
				return nil, fmt.Errorf("requests[%d]: %w", i, err)
			}
		}
		p.requests = append(p.requests, rq)
	}
	return p, nil
}

func parseRouteKey(k RouteKey) (routePlan, error) {
	at, err := utils.ParseISOTime(k.ScheduledTime)
	if err != nil {
		return routePlan{}, err
	}
	// Stored timestamps keep microseconds, so keys are compared at that precision.
	return routePlan{driver: k.Driver, street: k.Street, at: at.Truncate(time.Microsecond)}, nil
}
