// Package lookup resolves ids to entities, reporting which entity was missing
// and whether a user carries the role an operation needs.
package lookup

import (
	"context"
	"errors"
	"fmt"

	"street-dispatch/internal/models"
)

type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type StreetFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Street, error)
}

type RouteFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Route, error)
}

// Resolver is read-only.
type Resolver struct {
	users   UserFinder
	streets StreetFinder
	routes  RouteFinder
}

func NewResolver(users UserFinder, streets StreetFinder, routes RouteFinder) *Resolver {
	return &Resolver{users: users, streets: streets, routes: routes}
}

// User resolves id. When expected is non-empty and differs from the user's role, the
// user is returned together with a *models.RoleMismatchError so the caller can decide.
func (r *Resolver) User(ctx context.Context, id int64, expected models.Role) (*models.User, error) {
	u, err := r.users.FindByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound("user", id, err)
	}
	if expected != "" && u.Role != expected {
		return u, &models.RoleMismatchError{UserID: u.ID, Username: u.Username, Expected: expected, Actual: u.Role}
	}
	return u, nil
}

func (r *Resolver) Street(ctx context.Context, id int64) (*models.Street, error) {
	s, err := r.streets.FindByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound("street", id, err)
	}
	return s, nil
}

func (r *Resolver) Route(ctx context.Context, id int64) (*models.Route, error) {
	rt, err := r.routes.FindByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound("route", id, err)
	}
	return rt, nil
}

func wrapNotFound(entity string, id int64, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return &models.NotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("lookup.%s: %w", entity, err)
}

// AsValidation reports an unresolved input reference as a ValidationError on field,
// keeping the NotFound or RoleMismatch cause reachable through errors.Is.
func AsValidation(field string, err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrRoleMismatch) {
		return &models.ValidationError{Field: field, Reason: err.Error(), Cause: err}
	}
	return err
}
