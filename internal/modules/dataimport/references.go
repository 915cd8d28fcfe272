package dataimport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"street-dispatch/internal/models"
)

type routeKey struct {
	driver string
	street string
	at     int64
}

func (r routePlan) key() routeKey {
	return routeKey{driver: r.driver, street: r.street, at: r.at.UnixMicro()}
}

// references tracks the names a document defines. Existing rows are consulted only
// when useStore is set, i.e. when the import will not clear them first.
type references struct {
	stores   Stores
	useStore bool
	streets  map[string]bool
	users    map[string]models.Role
	routes   map[routeKey]bool
}

// checkReferences resolves every street, user and route the plan names, against
// records defined earlier in the document and, unless clear is set, the store.
func (im *Importer) checkReferences(ctx context.Context, p *plan, clear bool) error {
	refs := &references{
		stores:   im.stores,
		useStore: !clear,
		streets:  make(map[string]bool),
		users:    make(map[string]models.Role),
		routes:   make(map[routeKey]bool),
	}

	for _, name := range p.streets {
		refs.streets[name] = true
	}
	for _, u := range p.users {
		if u.Street != "" {
			if err := refs.street(ctx, u.Street); err != nil {
				return fmt.Errorf("user %s: %w", u.Username, err)
			}
		}
		if err := refs.defineUser(ctx, u.Username, u.role); err != nil {
			return err
		}
	}
	for _, r := range p.routes {
		if err := refs.routeParties(ctx, r); err != nil {
			return err
		}
		refs.routes[r.key()] = true
	}
	for _, r := range p.requests {
		if err := refs.user(ctx, r.resident, models.RoleResident); err != nil {
			return err
		}
		if err := refs.route(ctx, r.route); err != nil {
			return fmt.Errorf("request by %s: %w", r.resident, err)
		}
	}
	return nil
}

func (refs *references) street(ctx context.Context, name string) error {
	if refs.streets[name] {
		return nil
	}
	if refs.useStore {
		_, err := refs.stores.Streets.FindByName(ctx, name)
		if err == nil {
			refs.streets[name] = true
			return nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("dataimport.Street: %w", err)
		}
	}
	return fmt.Errorf("street %s: %w", name, models.ErrNotFound)
}

// defineUser records a user entry. A username may not change role, whether it was
// defined earlier in the document or already exists.
func (refs *references) defineUser(ctx context.Context, username string, role models.Role) error {
	if prev, ok := refs.users[username]; ok {
		if prev != role {
			return roleConflict(username, role, prev)
		}
		return nil
	}
	if refs.useStore {
		existing, err := refs.stores.Users.FindByUsername(ctx, username)
		switch {
		case err == nil && existing.Role != role:
			return &models.RoleMismatchError{UserID: existing.ID, Username: existing.Username, Expected: role, Actual: existing.Role}
		case err != nil && !errors.Is(err, models.ErrNotFound):
			return fmt.Errorf("dataimport.User: %w", err)
		}
	}
	refs.users[username] = role
	return nil
}

func (refs *references) user(ctx context.Context, username string, role models.Role) error {
	if got, ok := refs.users[username]; ok {
		if got != role {
			return roleConflict(username, got, role)
		}
		return nil
	}
	if refs.useStore {
		u, err := refs.stores.Users.FindByUsername(ctx, username)
		if err == nil {
			if u.Role != role {
				return &models.RoleMismatchError{UserID: u.ID, Username: u.Username, Expected: role, Actual: u.Role}
			}
			refs.users[username] = u.Role
			return nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("dataimport.User: %w", err)
		}
	}
	return fmt.Errorf("user %s: %w", username, models.ErrNotFound)
}

// routeParties checks the driver and street a route entry names.
func (refs *references) routeParties(ctx context.Context, r routePlan) error {
	if err := refs.user(ctx, r.driver, models.RoleDriver); err != nil {
		return err
	}
	if err := refs.street(ctx, r.street); err != nil {
		return fmt.Errorf("route for %s: %w", r.driver, err)
	}
	return nil
}

// route checks that a request's route is defined in the document or already stored.
func (refs *references) route(ctx context.Context, r routePlan) error {
	if refs.routes[r.key()] {
		return nil
	}
	if err := refs.routeParties(ctx, r); err != nil {
		return err
	}
	notFound := fmt.Errorf("route %s/%s at %s: %w", r.driver, r.street, r.at.Format(time.RFC3339), models.ErrNotFound)
	if !refs.useStore {
		return notFound
	}

	driver, err := refs.stores.Users.FindByUsername(ctx, r.driver)
	if errors.Is(err, models.ErrNotFound) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("dataimport.User: %w", err)
	}
	street, err := refs.stores.Streets.FindByName(ctx, r.street)
	if errors.Is(err, models.ErrNotFound) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("dataimport.Street: %w", err)
	}
	if _, err := refs.stores.Routes.FindByNaturalKey(ctx, driver.ID, street.ID, r.at); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return notFound
		}
		return fmt.Errorf("dataimport.Route: %w", err)
	}
	refs.routes[r.key()] = true
	return nil
}

// roleConflict reports a username the document uses with two roles.
func roleConflict(username string, want, got models.Role) error {
	return &models.ValidationError{
		Field:  "users",
		Reason: fmt.Sprintf("%s is used as a %s and as a %s", username, want, got),
		Cause:  models.ErrRoleMismatch,
	}
}
