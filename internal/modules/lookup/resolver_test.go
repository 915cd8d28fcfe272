package lookup

import (
	"context"
	"errors"
	"testing"

	"street-dispatch/internal/models"
	"street-dispatch/internal/store/memstore"
)

func newResolver(t *testing.T) (*Resolver, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return NewResolver(store.Users(), store.Streets(), store.Routes()), store
}

func TestResolver_UserNotFound(t *testing.T) {
	r, _ := newResolver(t)

	_, err := r.User(context.Background(), 9999, "")
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if nf.Entity != "user" || nf.ID != 9999 {
		t.Errorf("NotFoundError = %+v", nf)
	}
}

func TestResolver_RoleMismatchReturnsUser(t *testing.T) {
	r, store := newResolver(t)
	ctx := context.Background()
	res, _ := store.Users().Create(ctx, &models.User{Username: "r1", Role: models.RoleResident})

	u, err := r.User(ctx, res.ID, models.RoleDriver)
	if !errors.Is(err, models.ErrRoleMismatch) {
		t.Fatalf("expected role mismatch, got %v", err)
	}
	if u == nil || u.Username != "r1" {
		t.Errorf("user should be returned with the mismatch, got %v", u)
	}
}

func TestResolver_MatchingRole(t *testing.T) {
	r, store := newResolver(t)
	ctx := context.Background()
	d, _ := store.Users().Create(ctx, &models.User{Username: "d1", Role: models.RoleDriver})

	u, err := r.User(ctx, d.ID, models.RoleDriver)
	if err != nil || u.ID != d.ID {
		t.Errorf("User() = (%v, %v)", u, err)
	}
	if _, err := r.User(ctx, d.ID, ""); err != nil {
		t.Errorf("empty role should skip the check: %v", err)
	}
}

func TestResolver_StreetAndRoute(t *testing.T) {
	r, store := newResolver(t)
	ctx := context.Background()
	st, _ := store.Streets().Create(ctx, "Main St")

	if got, err := r.Street(ctx, st.ID); err != nil || got.Name != "Main St" {
		t.Errorf("Street() = (%v, %v)", got, err)
	}
	if _, err := r.Route(ctx, 42); err == nil || err.Error() != "route 42 not found" {
		t.Errorf("Route(42) error = %v", err)
	}
}

func TestAsValidation(t *testing.T) {
	nf := &models.NotFoundError{Entity: "street", ID: 3}
	err := AsValidation("street_id", nf)
	if !errors.Is(err, models.ErrValidation) || !errors.Is(err, models.ErrNotFound) {
		t.Errorf("AsValidation(not found) = %v", err)
	}
	if err.Error() != "invalid street_id: street 3 not found" {
		t.Errorf("message = %q", err.Error())
	}

	other := errors.New("connection reset")
	if got := AsValidation("street_id", other); got != other {
		t.Errorf("unrelated errors should pass through, got %v", got)
	}
}
