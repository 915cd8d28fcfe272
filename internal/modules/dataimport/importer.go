package dataimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"street-dispatch/internal/models"

	"golang.org/x/crypto/bcrypt"
)

type StreetStore interface {
	Create(ctx context.Context, name string) (*models.Street, error)
	FindByName(ctx context.Context, name string) (*models.Street, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

type RouteStore interface {
	Create(ctx context.Context, route *models.Route) (*models.Route, error)
	FindByNaturalKey(ctx context.Context, driverID, streetID int64, at time.Time) (*models.Route, error)
	SetStatus(ctx context.Context, id int64, status models.RouteStatus) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

type RequestStore interface {
	Create(ctx context.Context, req *models.Request) (*models.Request, error)
	FindByNaturalKey(ctx context.Context, residentID, routeID int64) (*models.Request, error)
	Update(ctx context.Context, req *models.Request) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// Counts tallies what an import did to one entity kind.
type Counts struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

type Totals struct {
	Streets  int `json:"streets"`
	Users    int `json:"users"`
	Routes   int `json:"routes"`
	Requests int `json:"requests"`
}

type Summary struct {
	Cleared  bool   `json:"cleared"`
	Streets  Counts `json:"streets"`
	Users    Counts `json:"users"`
	Routes   Counts `json:"routes"`
	Requests Counts `json:"requests"`
	Totals   Totals `json:"totals"`
}

// Lines renders the summary one entity kind per line.
func (s *Summary) Lines() []string {
	line := func(kind string, c Counts, total int) string {
		return fmt.Sprintf("%s: %d created, %d updated, %d unchanged (%d total)", kind, c.Created, c.Updated, c.Unchanged, total)
	}
	return []string{
		line("Streets", s.Streets, s.Totals.Streets),
		line("Users", s.Users, s.Totals.Users),
		line("Routes", s.Routes, s.Totals.Routes),
		line("Requests", s.Requests, s.Totals.Requests),
	}
}

// Stores groups the stores one import writes through.
type Stores struct {
	Streets  StreetStore
	Users    UserStore
	Routes   RouteStore
	Requests RequestStore
}

// Transactor runs fn against stores whose writes land together or not at all.
type Transactor func(ctx context.Context, fn func(Stores) error) error

type Importer struct {
	stores     Stores
	inTx       Transactor
	logger     *slog.Logger
	bcryptCost int
}

func NewImporter(streets StreetStore, users UserStore, routes RouteStore, requests RequestStore, logger *slog.Logger) *Importer {
	im := &Importer{
		stores:     Stores{Streets: streets, Users: users, Routes: routes, Requests: requests},
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
	}
	im.inTx = func(_ context.Context, fn func(Stores) error) error { return fn(im.stores) }
	return im
}

// WithTransactor makes Run apply the clear and every upsert through inTx.
func (im *Importer) WithTransactor(inTx Transactor) *Importer {
	im.inTx = inTx
	return im
}

// Run applies doc. With clear set, existing requests, routes, users and streets are
// deleted first, in that order. The whole document is parsed and every reference in it
// resolved before anything is written.
func (im *Importer) Run(ctx context.Context, doc *Document, clear bool) (*Summary, error) {
	p, err := doc.plan()
	if err != nil {
		return nil, err
	}
	if err := im.checkReferences(ctx, p, clear); err != nil {
		return nil, err
	}

	sum := &Summary{Cleared: clear}
	err = im.inTx(ctx, func(st Stores) error {
		w := &writer{Stores: st, bcryptCost: im.bcryptCost}
		if clear {
			if err := w.clear(ctx); err != nil {
				return err
			}
		}
		for _, name := range p.streets {
			if err := w.upsertStreet(ctx, name, &sum.Streets); err != nil {
				return err
			}
		}
		for _, u := range p.users {
			if err := w.upsertUser(ctx, u, &sum.Users); err != nil {
				return err
			}
		}
		for _, r := range p.routes {
			if err := w.upsertRoute(ctx, r, &sum.Routes); err != nil {
				return err
			}
		}
		for _, r := range p.requests {
			if err := w.upsertRequest(ctx, r, &sum.Requests); err != nil {
				return err
			}
		}
		var err error
		sum.Totals, err = w.totals(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if clear {
		im.logger.Info("cleared existing data")
	}
	im.logger.Info("import finished",
		"cleared", clear,
		"streets_created", sum.Streets.Created,
		"users_created", sum.Users.Created,
		"routes_created", sum.Routes.Created,
		"requests_created", sum.Requests.Created,
	)
	return sum, nil
}

// writer applies a checked plan to one set of stores.
type writer struct {
	Stores
	bcryptCost int
}

func (w *writer) clear(ctx context.Context) error {
	steps := []struct {
		kind string
		del  func(context.Context) error
	}{
		{"requests", w.Requests.DeleteAll},
		{"routes", w.Routes.DeleteAll},
		{"users", w.Users.DeleteAll},
		{"streets", w.Streets.DeleteAll},
	}
	for _, s := range steps {
		if err := s.del(ctx); err != nil {
			return fmt.Errorf("dataimport.Clear.%s: %w", s.kind, err)
		}
	}
	return nil
}

func (w *writer) upsertStreet(ctx context.Context, name string, c *Counts) error {
	_, err := w.Streets.FindByName(ctx, name)
	if err == nil {
		c.Unchanged++
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("dataimport.Street: %w", err)
	}
	if _, err := w.Streets.Create(ctx, name); err != nil {
		return fmt.Errorf("dataimport.Street: %w", err)
	}
	c.Created++
	return nil
}

func (w *writer) upsertUser(ctx context.Context, u userPlan, c *Counts) error {
	var streetID *int64
	if u.Street != "" {
		st, err := w.street(ctx, u.Street)
		if err != nil {
			return fmt.Errorf("user %s: %w", u.Username, err)
		}
		streetID = &st.ID
	}

	existing, err := w.Users.FindByUsername(ctx, u.Username)
	if errors.Is(err, models.ErrNotFound) {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), w.bcryptCost)
		if err != nil {
			return fmt.Errorf("dataimport.User.HashPassword: %w", err)
		}
		if _, err := w.Users.Create(ctx, &models.User{
			Username:     u.Username,
			PasswordHash: string(hash),
			Role:         u.role,
			StreetID:     streetID,
		}); err != nil {
			return fmt.Errorf("dataimport.User: %w", err)
		}
		c.Created++
		return nil
	}
	if err != nil {
		return fmt.Errorf("dataimport.User: %w", err)
	}

	if existing.Role != u.role {
		return &models.RoleMismatchError{UserID: existing.ID, Username: existing.Username, Expected: u.role, Actual: existing.Role}
	}

	changed := false
	if streetID != nil && (existing.StreetID == nil || *existing.StreetID != *streetID) {
		existing.StreetID = streetID
		changed = true
	}
	if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(u.Password)) != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), w.bcryptCost)
		if err != nil {
			return fmt.Errorf("dataimport.User.HashPassword: %w", err)
		}
		existing.PasswordHash = string(hash)
		changed = true
	}
	if !changed {
		c.Unchanged++
		return nil
	}
	if err := w.Users.Update(ctx, existing); err != nil {
		return fmt.Errorf("dataimport.User.Update: %w", err)
	}
	c.Updated++
	return nil
}

func (w *writer) upsertRoute(ctx context.Context, r routePlan, c *Counts) error {
	existing, driverID, streetID, err := w.findRoute(ctx, r)
	if errors.Is(err, models.ErrNotFound) && driverID != 0 {
		if _, err := w.Routes.Create(ctx, &models.Route{
			DriverID:      driverID,
			StreetID:      streetID,
			ScheduledTime: r.at,
			Status:        r.status,
		}); err != nil {
			return fmt.Errorf("dataimport.Route: %w", err)
		}
		c.Created++
		return nil
	}
	if err != nil {
		return err
	}

	if existing.Status == r.status {
		c.Unchanged++
		return nil
	}
	if err := w.Routes.SetStatus(ctx, existing.ID, r.status); err != nil {
		return fmt.Errorf("dataimport.Route.SetStatus: %w", err)
	}
	c.Updated++
	return nil
}

func (w *writer) upsertRequest(ctx context.Context, r requestPlan, c *Counts) error {
	resident, err := w.user(ctx, r.resident, models.RoleResident)
	if err != nil {
		return err
	}
	route, _, _, err := w.findRoute(ctx, r.route)
	if err != nil {
		return fmt.Errorf("request by %s: %w", r.resident, err)
	}

	existing, err := w.Requests.FindByNaturalKey(ctx, resident.ID, route.ID)
	if errors.Is(err, models.ErrNotFound) {
		if _, err := w.Requests.Create(ctx, &models.Request{
			RouteID:    route.ID,
			ResidentID: resident.ID,
			Notes:      r.notes,
			Quantity:   r.quantity,
			Status:     r.status,
		}); err != nil {
			return fmt.Errorf("dataimport.Request: %w", err)
		}
		c.Created++
		return nil
	}
	if err != nil {
		return fmt.Errorf("dataimport.Request: %w", err)
	}

	if existing.Status == r.status && equalInt(existing.Quantity, r.quantity) && equalString(existing.Notes, r.notes) {
		c.Unchanged++
		return nil
	}
	existing.Status = r.status
	existing.Quantity = r.quantity
	existing.Notes = r.notes
	if err := w.Requests.Update(ctx, existing); err != nil {
		return fmt.Errorf("dataimport.Request.Update: %w", err)
	}
	c.Updated++
	return nil
}

// findRoute resolves a route key. On ErrNotFound for the route itself the resolved
// driver and street ids are still returned.
func (w *writer) findRoute(ctx context.Context, r routePlan) (*models.Route, int64, int64, error) {
	driver, err := w.user(ctx, r.driver, models.RoleDriver)
	if err != nil {
		return nil, 0, 0, err
	}
	street, err := w.street(ctx, r.street)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("route for %s: %w", r.driver, err)
	}
	route, err := w.Routes.FindByNaturalKey(ctx, driver.ID, street.ID, r.at)
	if errors.Is(err, models.ErrNotFound) {
		return nil, driver.ID, street.ID, fmt.Errorf("route %s/%s at %s: %w", r.driver, r.street, r.at.Format(time.RFC3339), models.ErrNotFound)
	}
	if err != nil {
		return nil, 0, 0, fmt.Errorf("dataimport.Route: %w", err)
	}
	return route, driver.ID, street.ID, nil
}

func (w *writer) user(ctx context.Context, username string, role models.Role) (*models.User, error) {
	u, err := w.Users.FindByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", username, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("dataimport.User: %w", err)
	}
	if u.Role != role {
		return nil, &models.RoleMismatchError{UserID: u.ID, Username: u.Username, Expected: role, Actual: u.Role}
	}
	return u, nil
}

func (w *writer) street(ctx context.Context, name string) (*models.Street, error) {
	st, err := w.Streets.FindByName(ctx, name)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("street %s: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("dataimport.Street: %w", err)
	}
	return st, nil
}

func (w *writer) totals(ctx context.Context) (Totals, error) {
	var t Totals
	var err error
	if t.Streets, err = w.Streets.Count(ctx); err != nil {
		return t, fmt.Errorf("dataimport.Count.streets: %w", err)
	}
	if t.Users, err = w.Users.Count(ctx); err != nil {
		return t, fmt.Errorf("dataimport.Count.users: %w", err)
	}
	if t.Routes, err = w.Routes.Count(ctx); err != nil {
		return t, fmt.Errorf("dataimport.Count.routes: %w", err)
	}
	if t.Requests, err = w.Requests.Count(ctx); err != nil {
		return t, fmt.Errorf("dataimport.Count.requests: %w", err)
	}
	return t, nil
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
