package routes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"street-dispatch/internal/database"
	"street-dispatch/internal/models"

	"github.com/jackc/pgx/v5"
)

// RepositoryInterface declares storage operations for routes.
type RepositoryInterface interface {
	Create(ctx context.Context, route *models.Route) (*models.Route, error)
	FindByID(ctx context.Context, id int64) (*models.Route, error)
	// FindByNaturalKey matches driver, street and scheduled time exactly.
	FindByNaturalKey(ctx context.Context, driverID, streetID int64, at time.Time) (*models.Route, error)
	// List orders by scheduled time ascending, id breaking ties.
	List(ctx context.Context, filter models.RouteFilter) ([]*models.Route, error)
	// ListByStreetFrom returns the street's routes scheduled at or after from.
	ListByStreetFrom(ctx context.Context, streetID int64, from time.Time) ([]*models.Route, error)
	// FindActiveByDriver returns the driver's earliest on_the_way or arrived route.
	FindActiveByDriver(ctx context.Context, driverID int64) (*models.Route, error)
	// NextScheduled returns the earliest scheduled route of any driver at or after from.
	NextScheduled(ctx context.Context, from time.Time) (*models.Route, error)
	// TransitionStatus moves id from one status to another and returns
	// models.ErrStatusConflict when the route is no longer in from.
	TransitionStatus(ctx context.Context, id int64, from, to models.RouteStatus) error
	SetStatus(ctx context.Context, id int64, status models.RouteStatus) error
	UpdateLocation(ctx context.Context, id int64, lat, lng float64) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

type Repository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) RepositoryInterface {
	return &Repository{db: db}
}

const routeColumns = `id, driver_id, street_id, scheduled_time, status, current_lat, current_lng, created_at`

func scanRoute(row pgx.Row) (*models.Route, error) {
	r := &models.Route{}
	err := row.Scan(&r.ID, &r.DriverID, &r.StreetID, &r.ScheduledTime, &r.Status, &r.CurrentLat, &r.CurrentLng, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.ScheduledTime = r.ScheduledTime.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (r *Repository) queryOne(ctx context.Context, op, query string, args ...interface{}) (*models.Route, error) {
	route, err := scanRoute(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.%s: %w", op, err)
	}
	return route, nil
}

func (r *Repository) queryMany(ctx context.Context, op, query string, args ...interface{}) ([]*models.Route, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.%s: %w", op, err)
	}
	defer rows.Close()

	var routes []*models.Route
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.%s.Scan: %w", op, err)
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

func (r *Repository) Create(ctx context.Context, route *models.Route) (*models.Route, error) {
	query := `
        INSERT INTO routes (driver_id, street_id, scheduled_time, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, route.DriverID, route.StreetID, route.ScheduledTime.UTC(), route.Status).
		Scan(&route.ID, &route.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository.CreateRoute: %w", err)
	}
	return route, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Route, error) {
	return r.queryOne(ctx, "FindRouteByID", `SELECT `+routeColumns+` FROM routes WHERE id = $1`, id)
}

func (r *Repository) FindByNaturalKey(ctx context.Context, driverID, streetID int64, at time.Time) (*models.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes
        WHERE driver_id = $1 AND street_id = $2 AND scheduled_time = $3
        ORDER BY id LIMIT 1`
	return r.queryOne(ctx, "FindRouteByNaturalKey", query, driverID, streetID, at.UTC())
}

func (r *Repository) List(ctx context.Context, filter models.RouteFilter) ([]*models.Route, error) {
	if filter.Status != nil {
		query := `SELECT ` + routeColumns + ` FROM routes WHERE status = $1 ORDER BY scheduled_time, id`
		return r.queryMany(ctx, "ListRoutes", query, *filter.Status)
	}
	return r.queryMany(ctx, "ListRoutes", `SELECT `+routeColumns+` FROM routes ORDER BY scheduled_time, id`)
}

func (r *Repository) ListByStreetFrom(ctx context.Context, streetID int64, from time.Time) ([]*models.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes
        WHERE street_id = $1 AND scheduled_time >= $2
        ORDER BY scheduled_time, id`
	return r.queryMany(ctx, "ListRoutesByStreet", query, streetID, from.UTC())
}

func (r *Repository) FindActiveByDriver(ctx context.Context, driverID int64) (*models.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes
        WHERE driver_id = $1 AND status IN ('on_the_way', 'arrived')
        ORDER BY scheduled_time, id LIMIT 1`
	return r.queryOne(ctx, "FindActiveRoute", query, driverID)
}

func (r *Repository) NextScheduled(ctx context.Context, from time.Time) (*models.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes
        WHERE status = 'scheduled' AND scheduled_time >= $1
        ORDER BY scheduled_time, id LIMIT 1`
	return r.queryOne(ctx, "NextScheduledRoute", query, from.UTC())
}

func (r *Repository) TransitionStatus(ctx context.Context, id int64, from, to models.RouteStatus) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE routes SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return fmt.Errorf("repository.TransitionRouteStatus: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

func (r *Repository) missingOrConflict(ctx context.Context, id int64) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM routes WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("repository.TransitionRouteStatus.Exists: %w", err)
	}
	if !exists {
		return models.ErrNotFound
	}
	return models.ErrStatusConflict
}

func (r *Repository) SetStatus(ctx context.Context, id int64, status models.RouteStatus) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE routes SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("repository.SetRouteStatus: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateLocation(ctx context.Context, id int64, lat, lng float64) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE routes SET current_lat = $1, current_lng = $2 WHERE id = $3`, lat, lng, id)
	if err != nil {
		return fmt.Errorf("repository.UpdateRouteLocation: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM routes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository.CountRoutes: %w", err)
	}
	return n, nil
}

func (r *Repository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM routes`); err != nil {
		return fmt.Errorf("repository.DeleteAllRoutes: %w", err)
	}
	return nil
}
