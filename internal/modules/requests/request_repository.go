package requests

import (
	"context"
	"errors"
	"fmt"

	"street-dispatch/internal/database"
	"street-dispatch/internal/models"

	"github.com/jackc/pgx/v5"
)

// RepositoryInterface defines storage operations for stop requests.
type RepositoryInterface interface {
	Create(ctx context.Context, req *models.Request) (*models.Request, error)
	FindByID(ctx context.Context, id int64) (*models.Request, error)
	FindByNaturalKey(ctx context.Context, residentID, routeID int64) (*models.Request, error)
	// ListByRoute orders by creation time ascending.
	ListByRoute(ctx context.Context, routeID int64) ([]*models.Request, error)
	SetStatus(ctx context.Context, id int64, status models.RequestStatus) error
	// TransitionStatus returns models.ErrStatusConflict when the request is no longer in from.
	TransitionStatus(ctx context.Context, id int64, from, to models.RequestStatus) error
	Update(ctx context.Context, req *models.Request) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

type Repository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) RepositoryInterface {
	return &Repository{db: db}
}

const requestColumns = `id, route_id, resident_id, notes, quantity, status, created_at`

func scanRequest(row pgx.Row) (*models.Request, error) {
	r := &models.Request{}
	if err := row.Scan(&r.ID, &r.RouteID, &r.ResidentID, &r.Notes, &r.Quantity, &r.Status, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (r *Repository) Create(ctx context.Context, req *models.Request) (*models.Request, error) {
	query := `
        INSERT INTO requests (route_id, resident_id, notes, quantity, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, req.RouteID, req.ResidentID, req.Notes, req.Quantity, req.Status).
		Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository.CreateRequest: %w", err)
	}
	return req, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindRequestByID: %w", err)
	}
	return req, nil
}

func (r *Repository) FindByNaturalKey(ctx context.Context, residentID, routeID int64) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests
        WHERE resident_id = $1 AND route_id = $2 ORDER BY id LIMIT 1`
	req, err := scanRequest(r.db.QueryRow(ctx, query, residentID, routeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindRequestByNaturalKey: %w", err)
	}
	return req, nil
}

func (r *Repository) ListByRoute(ctx context.Context, routeID int64) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE route_id = $1 ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListRequestsByRoute: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListRequestsByRoute.Scan: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *Repository) SetStatus(ctx context.Context, id int64, status models.RequestStatus) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE requests SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("repository.SetRequestStatus: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) TransitionStatus(ctx context.Context, id int64, from, to models.RequestStatus) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE requests SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return fmt.Errorf("repository.TransitionRequestStatus: %w", err)
	}
	if cmdTag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("repository.TransitionRequestStatus.Exists: %w", err)
	}
	if !exists {
		return models.ErrNotFound
	}
	return models.ErrStatusConflict
}

func (r *Repository) Update(ctx context.Context, req *models.Request) error {
	query := `UPDATE requests SET notes = $1, quantity = $2, status = $3 WHERE id = $4`
	cmdTag, err := r.db.Exec(ctx, query, req.Notes, req.Quantity, req.Status, req.ID)
	if err != nil {
		return fmt.Errorf("repository.UpdateRequest: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM requests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository.CountRequests: %w", err)
	}
	return n, nil
}

func (r *Repository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM requests`); err != nil {
		return fmt.Errorf("repository.DeleteAllRequests: %w", err)
	}
	return nil
}
