package streets

import (
	"context"
	"errors"
	"fmt"

	"street-dispatch/internal/database"
	"street-dispatch/internal/models"

	"github.com/jackc/pgx/v5"
)

// RepositoryInterface defines methods for street storage.
type RepositoryInterface interface {
	Create(ctx context.Context, name string) (*models.Street, error)
	FindByID(ctx context.Context, id int64) (*models.Street, error)
	FindByName(ctx context.Context, name string) (*models.Street, error)
	List(ctx context.Context) ([]*models.Street, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

type Repository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) RepositoryInterface {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, name string) (*models.Street, error) {
	s := &models.Street{Name: name}
	err := r.db.QueryRow(ctx, `INSERT INTO streets (name) VALUES ($1) RETURNING id`, name).Scan(&s.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("repository.CreateStreet: %w", err)
	}
	return s, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Street, error) {
	return r.findOne(ctx, `SELECT id, name FROM streets WHERE id = $1`, id)
}

func (r *Repository) FindByName(ctx context.Context, name string) (*models.Street, error) {
	return r.findOne(ctx, `SELECT id, name FROM streets WHERE name = $1`, name)
}

func (r *Repository) findOne(ctx context.Context, query string, arg interface{}) (*models.Street, error) {
	s := &models.Street{}
	if err := r.db.QueryRow(ctx, query, arg).Scan(&s.ID, &s.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindStreet: %w", err)
	}
	return s, nil
}

func (r *Repository) List(ctx context.Context) ([]*models.Street, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM streets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("repository.ListStreets: %w", err)
	}
	defer rows.Close()

	var streets []*models.Street
	for rows.Next() {
		s := &models.Street{}
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("repository.ListStreets.Scan: %w", err)
		}
		streets = append(streets, s)
	}
	return streets, rows.Err()
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM streets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository.CountStreets: %w", err)
	}
	return n, nil
}

func (r *Repository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM streets`); err != nil {
		return fmt.Errorf("repository.DeleteAllStreets: %w", err)
	}
	return nil
}
