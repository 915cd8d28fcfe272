package users

import (
	"context"
	"errors"
	"fmt"

	"street-dispatch/internal/database"
	"street-dispatch/internal/models"

	"github.com/jackc/pgx/v5"
)

// RepositoryInterface defines methods for interacting with user storage.
type RepositoryInterface interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateStreet(ctx context.Context, userID, streetID int64) error
	Update(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

type Repository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) RepositoryInterface {
	return &Repository{db: db}
}

const userColumns = `id, username, password_hash, role, street_id, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.StreetID, &u.CreatedAt)
	return u, err
}

func (r *Repository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
        INSERT INTO users (username, password_hash, role, street_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, user.Username, user.PasswordHash, user.Role, user.StreetID).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("repository.CreateUser: %w", err)
	}
	return user, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return u, nil
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByUsername: %w", err)
	}
	return u, nil
}

func (r *Repository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("repository.ListUsers: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListUsers.Scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *Repository) UpdateStreet(ctx context.Context, userID, streetID int64) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE users SET street_id = $1 WHERE id = $2`, streetID, userID)
	if err != nil {
		return fmt.Errorf("repository.UpdateStreet: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, user *models.User) error {
	query := `
        UPDATE users
        SET password_hash = $1, role = $2, street_id = $3
        WHERE id = $4`
	cmdTag, err := r.db.Exec(ctx, query, user.PasswordHash, user.Role, user.StreetID, user.ID)
	if err != nil {
		return fmt.Errorf("repository.UpdateUser: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository.CountUsers: %w", err)
	}
	return n, nil
}

func (r *Repository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("repository.DeleteAllUsers: %w", err)
	}
	return nil
}
