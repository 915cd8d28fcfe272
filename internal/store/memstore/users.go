package memstore

import (
	"context"

	"street-dispatch/internal/models"
)

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Username == u.Username {
			return nil, models.ErrConflict
		}
	}
	r.s.nextUserID++
	stored := cloneUser(u)
	stored.ID = r.s.nextUserID
	stored.CreatedAt = r.s.now()
	r.s.users[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *UserRepo) FindByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *UserRepo) List(_ context.Context) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.User, 0, len(r.s.users))
	for _, id := range sortedKeys(r.s.users) {
		out = append(out, cloneUser(r.s.users[id]))
	}
	return out, nil
}

func (r *UserRepo) UpdateStreet(_ context.Context, userID, streetID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return models.ErrNotFound
	}
	id := streetID
	u.StreetID = &id
	return nil
}

func (r *UserRepo) Update(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[u.ID]
	if !ok {
		return models.ErrNotFound
	}
	updated := cloneUser(u)
	updated.CreatedAt = existing.CreatedAt
	r.s.users[u.ID] = updated
	return nil
}

func (r *UserRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users), nil
}

func (r *UserRepo) DeleteAll(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users = make(map[int64]*models.User)
	return nil
}
