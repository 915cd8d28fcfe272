package memstore

import (
	"context"

	"street-dispatch/internal/models"
)

type StreetRepo struct{ s *Store }

func (r *StreetRepo) Create(_ context.Context, name string) (*models.Street, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, st := range r.s.streets {
		if st.Name == name {
			return nil, models.ErrConflict
		}
	}
	r.s.nextStreetID++
	st := &models.Street{ID: r.s.nextStreetID, Name: name}
	r.s.streets[st.ID] = st
	c := *st
	return &c, nil
}

func (r *StreetRepo) FindByID(_ context.Context, id int64) (*models.Street, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st, ok := r.s.streets[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *st
	return &c, nil
}

func (r *StreetRepo) FindByName(_ context.Context, name string) (*models.Street, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, st := range r.s.streets {
		if st.Name == name {
			c := *st
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *StreetRepo) List(_ context.Context) ([]*models.Street, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Street, 0, len(r.s.streets))
	for _, id := range sortedKeys(r.s.streets) {
		c := *r.s.streets[id]
		out = append(out, &c)
	}
	return out, nil
}

func (r *StreetRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.streets), nil
}

func (r *StreetRepo) DeleteAll(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.streets = make(map[int64]*models.Street)
	return nil
}
