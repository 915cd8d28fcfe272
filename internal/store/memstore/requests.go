package memstore

import (
	"context"
	"sort"

	"street-dispatch/internal/models"
)

type RequestRepo struct{ s *Store }

func (r *RequestRepo) Create(_ context.Context, req *models.Request) (*models.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextRequestID++
	stored := cloneRequest(req)
	stored.ID = r.s.nextRequestID
	stored.CreatedAt = r.s.now()
	r.s.requests[stored.ID] = stored
	return cloneRequest(stored), nil
}

func (r *RequestRepo) FindByID(_ context.Context, id int64) (*models.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneRequest(req), nil
}

func (r *RequestRepo) FindByNaturalKey(_ context.Context, residentID, routeID int64) (*models.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, id := range sortedKeys(r.s.requests) {
		req := r.s.requests[id]
		if req.ResidentID == residentID && req.RouteID == routeID {
			return cloneRequest(req), nil
		}
	}
	return nil, models.ErrNotFound
}

// ListByRoute orders by created_at, then id.
func (r *RequestRepo) ListByRoute(_ context.Context, routeID int64) ([]*models.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Request
	for _, req := range r.s.requests {
		if req.RouteID == routeID {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *RequestRepo) SetStatus(_ context.Context, id int64, status models.RequestStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[id]
	if !ok {
		return models.ErrNotFound
	}
	req.Status = status
	return nil
}

func (r *RequestRepo) TransitionStatus(_ context.Context, id int64, from, to models.RequestStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[id]
	if !ok {
		return models.ErrNotFound
	}
	if req.Status != from {
		return models.ErrStatusConflict
	}
	req.Status = to
	return nil
}

func (r *RequestRepo) Update(_ context.Context, req *models.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.requests[req.ID]
	if !ok {
		return models.ErrNotFound
	}
	updated := cloneRequest(req)
	updated.CreatedAt = existing.CreatedAt
	r.s.requests[req.ID] = updated
	return nil
}

func (r *RequestRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.requests), nil
}

func (r *RequestRepo) DeleteAll(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.requests = make(map[int64]*models.Request)
	return nil
}
