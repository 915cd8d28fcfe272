package memstore

import (
	"context"
	"sort"
	"time"

	"street-dispatch/internal/models"
)

type RouteRepo struct{ s *Store }

func (r *RouteRepo) Create(_ context.Context, rt *models.Route) (*models.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextRouteID++
	stored := cloneRoute(rt)
	stored.ID = r.s.nextRouteID
	stored.ScheduledTime = rt.ScheduledTime.UTC().Truncate(time.Microsecond)
	stored.CreatedAt = r.s.now()
	r.s.routes[stored.ID] = stored
	return cloneRoute(stored), nil
}

func (r *RouteRepo) FindByID(_ context.Context, id int64) (*models.Route, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rt, ok := r.s.routes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneRoute(rt), nil
}

func (r *RouteRepo) FindByNaturalKey(_ context.Context, driverID, streetID int64, at time.Time) (*models.Route, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, id := range sortedKeys(r.s.routes) {
		rt := r.s.routes[id]
		if rt.DriverID == driverID && rt.StreetID == streetID && rt.ScheduledTime.Equal(at) {
			return cloneRoute(rt), nil
		}
	}
	return nil, models.ErrNotFound
}

// selectRoutes returns matching routes ordered by scheduled time, then id.
func (r *RouteRepo) selectRoutes(match func(*models.Route) bool) []*models.Route {
	var out []*models.Route
	for _, rt := range r.s.routes {
		if match(rt) {
			out = append(out, cloneRoute(rt))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ScheduledTime.Before(out[j].ScheduledTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *RouteRepo) List(_ context.Context, filter models.RouteFilter) ([]*models.Route, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.selectRoutes(func(rt *models.Route) bool {
		return filter.Status == nil || rt.Status == *filter.Status
	}), nil
}

func (r *RouteRepo) ListByStreetFrom(_ context.Context, streetID int64, from time.Time) ([]*models.Route, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.selectRoutes(func(rt *models.Route) bool {
		return rt.StreetID == streetID && !rt.ScheduledTime.Before(from)
	}), nil
}

func (r *RouteRepo) FindActiveByDriver(_ context.Context, driverID int64) (*models.Route, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	active := r.selectRoutes(func(rt *models.Route) bool {
		return rt.DriverID == driverID && rt.Status.IsActive()
	})
	if len(active) == 0 {
		return nil, models.ErrNotFound
	}
	return active[0], nil
}

func (r *RouteRepo) NextScheduled(_ context.Context, from time.Time) (*models.Route, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	next := r.selectRoutes(func(rt *models.Route) bool {
		return rt.Status == models.RouteScheduled && !rt.ScheduledTime.Before(from)
	})
	if len(next) == 0 {
		return nil, models.ErrNotFound
	}
	return next[0], nil
}

func (r *RouteRepo) TransitionStatus(_ context.Context, id int64, from, to models.RouteStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rt, ok := r.s.routes[id]
	if !ok {
		return models.ErrNotFound
	}
	if rt.Status != from {
		return models.ErrStatusConflict
	}
	rt.Status = to
	return nil
}

func (r *RouteRepo) SetStatus(_ context.Context, id int64, status models.RouteStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rt, ok := r.s.routes[id]
	if !ok {
		return models.ErrNotFound
	}
	rt.Status = status
	return nil
}

func (r *RouteRepo) UpdateLocation(_ context.Context, id int64, lat, lng float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rt, ok := r.s.routes[id]
	if !ok {
		return models.ErrNotFound
	}
	rt.CurrentLat = &lat
	rt.CurrentLng = &lng
	return nil
}

func (r *RouteRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.routes), nil
}

func (r *RouteRepo) DeleteAll(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.routes = make(map[int64]*models.Route)
	return nil
}
