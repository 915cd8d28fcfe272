// Package memstore is an in-memory entity store: flat maps keyed by id behind one
// mutex, with relationships held as ids. It mirrors the Postgres repositories'
// ordering and conditional-update behaviour and backs the tests.
package memstore

import (
	"sort"
	"sync"
	"time"

	"street-dispatch/internal/models"
)

// Store owns every entity. Use the accessor methods to get per-entity repositories.
type Store struct {
	mu sync.RWMutex

	streets  map[int64]*models.Street
	users    map[int64]*models.User
	routes   map[int64]*models.Route
	requests map[int64]*models.Request

	nextStreetID  int64
	nextUserID    int64
	nextRouteID   int64
	nextRequestID int64

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		streets:  make(map[int64]*models.Street),
		users:    make(map[int64]*models.User),
		routes:   make(map[int64]*models.Route),
		requests: make(map[int64]*models.Request),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for created_at stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Streets() *StreetRepo   { return &StreetRepo{s: s} }
func (s *Store) Users() *UserRepo       { return &UserRepo{s: s} }
func (s *Store) Routes() *RouteRepo     { return &RouteRepo{s: s} }
func (s *Store) Requests() *RequestRepo { return &RequestRepo{s: s} }

func sortedKeys[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.StreetID != nil {
		id := *u.StreetID
		c.StreetID = &id
	}
	return &c
}

func cloneRoute(r *models.Route) *models.Route {
	c := *r
	if r.CurrentLat != nil {
		lat := *r.CurrentLat
		c.CurrentLat = &lat
	}
	if r.CurrentLng != nil {
		lng := *r.CurrentLng
		c.CurrentLng = &lng
	}
	return &c
}

func cloneRequest(r *models.Request) *models.Request {
	c := *r
	if r.Notes != nil {
		n := *r.Notes
		c.Notes = &n
	}
	if r.Quantity != nil {
		q := *r.Quantity
		c.Quantity = &q
	}
	return &c
}
