package routes

import (
	"context"
	"errors"
	"testing"
	"time"

	"street-dispatch/internal/logger"
	"street-dispatch/internal/metrics"
	"street-dispatch/internal/models"
	"street-dispatch/internal/modules/lookup"
	"street-dispatch/internal/store/memstore"
)

var _ RepositoryInterface = (*memstore.RouteRepo)(nil)

type fixture struct {
	store    *memstore.Store
	svc      *Service
	notifier *recordingNotifier
	driver   *models.User
	resident *models.User
	street   *models.Street
}

type recordingNotifier struct {
	calls []models.RouteStatus
	err   error
}

func (n *recordingNotifier) NotifyRouteStatus(_ context.Context, route *models.Route, _ models.RouteStatus) error {
	n.calls = append(n.calls, route.Status)
	return n.err
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	resolver := lookup.NewResolver(store.Users(), store.Streets(), store.Routes())
	notifier := &recordingNotifier{}

	street, _ := store.Streets().Create(ctx, "Main St")
	driver, _ := store.Users().Create(ctx, &models.User{Username: "d1", Role: models.RoleDriver})
	resident, _ := store.Users().Create(ctx, &models.User{Username: "r1", Role: models.RoleResident, StreetID: &street.ID})

	return &fixture{
		store:    store,
		svc:      NewService(store.Routes(), resolver, notifier, metrics.Nop{}, logger.Discard()),
		notifier: notifier,
		driver:   driver,
		resident: resident,
		street:   street,
	}
}

func (f *fixture) schedule(t *testing.T, at string) *models.Route {
	t.Helper()
	r, err := f.svc.Schedule(context.Background(), models.ScheduleRouteRequest{DriverID: f.driver.ID, StreetID: f.street.ID, Time: at})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	return r
}

func TestService_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.schedule(t, "2025-01-01T09:00:00")

	if r.Status != models.RouteScheduled {
		t.Fatalf("status = %s, want scheduled", r.Status)
	}
	if !r.ScheduledTime.Equal(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("scheduled time = %v", r.ScheduledTime)
	}

	steps := []struct {
		do   func(context.Context, int64) (*models.Route, error)
		want models.RouteStatus
	}{
		{f.svc.Start, models.RouteOnTheWay},
		{f.svc.Arrive, models.RouteArrived},
		{f.svc.Complete, models.RouteCompleted},
	}
	for _, step := range steps {
		got, err := step.do(ctx, r.ID)
		if err != nil {
			t.Fatalf("transition to %s: %v", step.want, err)
		}
		if got.Status != step.want {
			t.Fatalf("status = %s, want %s", got.Status, step.want)
		}
	}

	_, err := f.svc.Cancel(ctx, r.ID)
	var it *models.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("cancel after complete error = %v, want InvalidTransitionError", err)
	}
	if it.Current != string(models.RouteCompleted) {
		t.Errorf("reported current = %q, want completed", it.Current)
	}
	stored, _ := f.store.Routes().FindByID(ctx, r.ID)
	if stored.Status != models.RouteCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
}

func TestService_IllegalTransitionsLeaveStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.schedule(t, "2025-01-01T09:00:00")

	for name, do := range map[string]func(context.Context, int64) (*models.Route, error){
		"arrive":   f.svc.Arrive,
		"complete": f.svc.Complete,
	} {
		if _, err := do(ctx, r.ID); !errors.Is(err, models.ErrInvalidTransition) {
			t.Errorf("%s from scheduled error = %v, want invalid transition", name, err)
		}
	}
	stored, _ := f.store.Routes().FindByID(ctx, r.ID)
	if stored.Status != models.RouteScheduled {
		t.Errorf("status = %s, want scheduled", stored.Status)
	}
}

func TestService_Schedule_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.ScheduleRouteRequest
	}{
		{"bad time", models.ScheduleRouteRequest{DriverID: f.driver.ID, StreetID: f.street.ID, Time: "not-a-date"}},
		{"unknown driver", models.ScheduleRouteRequest{DriverID: 9999, StreetID: f.street.ID, Time: "2025-01-01T09:00:00"}},
		{"resident as driver", models.ScheduleRouteRequest{DriverID: f.resident.ID, StreetID: f.street.ID, Time: "2025-01-01T09:00:00"}},
		{"unknown street", models.ScheduleRouteRequest{DriverID: f.driver.ID, StreetID: 77, Time: "2025-01-01T09:00:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Schedule(ctx, tt.req); !errors.Is(err, models.ErrValidation) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}

	if n, _ := f.store.Routes().Count(ctx); n != 0 {
		t.Errorf("routes = %d, want 0", n)
	}
}

func TestService_UnknownRoute(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Start(context.Background(), 9999)
	var nf *models.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "route" {
		t.Errorf("error = %v, want route not found", err)
	}
}

// racingRepo simulates another writer changing the route between read and write.
type racingRepo struct {
	RepositoryInterface
	raceTo models.RouteStatus
}

func (r *racingRepo) TransitionStatus(ctx context.Context, id int64, from, to models.RouteStatus) error {
	if err := r.RepositoryInterface.SetStatus(ctx, id, r.raceTo); err != nil {
		return err
	}
	return r.RepositoryInterface.TransitionStatus(ctx, id, from, to)
}

func TestService_ConcurrentChangeSurfacesAsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.schedule(t, "2025-01-01T09:00:00")

	resolver := lookup.NewResolver(f.store.Users(), f.store.Streets(), f.store.Routes())
	svc := NewService(&racingRepo{RepositoryInterface: f.store.Routes(), raceTo: models.RouteCancelled}, resolver, nil, metrics.Nop{}, logger.Discard())

	_, err := svc.Start(ctx, r.ID)
	var it *models.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("error = %v, want InvalidTransitionError", err)
	}
	if it.Current != string(models.RouteCancelled) {
		t.Errorf("current = %q, want cancelled", it.Current)
	}
}

func TestService_SetStatusBypassesGraph(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.schedule(t, "2025-01-01T09:00:00")

	got, old, err := f.svc.SetStatus(ctx, r.ID, "completed")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if old != models.RouteScheduled || got.Status != models.RouteCompleted {
		t.Errorf("SetStatus = (%s, old %s)", got.Status, old)
	}

	got, _, err = f.svc.SetStatus(ctx, r.ID, "on the way")
	if err != nil || got.Status != models.RouteOnTheWay {
		t.Errorf("legacy spelling: (%v, %v)", got, err)
	}

	if _, _, err := f.svc.SetStatus(ctx, r.ID, "lost"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("unknown status error = %v", err)
	}
}

func TestService_NotifiesOnTerminalChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.schedule(t, "2025-01-01T09:00:00")
	f.notifier.err = errors.New("ses down")

	if _, err := f.svc.Cancel(ctx, r.ID); err != nil {
		t.Fatalf("notification failure must not fail the operation: %v", err)
	}
	if len(f.notifier.calls) != 1 || f.notifier.calls[0] != models.RouteCancelled {
		t.Errorf("notifier calls = %v", f.notifier.calls)
	}
}

func TestService_UpdateLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.schedule(t, "2025-01-01T09:00:00")
	req := models.LocationUpdateRequest{DriverID: f.driver.ID, Latitude: 52.5, Longitude: 13.4}

	if _, err := f.svc.UpdateLocation(ctx, req); !errors.Is(err, models.ErrNoActiveRoute) {
		t.Fatalf("scheduled-only driver error = %v, want no active route", err)
	}
	stored, _ := f.store.Routes().FindByID(ctx, r.ID)
	if stored.CurrentLat != nil {
		t.Error("location must not be written without an active route")
	}

	f.svc.Start(ctx, r.ID)
	got, err := f.svc.UpdateLocation(ctx, req)
	if err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if got.ID != r.ID || *got.CurrentLat != 52.5 || *got.CurrentLng != 13.4 {
		t.Errorf("route = %+v", got)
	}

	bad := models.LocationUpdateRequest{DriverID: f.driver.ID, Latitude: 120, Longitude: 0}
	if _, err := f.svc.UpdateLocation(ctx, bad); !errors.Is(err, models.ErrValidation) {
		t.Errorf("out-of-range latitude error = %v", err)
	}

	wrongRole := models.LocationUpdateRequest{DriverID: f.resident.ID, Latitude: 1, Longitude: 1}
	if _, err := f.svc.UpdateLocation(ctx, wrongRole); !errors.Is(err, models.ErrRoleMismatch) {
		t.Errorf("resident location error = %v, want role mismatch", err)
	}
}

func TestService_ListFiltersAndOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	late := f.schedule(t, "2025-01-02T09:00:00")
	early := f.schedule(t, "2025-01-01T09:00:00")
	f.svc.Cancel(ctx, late.ID)

	all, _ := f.svc.List(ctx, models.RouteFilter{})
	if len(all) != 2 || all[0].ID != early.ID {
		t.Errorf("List() first id = %d, want %d", all[0].ID, early.ID)
	}

	cancelled := models.RouteCancelled
	only, _ := f.svc.List(ctx, models.RouteFilter{Status: &cancelled})
	if len(only) != 1 || only[0].ID != late.ID {
		t.Errorf("List(cancelled) = %d routes", len(only))
	}
}
