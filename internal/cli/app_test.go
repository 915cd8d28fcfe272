package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"street-dispatch/internal/logger"
	"street-dispatch/internal/metrics"
	"street-dispatch/internal/models"
	"street-dispatch/internal/modules/dataimport"
	"street-dispatch/internal/modules/lookup"
	"street-dispatch/internal/modules/reports"
	"street-dispatch/internal/modules/requests"
	"street-dispatch/internal/modules/routes"
	"street-dispatch/internal/modules/streets"
	"street-dispatch/internal/modules/users"
	"street-dispatch/internal/store/memstore"
)

var reportNow = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

type harness struct {
	t      *testing.T
	store  *memstore.Store
	app    *App
	out    *bytes.Buffer
	inited bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memstore.New()
	log := logger.Discard()
	resolver := lookup.NewResolver(store.Users(), store.Streets(), store.Routes())

	h := &harness{t: t, store: store, out: &bytes.Buffer{}}
	svc := Services{
		Users:    users.NewService(store.Users(), resolver, "test-secret", time.Hour, log),
		Streets:  streets.NewService(store.Streets(), log),
		Routes:   routes.NewService(store.Routes(), resolver, nil, metrics.Nop{}, log),
		Requests: requests.NewService(store.Requests(), resolver, false, metrics.Nop{}, log),
		Reports: reports.NewService(store.Users(), store.Streets(), store.Routes(), store.Requests()).
			WithClock(func() time.Time { return reportNow }),
		Importer: dataimport.NewImporter(store.Streets(), store.Users(), store.Routes(), store.Requests(), log),
		Init: func(context.Context) error {
			h.inited = true
			return nil
		},
	}
	h.app = New(svc, h.out, log)
	return h
}

// run executes one command and returns its exit code and output.
func (h *harness) run(args ...string) (int, string) {
	h.t.Helper()
	h.out.Reset()
	code := h.app.Run(context.Background(), args)
	return code, h.out.String()
}

func (h *harness) mustRun(want string, args ...string) {
	h.t.Helper()
	code, out := h.run(args...)
	if code != 0 {
		h.t.Fatalf("%v exited %d: %s", args, code, out)
	}
	if !strings.Contains(out, want) {
		h.t.Fatalf("%v output = %q, want it to contain %q", args, out, want)
	}
}

func (h *harness) mustFail(want string, args ...string) {
	h.t.Helper()
	code, out := h.run(args...)
	if code != 1 {
		h.t.Fatalf("%v exited %d, want 1: %s", args, code, out)
	}
	if !strings.HasPrefix(out, "Error: ") || !strings.Contains(out, want) {
		h.t.Fatalf("%v output = %q, want an error containing %q", args, out, want)
	}
}

// seed creates Main St, driver d1 (id 1), resident r1 (id 2) and route 1.
func (h *harness) seed() {
	h.t.Helper()
	h.mustRun("Street Main St created with id 1", "street", "add", "--name", "Main St")
	h.mustRun("User d1 created with id 1", "user", "create", "--username", "d1", "--password", "pw", "--role", "driver")
	h.mustRun("User r1 created with id 2 and street 1", "user", "create", "--username", "r1", "--password", "pw", "--role", "resident", "--street-id", "1")
	h.mustRun("Route 1 scheduled", "route", "schedule", "--driver-id", "1", "--street-id", "1", "--time", "2025-01-01T09:00:00")
}

func TestScenario_RouteLifecycle(t *testing.T) {
	h := newHarness(t)
	h.seed()

	h.mustRun("Route 1 started. Status changed to 'on_the_way'.", "route", "start", "--route-id", "1")
	h.mustRun("Route 1 marked as arrived", "route", "arrive", "--route-id", "1")
	h.mustRun("Route 1 completed", "route", "complete", "--route-id", "1")
	h.mustFail("cannot cancel route 1 with status completed", "route", "cancel", "--route-id", "1")

	rt, _ := h.store.Routes().FindByID(context.Background(), 1)
	if rt.Status != models.RouteCompleted {
		t.Errorf("status = %s after failed cancel", rt.Status)
	}
}

func TestScenario_RequestDeclineThenFulfill(t *testing.T) {
	h := newHarness(t)
	h.seed()
	h.mustRun("on_the_way", "route", "start", "--route-id", "1")

	h.mustRun("Request 1 created for route 1 with status requested.",
		"request", "open", "--resident-id", "2", "--route-id", "1", "--quantity", "3", "--notes", "leave at door")
	h.mustRun("Request 1 status changed from requested to available.", "request", "manage", "--request-id", "1", "--action", "decline")
	h.mustRun("Request 1 status changed from available to completed.", "request", "manage", "--request-id", "1", "--action", "fulfill")

	h.mustRun("Request ID: 1, Resident: r1, Quantity: 3, Notes: leave at door, Status: completed", "request", "list", "--route-id", "1")
}

func TestScenario_UnknownUserMutatesNothing(t *testing.T) {
	h := newHarness(t)
	h.seed()
	ctx := context.Background()

	h.mustFail("user 9999 not found", "request", "open", "--resident-id", "9999", "--route-id", "1", "--quantity", "1")
	h.mustFail("user 9999 not found", "route", "update-location", "--driver-id", "9999", "--lat", "1", "--lng", "2")
	h.mustFail("9999", "route", "schedule", "--driver-id", "9999", "--street-id", "1", "--time", "2025-01-01T10:00:00")

	if n, _ := h.store.Requests().Count(ctx); n != 0 {
		t.Errorf("requests = %d", n)
	}
	if n, _ := h.store.Routes().Count(ctx); n != 1 {
		t.Errorf("routes = %d", n)
	}
}

func TestScenario_BadTimeCreatesNoRoute(t *testing.T) {
	h := newHarness(t)
	h.mustRun("created", "street", "add", "--name", "Main St")
	h.mustRun("created", "user", "create", "--username", "d1", "--password", "pw", "--role", "driver")

	h.mustFail(`"not-a-date" is not an ISO-8601 timestamp`, "route", "schedule", "--driver-id", "1", "--street-id", "1", "--time", "not-a-date")
	if n, _ := h.store.Routes().Count(context.Background()); n != 0 {
		t.Errorf("routes = %d, want 0", n)
	}
}

func TestRun_OpenOnClosedRouteCreatesNoRequest(t *testing.T) {
	h := newHarness(t)
	h.seed()
	h.mustRun("cancelled", "route", "cancel", "--route-id", "1")

	h.mustFail("cannot request a stop for route 1 with status cancelled",
		"request", "open", "--resident-id", "2", "--route-id", "1", "--quantity", "1")
	if n, _ := h.store.Requests().Count(context.Background()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestRun_LocationUpdateNeedsActiveRoute(t *testing.T) {
	h := newHarness(t)
	h.seed()

	h.mustFail("no active route", "route", "update-location", "--driver-id", "1", "--lat", "40.7", "--lng", "-74.0")
	rt, _ := h.store.Routes().FindByID(context.Background(), 1)
	if rt.CurrentLat != nil {
		t.Error("location written without an active route")
	}

	h.mustRun("on_the_way", "route", "start", "--route-id", "1")
	h.mustRun("Driver 1 location updated to lat: 40.7, lng: -74 for route 1.", "route", "update-location", "--driver-id", "1", "--lat", "40.7", "--lng", "-74.0")
}

func TestRun_RouteListIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.seed()
	h.mustRun("Route 2 scheduled", "route", "schedule", "--driver-id", "1", "--street-id", "1", "--time", "2024-06-01T09:00:00")

	_, first := h.run("route", "list")
	_, second := h.run("route", "list")
	if first != second {
		t.Errorf("route list changed between calls:\n%s\n%s", first, second)
	}
	lines := strings.Split(strings.TrimSpace(first), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "Route ID: 2, Driver: d1, Street: Main St") {
		t.Errorf("route list = %q", first)
	}

	_, out := h.run("route", "list", "--status", "on the way")
	if out != "No routes found.\n" {
		t.Errorf("filtered list = %q", out)
	}
}

func TestRun_SetStatusIsAnOverride(t *testing.T) {
	h := newHarness(t)
	h.seed()
	h.mustRun("Route 1 status changed from scheduled to completed.", "route", "set-status", "--route-id", "1", "--status", "completed")
	h.mustFail("cannot complete route 1 with status completed", "route", "complete", "--route-id", "1")

	h.mustRun("Route 1 status changed from completed to scheduled.", "route", "set-status", "--route-id", "1", "--status", "scheduled")
	h.mustFail("is not a route status", "route", "set-status", "--route-id", "1", "--status", "lost")
}

func TestRun_StreetMustBeUnique(t *testing.T) {
	h := newHarness(t)
	h.mustRun("created", "street", "add", "--name", "Main St")
	h.mustFail("Main St", "street", "add", "--name", "Main St")

	if n, _ := h.store.Streets().Count(context.Background()); n != 1 {
		t.Errorf("streets = %d, want 1", n)
	}
}

func TestRun_ResidentInbox(t *testing.T) {
	h := newHarness(t)
	h.seed()

	h.mustRun("Route(s) scheduled for street Main St:", "resident", "inbox", "--resident-id", "2")
	h.mustFail("user 1 (d1) is not a resident", "resident", "inbox", "--resident-id", "1")

	h.mustRun("created", "user", "create", "--username", "r2", "--password", "pw", "--role", "resident")
	h.mustFail("no street assigned", "resident", "inbox", "--resident-id", "3")

	h.mustRun("User r2 now lives on street Main St", "user", "update-street", "--user-id", "3", "--street-id", "1")
	h.mustRun("Route ID: 1", "resident", "inbox", "--resident-id", "3")
}

func TestRun_DriverStatus(t *testing.T) {
	h := newHarness(t)
	h.seed()

	h.mustRun("No current deliveries.\nNext Route: Driver d1 is scheduled to go to street Main St at 2025-01-01T09:00:00Z.",
		"driver", "status", "--driver-id", "1")

	h.mustRun("on_the_way", "route", "start", "--route-id", "1")
	h.mustRun("Current Route: ID = 1 on Main St scheduled for 2025-01-01T09:00:00Z with status on_the_way.\nNo upcoming deliveries.",
		"driver", "status", "--driver-id", "1")
}

func TestRun_UserListFormats(t *testing.T) {
	h := newHarness(t)
	h.seed()

	h.mustRun("User ID: 2, Username: r1, Role: resident, Street ID: 1", "user", "list")

	_, out := h.run("user", "list", "--format", "json")
	var got []models.User
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("json output: %v\n%s", err, out)
	}
	if len(got) != 2 || got[0].Username != "d1" {
		t.Errorf("users = %+v", got)
	}
	if strings.Contains(out, "password") {
		t.Error("json listing leaked a password field")
	}

	h.mustFail("format", "user", "list", "--format", "xml")
}

func TestRun_ResidentWithoutStreetHint(t *testing.T) {
	h := newHarness(t)
	h.mustRun("You can add street_id later", "user", "create", "--username", "r1", "--password", "pw", "--role", "resident")
}

func TestRun_DataImport(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "seed.json")
	doc := `{"streets":[{"name":"Main St"}],"users":[{"username":"d1","password":"pw","role":"driver"}],
		"routes":[{"driver":"d1","street":"Main St","scheduled_time":"2025-01-01T09:00:00"}]}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	h.mustRun("Routes: 1 created, 0 updated, 0 unchanged (1 total)", "data", "import", "--file", path)
	h.mustRun("Routes: 0 created, 0 updated, 1 unchanged (1 total)", "data", "import", "--file", path)
	h.mustRun("Existing data cleared.", "data", "import", "--file", path, "--clear")
	h.mustFail("missing.json", "data", "import", "--file", filepath.Join(t.TempDir(), "missing.json"))
}

func TestRun_Init(t *testing.T) {
	h := newHarness(t)
	h.mustRun("Database initialized.", "init")
	if !h.inited {
		t.Error("init did not run migrations")
	}
}

func TestRun_UsageErrors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"no args", nil, 2, "Usage: dispatchctl"},
		{"help", []string{"help"}, 0, "route schedule"},
		{"unknown", []string{"route", "teleport"}, 2, "Unknown command: route teleport"},
		{"missing flag", []string{"street", "add"}, 2, "missing --name"},
		{"bad int", []string{"route", "start", "--route-id", "abc"}, 2, "Usage: dispatchctl route start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := h.run(tt.args...)
			if code != tt.code || !strings.Contains(out, tt.want) {
				t.Errorf("Run(%v) = %d, %q; want %d containing %q", tt.args, code, out, tt.code, tt.want)
			}
		})
	}
}
