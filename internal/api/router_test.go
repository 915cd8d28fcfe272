package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"street-dispatch/internal/api/middleware"
	"street-dispatch/internal/logger"
	"street-dispatch/internal/metrics"
	"street-dispatch/internal/models"
	"street-dispatch/internal/modules/lookup"
	"street-dispatch/internal/modules/reports"
	"street-dispatch/internal/modules/requests"
	"street-dispatch/internal/modules/routes"
	"street-dispatch/internal/modules/streets"
	"street-dispatch/internal/modules/users"
	"street-dispatch/internal/store/memstore"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const testSecret = "router-test-secret"

type server struct {
	t     *testing.T
	e     *echo.Echo
	store *memstore.Store
}

func newServer(t *testing.T) *server {
	t.Helper()
	store := memstore.New()
	log := logger.Discard()
	resolver := lookup.NewResolver(store.Users(), store.Streets(), store.Routes())
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	e := echo.New()
	e.Use(middleware.Metrics(collector))
	SetupRoutes(e, Handlers{
		Users:    users.NewHandler(users.NewService(store.Users(), resolver, testSecret, time.Hour, log)),
		Streets:  streets.NewHandler(streets.NewService(store.Streets(), log)),
		Routes:   routes.NewHandler(routes.NewService(store.Routes(), resolver, nil, collector, log)),
		Requests: requests.NewHandler(requests.NewService(store.Requests(), resolver, false, collector, log)),
		Reports:  reports.NewHandler(reports.NewService(store.Users(), store.Streets(), store.Routes(), store.Requests())),
	}, testSecret, reg, log)

	return &server{t: t, e: e, store: store}
}

func (s *server) do(method, path, token, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// register creates an account over HTTP and returns a token for it.
func (s *server) register(username, role, extra string) string {
	s.t.Helper()
	body := `{"username":"` + username + `","password":"pw","role":"` + role + `"` + extra + `}`
	if rec := s.do(http.MethodPost, "/users", "", body); rec.Code != http.StatusCreated {
		s.t.Fatalf("register %s = %d: %s", username, rec.Code, rec.Body)
	}

	rec := s.do(http.MethodPost, "/auth/login", "", `{"username":"`+username+`","password":"pw"}`)
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s = %d: %s", username, rec.Code, rec.Body)
	}
	var auth models.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &auth); err != nil || auth.AccessToken == "" {
		s.t.Fatalf("login response %s: %v", rec.Body, err)
	}
	return auth.AccessToken
}

func TestRouter_PublicEndpoints(t *testing.T) {
	s := newServer(t)

	if rec := s.do(http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusOK {
		t.Errorf("metrics = %d", rec.Code)
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := s.do(http.MethodGet, "/routes", tt.token, ""); rec.Code != http.StatusUnauthorized {
				t.Errorf("GET /routes = %d, want 401", rec.Code)
			}
		})
	}
}

func TestRouter_LoginRejectsBadPassword(t *testing.T) {
	s := newServer(t)
	s.register("d1", "driver", "")

	rec := s.do(http.MethodPost, "/auth/login", "", `{"username":"d1","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login = %d, want 401", rec.Code)
	}
}

func TestRouter_RouteWorkflow(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	street, _ := s.store.Streets().Create(ctx, "Main St")

	driver := s.register("d1", "driver", "")
	resident := s.register("r1", "resident", `,"street_id":1`)
	if street.ID != 1 {
		t.Fatalf("street id = %d", street.ID)
	}

	rec := s.do(http.MethodPost, "/routes", driver, `{"driver_id":1,"street_id":1,"time":"2099-01-01T09:00:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("schedule = %d: %s", rec.Code, rec.Body)
	}

	if rec := s.do(http.MethodPost, "/routes/1/start", resident, ""); rec.Code != http.StatusForbidden {
		t.Errorf("resident start = %d, want 403", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/routes/1/start", driver, ""); rec.Code != http.StatusOK {
		t.Fatalf("driver start = %d: %s", rec.Code, rec.Body)
	}
	if rec := s.do(http.MethodPost, "/routes/1/start", driver, ""); rec.Code != http.StatusConflict {
		t.Errorf("second start = %d, want 409", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/routes/99/start", driver, ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route start = %d, want 404", rec.Code)
	}

	rec = s.do(http.MethodPost, "/routes/1/requests", resident, `{"quantity":2,"notes":"side door"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open request = %d: %s", rec.Code, rec.Body)
	}
	if rec := s.do(http.MethodPut, "/requests/1", driver, `{"action":"accept"}`); rec.Code != http.StatusOK {
		t.Errorf("accept = %d: %s", rec.Code, rec.Body)
	}

	if rec := s.do(http.MethodPut, "/drivers/me/location", driver, `{"lat":40.7,"lng":-74}`); rec.Code != http.StatusOK {
		t.Errorf("location = %d: %s", rec.Code, rec.Body)
	}
	if rec := s.do(http.MethodGet, "/drivers/me/status", driver, ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d: %s", rec.Code, rec.Body)
	}
	if rec := s.do(http.MethodGet, "/routes/1/stops", resident, ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "side door") {
		t.Errorf("stops = %d: %s", rec.Code, rec.Body)
	}
}

func TestRouter_ErrorMapping(t *testing.T) {
	s := newServer(t)
	s.store.Streets().Create(context.Background(), "Main St")
	driver := s.register("d1", "driver", "")
	resident := s.register("r2", "resident", "")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"bad time", http.MethodPost, "/routes", driver, `{"driver_id":1,"street_id":1,"time":"not-a-date"}`, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/routes?status=lost", driver, "", http.StatusBadRequest},
		{"no active route", http.MethodPut, "/drivers/me/location", driver, `{"lat":1,"lng":2}`, http.StatusUnprocessableEntity},
		{"no street", http.MethodGet, "/residents/me/inbox", resident, "", http.StatusUnprocessableEntity},
		{"wrong role for inbox", http.MethodGet, "/residents/me/inbox", driver, "", http.StatusForbidden},
		{"duplicate street", http.MethodPost, "/streets", driver, `{"name":"Main St"}`, http.StatusBadRequest},
		{"unknown request", http.MethodPut, "/requests/42", driver, `{"action":"accept"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.path, rec.Code, tt.want, rec.Body)
			}
		})
	}
}
