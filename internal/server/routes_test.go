package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"zhi-server/internal/database"
	"zhi-server/internal/utility"
)

type stubDBService struct{}

func (stubDBService) Health() map[string]string { return map[string]string{"status": "up"} }
func (stubDBService) Close()                    {}
func (stubDBService) Queries() *database.Queries {
	return nil
}

func registeredRoutes(t *testing.T) map[string]bool {
	t.Helper()
	s := &Server{db: stubDBService{}}

	e, ok := s.RegisterRoutes().(*echo.Echo)
	if !ok {
		t.Fatalf("RegisterRoutes did not return an *echo.Echo")
	}

	routes := make(map[string]bool)
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	return routes
}

func TestRegisterRoutes_FlowEndpoints(t *testing.T) {
	routes := registeredRoutes(t)

	for _, want := range []string{
		"POST /chat",
		"POST /generate-title",
		"POST /extract-insights",
	} {
		if !routes[want] {
			t.Errorf("route %q not registered", want)
		}
	}
}

func TestRegisterRoutes_ProtectedSurfaces(t *testing.T) {
	routes := registeredRoutes(t)

	for _, want := range []string{
		"GET /health",
		"POST /conversations",
		"POST /conversations/:id/messages",
		"GET /insights",
		"GET /moods/summary",
		"GET /ws",
		"GET /admin/status",
	} {
		if !routes[want] {
			t.Errorf("route %q not registered", want)
		}
	}
}

func TestLoggerMiddleware_RequestID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *zerolog.Logger
	handler := LoggerMiddleware(func(c echo.Context) error {
		seen = utility.RequestLogger(c)
		return nil
	})
	if err := handler(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}

	if rec.Header().Get("X-Request-ID") == "" {
		t.Errorf("X-Request-ID header not set")
	}
	if c.Get("request_id") == "" {
		t.Errorf("request_id not stored in context")
	}
	if seen == nil || seen != c.Get("logger") {
		t.Errorf("handler did not receive the request-scoped logger")
	}
}

func TestLoggerMiddleware_PreservesIncomingRequestID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := LoggerMiddleware(func(c echo.Context) error { return nil })
	if err := handler(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}

	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}
