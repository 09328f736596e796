package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type mockRequestMetrics struct {
	mu       sync.Mutex
	statuses []int
	routes   []string
}

func (m *mockRequestMetrics) RecordHTTPStatus(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, statusCode)
}

func (m *mockRequestMetrics) RecordRequestLatency(route string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, route)
}

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	m := &mockRequestMetrics{}

	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(m))
	r.Get("/api/v1/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/books/42", nil))

	if len(m.statuses) != 1 || m.statuses[0] != http.StatusOK {
		t.Errorf("statuses = %v, want [200]", m.statuses)
	}
	if len(m.routes) != 1 || m.routes[0] != "/api/v1/books/{id}" {
		t.Errorf("routes = %v, want [/api/v1/books/{id}]", m.routes)
	}
}

func TestMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	m := &mockRequestMetrics{}

	handler := NewMetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if len(m.routes) != 1 || m.routes[0] != "unmatched" {
		t.Errorf("routes = %v, want [unmatched]", m.routes)
	}
	if m.statuses[0] != http.StatusNotFound {
		t.Errorf("status = %d, want 404", m.statuses[0])
	}
}
