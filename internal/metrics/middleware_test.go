package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter(t *testing.T) (*chi.Mux, *Metrics) {
	t.Helper()
	m := New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(m.Middleware())
	return r, m
}

func TestMetricsMiddleware_RecordsDurationAndCount(t *testing.T) {
	r, m := newRouter(t)
	r.Post("/collections/{name}/ensure", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest("POST", "/collections/users/ensure", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	// Route pattern, not the raw path, keeps label cardinality bounded.
	requestsVal := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/collections/{name}/ensure", "200"))
	if requestsVal != 1 {
		t.Errorf("expected http_requests_total = 1, got %f", requestsVal)
	}

	if testutil.CollectAndCount(m.httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMetricsMiddleware_DifferentStatusCodes(t *testing.T) {
	r, m := newRouter(t)
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/notfound", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/error", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.WriteHeader(http.StatusOK) // ignored, first status wins
	})

	tests := []struct {
		path           string
		expectedStatus string
	}{
		{"/ok", "200"},
		{"/notfound", "404"},
		{"/error", "500"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, http.NoBody)
			r.ServeHTTP(httptest.NewRecorder(), req)

			val := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", tc.path, tc.expectedStatus))
			if val != 1 {
				t.Errorf("expected requests_total for %s with status %s = 1, got %f", tc.path, tc.expectedStatus, val)
			}
		})
	}
}

func TestMetricsMiddleware_WithoutChiContext(t *testing.T) {
	m := New(prometheus.NewRegistry())
	h := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/raw", http.NoBody))

	if val := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "unknown", "204")); val != 1 {
		t.Errorf("expected unknown path label, got %f", val)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unknown"},
		{"/collections/{name}/ensure", "/collections/{name}/ensure"},
		{"/health", "/health"},
	}

	for _, tc := range tests {
		result := normalizePath(tc.input)
		if result != tc.expected {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.input, result, tc.expected)
		}
	}
}

func TestObserveStep(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveStep("users", "schema", "created")
	m.ObserveStep("users", "schema", "created")
	m.ObserveCollection("users", 0.25)

	if val := testutil.ToFloat64(m.provisionTotal.WithLabelValues("users", "schema", "created")); val != 2 {
		t.Errorf("provision_steps_total = %f, want 2", val)
	}
	if testutil.CollectAndCount(m.provisionDuration) != 1 {
		t.Error("expected one provision_duration_seconds series")
	}
}

func TestObserve_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveStep("users", "indexes", "error")
	m.ObserveCollection("users", 1)
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	New(reg)
}
