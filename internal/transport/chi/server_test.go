package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/mongoly"
	healthuc "github.com/kailas-cloud/mongoly/internal/usecase/health"
	provisionuc "github.com/kailas-cloud/mongoly/internal/usecase/provision"
)

// --- Mocks ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type mockProvisioner struct {
	names      []string
	applyFn    func(ctx context.Context, name string) (provisionuc.Result, error)
	applyAllFn func(ctx context.Context) ([]provisionuc.Result, error)
}

func (m *mockProvisioner) Names() []string { return m.names }

func (m *mockProvisioner) Apply(ctx context.Context, name string) (provisionuc.Result, error) {
	return m.applyFn(ctx, name)
}

func (m *mockProvisioner) ApplyAll(ctx context.Context) ([]provisionuc.Result, error) {
	return m.applyAllFn(ctx)
}

func newTestServer(h HealthChecker, p Provisioner) http.Handler {
	return NewServer(h, p, prometheus.NewRegistry(), nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

// --- Tests ---

func TestHealthCheck_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		status healthuc.Status
		want   int
	}{
		{"healthy", healthuc.Healthy, http.StatusOK},
		{"degraded", healthuc.Degraded, http.StatusServiceUnavailable},
		{"unhealthy", healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &mockHealth{report: healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
			}}
			rr := do(t, newTestServer(h, &mockProvisioner{}), http.MethodGet, "/health")

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			var report healthuc.Report
			if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if report.Status != tt.status || report.Checks["database"] != healthuc.CheckOK {
				t.Errorf("report = %+v", report)
			}
		})
	}
}

func TestMetrics_ServesGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "mongoly_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	h := NewServer(&mockHealth{}, &mockProvisioner{}, reg, nil).Handler()
	rr := do(t, h, http.MethodGet, "/metrics")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "mongoly_test_total 1") {
		t.Errorf("metrics body missing counter:\n%s", rr.Body.String())
	}
}

func TestListCollections(t *testing.T) {
	h := newTestServer(&mockHealth{}, &mockProvisioner{names: []string{"users", "posts"}})
	rr := do(t, h, http.MethodGet, "/collections")

	var resp collectionsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Collections) != 2 || resp.Collections[0] != "users" {
		t.Errorf("collections = %v", resp.Collections)
	}
}

func TestEnsureCollection_OK(t *testing.T) {
	var got string
	p := &mockProvisioner{applyFn: func(_ context.Context, name string) (provisionuc.Result, error) {
		got = name
		return provisionuc.Result{Collection: name, Schema: "created", Indexes: []string{"email_1"}}, nil
	}}
	rr := do(t, newTestServer(&mockHealth{}, p), http.MethodPost, "/collections/users/ensure")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if got != "users" {
		t.Errorf("applied %q, want users", got)
	}
	var res provisionuc.Result
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Schema != "created" || len(res.Indexes) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestEnsureCollection_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			"unknown collection",
			fmt.Errorf("%w: %q", provisionuc.ErrUnknownCollection, "ghost"),
			http.StatusNotFound, codeNotConfigured,
		},
		{
			"invalid schema",
			fmt.Errorf("provision users: %w", mongoly.ErrInvalidSchema),
			http.StatusUnprocessableEntity, codeInvalidConfig,
		},
		{
			"invalid index",
			fmt.Errorf("provision users: %w", mongoly.ErrInvalidIndex),
			http.StatusUnprocessableEntity, codeInvalidConfig,
		},
		{
			"timeout",
			fmt.Errorf("provision users: %w", context.DeadlineExceeded),
			http.StatusGatewayTimeout, codeTimeout,
		},
		{
			"driver error",
			errors.New("connection reset by peer"),
			http.StatusInternalServerError, codeInternalError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvisioner{applyFn: func(context.Context, string) (provisionuc.Result, error) {
				return provisionuc.Result{}, tt.err
			}}
			rr := do(t, newTestServer(&mockHealth{}, p), http.MethodPost, "/collections/users/ensure")

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			resp := decodeError(t, rr)
			if resp.Code != tt.wantBody {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantBody)
			}
		})
	}
}

func TestEnsureCollection_InternalErrorHidesDetails(t *testing.T) {
	p := &mockProvisioner{applyFn: func(context.Context, string) (provisionuc.Result, error) {
		return provisionuc.Result{}, errors.New("auth failed for user admin@10.0.0.3")
	}}
	rr := do(t, newTestServer(&mockHealth{}, p), http.MethodPost, "/collections/users/ensure")

	if resp := decodeError(t, rr); resp.Message != "internal error" {
		t.Errorf("message = %q, want internal error", resp.Message)
	}
}

func TestEnsureAll(t *testing.T) {
	p := &mockProvisioner{applyAllFn: func(context.Context) ([]provisionuc.Result, error) {
		return []provisionuc.Result{
			{Collection: "users", Schema: "unchanged"},
			{Collection: "posts", Schema: "updated"},
		}, nil
	}}
	rr := do(t, newTestServer(&mockHealth{}, p), http.MethodPost, "/collections/ensure")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp applyAllResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 2 || resp.Error != nil {
		t.Errorf("response = %+v", resp)
	}
}

func TestEnsureAll_PartialFailure(t *testing.T) {
	p := &mockProvisioner{applyAllFn: func(context.Context) ([]provisionuc.Result, error) {
		return []provisionuc.Result{{Collection: "users", Schema: "created"}}, errors.New("boom")
	}}
	rr := do(t, newTestServer(&mockHealth{}, p), http.MethodPost, "/collections/ensure")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp applyAllResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Collection != "users" {
		t.Errorf("results = %+v", resp.Results)
	}
	if resp.Error == nil || resp.Error.Code != codeProvisionError || resp.Error.Message != "internal error" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestHandler_AuthGuardsProvisioning(t *testing.T) {
	p := &mockProvisioner{names: []string{"users"}}
	h := NewServer(&mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}, p, prometheus.NewRegistry(), nil).
		Handler(BearerAuthMiddleware([]string{"secret"}))

	if rr := do(t, h, http.MethodGet, "/collections"); rr.Code != http.StatusUnauthorized {
		t.Errorf("collections without token: got %d, want 401", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/health"); rr.Code != http.StatusOK {
		t.Errorf("health without token: got %d, want 200", rr.Code)
	}
}
