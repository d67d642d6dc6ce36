package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mongoly"
	logpkg "github.com/kailas-cloud/mongoly/internal/logger"
	healthuc "github.com/kailas-cloud/mongoly/internal/usecase/health"
	provisionuc "github.com/kailas-cloud/mongoly/internal/usecase/provision"
)

// Error codes returned in errorResponse.Code.
const (
	codeUnauthorized   = "unauthorized"
	codeNotConfigured  = "collection_not_configured"
	codeInvalidConfig  = "invalid_config"
	codeTimeout        = "timeout"
	codeInternalError  = "internal_error"
	codeProvisionError = "provision_failed"
)

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Provisioner applies configured validators and indexes.
type Provisioner interface {
	Names() []string
	Apply(ctx context.Context, name string) (provisionuc.Result, error)
	ApplyAll(ctx context.Context) ([]provisionuc.Result, error)
}

// errorHandler tries to handle an error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type collectionsResponse struct {
	Collections []string `json:"collections"`
}

type applyAllResponse struct {
	Results []provisionuc.Result `json:"results"`
	Error   *errorResponse       `json:"error,omitempty"`
}

// Server is the admin HTTP API: health, metrics and on-demand provisioning.
type Server struct {
	health        HealthChecker
	provision     Provisioner
	gatherer      prometheus.Gatherer
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the admin server. A nil gatherer serves the default
// Prometheus registry.
func NewServer(health HealthChecker, provision Provisioner, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{health: health, provision: provision, gatherer: gatherer, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(provisionuc.ErrUnknownCollection, http.StatusNotFound, codeNotConfigured),
		sentinelHandler(mongoly.ErrInvalidSchema, http.StatusUnprocessableEntity, codeInvalidConfig),
		sentinelHandler(mongoly.ErrInvalidIndex, http.StatusUnprocessableEntity, codeInvalidConfig),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, codeTimeout),
	}
	return s
}

// Handler mounts the routes on a new chi router. Middlewares run in the
// order given, outermost first.
func (s *Server) Handler(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/collections", s.ListCollections)
	r.Post("/collections/ensure", s.EnsureAll)
	r.Post("/collections/{collection}/ensure", s.EnsureCollection)
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// ListCollections handles GET /collections.
func (s *Server) ListCollections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, collectionsResponse{Collections: s.provision.Names()})
}

// EnsureCollection handles POST /collections/{collection}/ensure.
func (s *Server) EnsureCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	ctx := logpkg.WithFields(r.Context(), zap.String("collection", name))

	res, err := s.provision.Apply(ctx, name)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EnsureAll handles POST /collections/ensure. Results of collections
// provisioned before a failure are returned alongside the error.
func (s *Server) EnsureAll(w http.ResponseWriter, r *http.Request) {
	results, err := s.provision.ApplyAll(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, applyAllResponse{Results: results})
		return
	}

	logpkg.FromContextOr(r.Context(), s.logger).Warn("provisioning stopped",
		zap.Int("completed", len(results)), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, applyAllResponse{
		Results: results,
		Error:   &errorResponse{Code: codeProvisionError, Message: safeMessage(err)},
	})
}

func (s *Server) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContextOr(ctx, s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeMessage(err))
		return true
	}
}

// safeMessage returns a sentinel message for the client without exposing
// driver internals.
func safeMessage(err error) string {
	sentinels := []error{
		provisionuc.ErrUnknownCollection,
		mongoly.ErrInvalidSchema,
		mongoly.ErrInvalidIndex,
		context.DeadlineExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
