package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mongoly/internal/config"
	"github.com/kailas-cloud/mongoly/internal/metrics"
)

// ErrUnknownCollection is returned for a collection missing from config.
var ErrUnknownCollection = errors.New("collection not configured")

// Step names used in results and metrics.
const (
	StepSchema  = "schema"
	StepIndexes = "indexes"
)

// Result reports what provisioning did to one collection.
type Result struct {
	Collection string   `json:"collection"`
	Schema     string   `json:"schema"` // created, updated, unchanged or skipped
	Indexes    []string `json:"indexes,omitempty"`
	Dropped    bool     `json:"dropped_indexes,omitempty"`
}

// Service provisions the collections declared in configuration.
type Service struct {
	p           Provisioner
	collections []config.CollectionConfig
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// New creates a provisioning service. m may be nil.
func New(p Provisioner, collections []config.CollectionConfig, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{p: p, collections: collections, metrics: m, logger: logger}
}

// Names lists the configured collections in declaration order.
func (s *Service) Names() []string {
	return lo.Map(s.collections, func(c config.CollectionConfig, _ int) string { return c.Name })
}

// ApplyAll provisions every configured collection in order and stops at
// the first failure. Results for collections already done are returned.
func (s *Service) ApplyAll(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(s.collections))
	for _, cc := range s.collections {
		r, err := s.apply(ctx, cc)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// Apply provisions one configured collection.
func (s *Service) Apply(ctx context.Context, name string) (Result, error) {
	cc, ok := lo.Find(s.collections, func(c config.CollectionConfig) bool { return c.Name == name })
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return s.apply(ctx, cc)
}

func (s *Service) apply(ctx context.Context, cc config.CollectionConfig) (Result, error) {
	start := time.Now()
	log := s.logger.With(zap.String("collection", cc.Name))
	res := Result{Collection: cc.Name, Schema: "skipped"}

	schema, err := cc.SchemaNode()
	if err != nil {
		s.metrics.ObserveStep(cc.Name, StepSchema, "error")
		return res, fmt.Errorf("provision %s: %w", cc.Name, err)
	}
	if schema != nil {
		action, err := s.p.EnsureSchema(ctx, cc.Name, schema)
		if err != nil {
			s.metrics.ObserveStep(cc.Name, StepSchema, "error")
			return res, fmt.Errorf("provision %s: %w", cc.Name, err)
		}
		res.Schema = action.String()
	}
	s.metrics.ObserveStep(cc.Name, StepSchema, res.Schema)

	models := make([]mongo.IndexModel, 0, len(cc.Indexes))
	for i, ic := range cc.Indexes {
		def, err := ic.Definition()
		if err != nil {
			s.metrics.ObserveStep(cc.Name, StepIndexes, "error")
			return res, fmt.Errorf("provision %s: index %d: %w", cc.Name, i, err)
		}
		log.Debug("index declared", zap.Stringer("index", def))
		models = append(models, def.Model())
	}

	if cc.DropIndexes || len(models) > 0 {
		names, err := s.p.EnsureIndexes(ctx, cc.Name, cc.DropIndexes, models)
		if err != nil {
			s.metrics.ObserveStep(cc.Name, StepIndexes, "error")
			return res, fmt.Errorf("provision %s: %w", cc.Name, err)
		}
		res.Indexes = names
		res.Dropped = cc.DropIndexes
		s.metrics.ObserveStep(cc.Name, StepIndexes, "applied")
	} else {
		s.metrics.ObserveStep(cc.Name, StepIndexes, "skipped")
	}

	s.metrics.ObserveCollection(cc.Name, time.Since(start).Seconds())
	log.Info("collection provisioned",
		zap.String("schema", res.Schema),
		zap.Strings("indexes", res.Indexes),
		zap.Bool("dropped_indexes", res.Dropped),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}
