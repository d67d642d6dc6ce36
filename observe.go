package mongoly

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mongoly/internal/db"
	"github.com/kailas-cloud/mongoly/internal/logger"
)

// driverMetrics holds prometheus metrics for observed driver calls.
type driverMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newDriverMetrics(reg prometheus.Registerer) (*driverMetrics, error) {
	m := &driverMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mongoly",
			Subsystem: "driver",
			Name:      "operations_total",
			Help:      "Total driver operations by command and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mongoly",
			Subsystem: "driver",
			Name:      "operation_duration_seconds",
			Help:      "Driver operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("mongoly: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("mongoly: register metric: %w", err)
	}
	return nil
}

// observer logs and counts driver calls made through observed handles.
type observer struct {
	logger  *zap.Logger
	metrics *driverMetrics
}

func newObserver(l *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *driverMetrics
	if reg != nil {
		var err error
		m, err = newDriverMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: l, metrics: m}, nil
}

func (o *observer) observe(ctx context.Context, op, coll string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	// A miss is a normal answer, not a failure.
	if errors.Is(err, mongo.ErrNoDocuments) {
		err = nil
	}

	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	l := o.logger
	if l == nil {
		l = logger.FromContext(ctx)
	}
	if err != nil {
		l.Warn("operation failed",
			zap.String("op", op),
			zap.String("collection", coll),
			zap.Duration("duration", dur),
			zap.Error(err),
		)
		return
	}
	l.Debug("operation completed",
		zap.String("op", op),
		zap.String("collection", coll),
		zap.Duration("duration", dur),
	)
}

var (
	_ db.Collection = (*observedCollection)(nil)
	_ db.Database   = (*observedDatabase)(nil)
)

// observedDatabase decorates a Database so every call is observed.
type observedDatabase struct {
	inner db.Database
	obs   *observer
}

func (d *observedDatabase) Name() string { return d.inner.Name() }

func (d *observedDatabase) Collection(name string) db.Collection {
	return &observedCollection{inner: d.inner.Collection(name), obs: d.obs}
}

func (d *observedDatabase) ListCollectionNames(ctx context.Context, filter any) ([]string, error) {
	start := time.Now()
	names, err := d.inner.ListCollectionNames(ctx, filter)
	d.obs.observe(ctx, db.OpListCollections, "", start, err)
	return names, err
}

func (d *observedDatabase) CreateCollection(
	ctx context.Context, name string, opts ...*options.CreateCollectionOptions,
) error {
	start := time.Now()
	err := d.inner.CreateCollection(ctx, name, opts...)
	d.obs.observe(ctx, db.OpCreate, name, start, err)
	return err
}

func (d *observedDatabase) RunCommand(ctx context.Context, cmd any) error {
	start := time.Now()
	err := d.inner.RunCommand(ctx, cmd)
	d.obs.observe(ctx, commandName(cmd), "", start, err)
	return err
}

// observedCollection decorates a Collection so every call is observed.
type observedCollection struct {
	inner db.Collection
	obs   *observer
}

func (c *observedCollection) Name() string { return c.inner.Name() }

func (c *observedCollection) FindOne(
	ctx context.Context, filter any, opts ...*options.FindOneOptions,
) *mongo.SingleResult {
	start := time.Now()
	res := c.inner.FindOne(ctx, filter, opts...)
	c.obs.observe(ctx, db.OpFind, c.Name(), start, res.Err())
	return res
}

func (c *observedCollection) UpdateOne(
	ctx context.Context, filter, update any, opts ...*options.UpdateOptions,
) (*mongo.UpdateResult, error) {
	start := time.Now()
	res, err := c.inner.UpdateOne(ctx, filter, update, opts...)
	c.obs.observe(ctx, db.OpUpdate, c.Name(), start, err)
	return res, err
}

func (c *observedCollection) DeleteOne(
	ctx context.Context, filter any, opts ...*options.DeleteOptions,
) (*mongo.DeleteResult, error) {
	start := time.Now()
	res, err := c.inner.DeleteOne(ctx, filter, opts...)
	c.obs.observe(ctx, db.OpDelete, c.Name(), start, err)
	return res, err
}

func (c *observedCollection) FindOneAndUpdate(
	ctx context.Context, filter, update any, opts ...*options.FindOneAndUpdateOptions,
) *mongo.SingleResult {
	start := time.Now()
	res := c.inner.FindOneAndUpdate(ctx, filter, update, opts...)
	c.obs.observe(ctx, db.OpFindAndModify, c.Name(), start, res.Err())
	return res
}

func (c *observedCollection) FindOneAndDelete(
	ctx context.Context, filter any, opts ...*options.FindOneAndDeleteOptions,
) *mongo.SingleResult {
	start := time.Now()
	res := c.inner.FindOneAndDelete(ctx, filter, opts...)
	c.obs.observe(ctx, db.OpFindAndModify, c.Name(), start, res.Err())
	return res
}

func (c *observedCollection) Aggregate(
	ctx context.Context, pipeline any, opts ...*options.AggregateOptions,
) (*mongo.Cursor, error) {
	start := time.Now()
	cur, err := c.inner.Aggregate(ctx, pipeline, opts...)
	c.obs.observe(ctx, db.OpAggregate, c.Name(), start, err)
	return cur, err
}

func (c *observedCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error) {
	start := time.Now()
	names, err := c.inner.CreateIndexes(ctx, models)
	c.obs.observe(ctx, db.OpCreateIndexes, c.Name(), start, err)
	return names, err
}

func (c *observedCollection) DropIndexes(ctx context.Context) error {
	start := time.Now()
	err := c.inner.DropIndexes(ctx)
	c.obs.observe(ctx, db.OpDropIndexes, c.Name(), start, err)
	return err
}

func (c *observedCollection) Options(ctx context.Context) (bson.Raw, error) {
	start := time.Now()
	opts, err := c.inner.Options(ctx)
	c.obs.observe(ctx, db.OpListCollections, c.Name(), start, err)
	return opts, err
}

// commandName returns the first key of an ordered command document.
func commandName(cmd any) string {
	if d, ok := cmd.(bson.D); ok && len(d) > 0 {
		return d[0].Key
	}
	return "command"
}
