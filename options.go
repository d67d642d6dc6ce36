package mongoly

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	uri              string
	appName          string
	database         string
	connectTimeout   time.Duration
	readinessTimeout time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithURI sets the connection string, e.g. mongodb://localhost:27017.
func WithURI(uri string) Option {
	return optionFunc(func(c *clientConfig) {
		c.uri = uri
	})
}

// WithAppName sets the application name reported to the server.
func WithAppName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.appName = name
	})
}

// WithDatabase sets the database returned by Client.DB. Defaults to the
// database named in the connection string.
func WithDatabase(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.database = name
	})
}

// WithConnectTimeout bounds a single connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.connectTimeout = d
	})
}

// WithReadinessTimeout bounds how long New waits for the deployment to
// answer a ping. Default: 10s. A negative value skips the wait.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging of driver operations.
// Without it the logger stored in the call context is used, if any.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers operation counters and durations on reg.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
