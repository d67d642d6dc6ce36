package mongoly

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/kailas-cloud/mongoly/internal/db"
	dbMongo "github.com/kailas-cloud/mongoly/internal/db/mongo"
)

const defaultReadinessTimeout = 10 * time.Second

// Client owns a driver connection and hands out observed handles.
type Client struct {
	store    db.Store
	obs      *observer
	database string
}

// New connects to the deployment and waits until it answers a ping.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{readinessTimeout: defaultReadinessTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.uri == "" {
		return nil, errors.New("mongoly: connection uri required (use WithURI)")
	}
	if cfg.database == "" {
		cs, err := connstring.ParseAndValidate(cfg.uri)
		if err != nil {
			return nil, fmt.Errorf("mongoly: parse uri: %w", err)
		}
		cfg.database = cs.Database
	}

	store, err := dbMongo.NewStore(ctx, dbMongo.Config{
		URI:            cfg.uri,
		AppName:        cfg.appName,
		ConnectTimeout: cfg.connectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("mongoly: create store: %w", err)
	}

	if cfg.readinessTimeout > 0 {
		if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("mongoly: database not ready: %w", err)
		}
	}

	c, err := wireClient(store, cfg)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return c, nil
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, obs: obs, database: cfg.database}, nil
}

// Close disconnects from the deployment.
func (c *Client) Close(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Close(ctx)
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Database returns an observed handle for the named database.
func (c *Client) Database(name string) Database {
	return &observedDatabase{inner: c.store.Database(name), obs: c.obs}
}

// DB returns the database configured with WithDatabase, or the one named
// in the connection string.
func (c *Client) DB() Database {
	return c.Database(c.database)
}

// Collection returns an observed handle for name in the default database.
func (c *Client) Collection(name string) Collection {
	return c.DB().Collection(name)
}
