package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kailas-cloud/mongoly/internal/db"
)

var _ db.Database = (*Database)(nil)

// Database adapts *mongo.Database to db.Database.
type Database struct {
	db *mongo.Database
}

// NewDatabase wraps a driver database handle.
func NewDatabase(d *mongo.Database) *Database {
	return &Database{db: d}
}

// Name returns the database name.
func (d *Database) Name() string { return d.db.Name() }

// Collection returns a handle for the named collection.
func (d *Database) Collection(name string) db.Collection {
	return NewCollection(d.db.Collection(name))
}

// ListCollectionNames lists collection names matching filter.
func (d *Database) ListCollectionNames(ctx context.Context, filter any) ([]string, error) {
	return d.db.ListCollectionNames(ctx, filter)
}

// CreateCollection creates a collection explicitly.
func (d *Database) CreateCollection(
	ctx context.Context, name string, opts ...*options.CreateCollectionOptions,
) error {
	return d.db.CreateCollection(ctx, name, opts...)
}

// RunCommand runs an administrative command and reports only its error.
func (d *Database) RunCommand(ctx context.Context, cmd any) error {
	return d.db.RunCommand(ctx, cmd).Err()
}
