package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the connection-level facade: one client, many databases.
type Store interface {
	Pinger
	Database(name string) Database
	Close(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Collection is the narrow per-collection surface used by the helpers.
//
//nolint:interfacebloat // mirrors the driver calls the helpers delegate to
type Collection interface {
	Name() string
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	FindOneAndUpdate(
		ctx context.Context, filter, update any, opts ...*options.FindOneAndUpdateOptions,
	) *mongo.SingleResult
	FindOneAndDelete(ctx context.Context, filter any, opts ...*options.FindOneAndDeleteOptions) *mongo.SingleResult
	Aggregate(ctx context.Context, pipeline any, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
	CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error)
	DropIndexes(ctx context.Context) error
	// Options returns the collection's creation options (validator,
	// validationLevel, ...). An empty document means none were set.
	Options(ctx context.Context) (bson.Raw, error)
}

// Database is the narrow per-database surface used by provisioning.
type Database interface {
	Name() string
	Collection(name string) Collection
	ListCollectionNames(ctx context.Context, filter any) ([]string, error)
	CreateCollection(ctx context.Context, name string, opts ...*options.CreateCollectionOptions) error
	RunCommand(ctx context.Context, cmd any) error
}
