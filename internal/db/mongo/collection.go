package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kailas-cloud/mongoly/internal/db"
)

var _ db.Collection = (*Collection)(nil)

// Collection adapts *mongo.Collection to db.Collection.
type Collection struct {
	coll *mongo.Collection
}

// NewCollection wraps a driver collection handle.
func NewCollection(c *mongo.Collection) *Collection {
	return &Collection{coll: c}
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.coll.Name() }

// FindOne delegates to the driver.
func (c *Collection) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult {
	return c.coll.FindOne(ctx, filter, opts...)
}

// UpdateOne delegates to the driver.
func (c *Collection) UpdateOne(
	ctx context.Context, filter, update any, opts ...*options.UpdateOptions,
) (*mongo.UpdateResult, error) {
	return c.coll.UpdateOne(ctx, filter, update, opts...)
}

// DeleteOne delegates to the driver.
func (c *Collection) DeleteOne(
	ctx context.Context, filter any, opts ...*options.DeleteOptions,
) (*mongo.DeleteResult, error) {
	return c.coll.DeleteOne(ctx, filter, opts...)
}

// FindOneAndUpdate delegates to the driver.
func (c *Collection) FindOneAndUpdate(
	ctx context.Context, filter, update any, opts ...*options.FindOneAndUpdateOptions,
) *mongo.SingleResult {
	return c.coll.FindOneAndUpdate(ctx, filter, update, opts...)
}

// FindOneAndDelete delegates to the driver.
func (c *Collection) FindOneAndDelete(
	ctx context.Context, filter any, opts ...*options.FindOneAndDeleteOptions,
) *mongo.SingleResult {
	return c.coll.FindOneAndDelete(ctx, filter, opts...)
}

// Aggregate delegates to the driver.
func (c *Collection) Aggregate(
	ctx context.Context, pipeline any, opts ...*options.AggregateOptions,
) (*mongo.Cursor, error) {
	return c.coll.Aggregate(ctx, pipeline, opts...)
}

// CreateIndexes creates all models in one createIndexes command.
func (c *Collection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error) {
	return c.coll.Indexes().CreateMany(ctx, models)
}

// DropIndexes drops every index except _id.
func (c *Collection) DropIndexes(ctx context.Context) error {
	_, err := c.coll.Indexes().DropAll(ctx)
	return err
}

// Options reads the collection's creation options via listCollections.
func (c *Collection) Options(ctx context.Context) (bson.Raw, error) {
	specs, err := c.coll.Database().ListCollectionSpecifications(ctx, bson.D{{Key: "name", Value: c.coll.Name()}})
	if err != nil {
		return nil, &db.Error{Op: db.OpListCollections, Err: err}
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%s: %w", c.coll.Name(), db.ErrCollectionNotFound)
	}
	return specs[0].Options, nil
}
