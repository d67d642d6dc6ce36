package mongoly

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mongoly/internal/db"
	dbMongo "github.com/kailas-cloud/mongoly/internal/db/mongo"
	"github.com/kailas-cloud/mongoly/internal/logger"
)

// Collection is the collection surface the helpers operate on.
type Collection = db.Collection

// Database is the database surface the provisioning helpers operate on.
type Database = db.Database

// IndexBuilder composes a single index description.
type IndexBuilder = db.IndexBuilder

// IndexDefinition is the declarative form of an index.
type IndexDefinition = db.IndexDefinition

// NewIndex starts an index description.
func NewIndex() *IndexBuilder { return db.NewIndex() }

// WrapCollection adapts a driver collection handle.
func WrapCollection(c *mongo.Collection) Collection {
	return dbMongo.NewCollection(c)
}

// WrapDatabase adapts a driver database handle.
func WrapDatabase(d *mongo.Database) Database {
	return dbMongo.NewDatabase(d)
}

// ContextWithLogger attaches l to ctx. EnsureSchema, EnsureIndexes and
// observed handles without WithLogger log through it.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return logger.ContextWithLogger(ctx, l)
}
