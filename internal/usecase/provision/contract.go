package provision

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/mongoly"
	"github.com/kailas-cloud/mongoly/jsonschema"
)

// Provisioner applies validators and indexes to named collections.
type Provisioner interface {
	EnsureSchema(ctx context.Context, collection string, schema jsonschema.Node) (mongoly.SchemaAction, error)
	EnsureIndexes(ctx context.Context, collection string, drop bool, models []mongo.IndexModel) ([]string, error)
}

// DatabaseProvisioner implements Provisioner on one database.
type DatabaseProvisioner struct {
	db mongoly.Database
}

// NewDatabaseProvisioner creates a Provisioner backed by database.
func NewDatabaseProvisioner(database mongoly.Database) *DatabaseProvisioner {
	return &DatabaseProvisioner{db: database}
}

// EnsureSchema delegates to mongoly.EnsureSchema.
func (p *DatabaseProvisioner) EnsureSchema(
	ctx context.Context, collection string, schema jsonschema.Node,
) (mongoly.SchemaAction, error) {
	return mongoly.EnsureSchema(ctx, p.db, collection, schema)
}

// EnsureIndexes delegates to mongoly.EnsureIndexes.
func (p *DatabaseProvisioner) EnsureIndexes(
	ctx context.Context, collection string, drop bool, models []mongo.IndexModel,
) ([]string, error) {
	return mongoly.EnsureIndexes(ctx, p.db.Collection(collection), drop, models)
}
