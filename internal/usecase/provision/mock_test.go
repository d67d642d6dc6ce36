package provision

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kailas-cloud/mongoly"
)

// mockCollection implements only the index calls; the rest is unused here.
type mockCollection struct {
	mongoly.Collection
	name            string
	dropIndexesFn   func(ctx context.Context) error
	createIndexesFn func(ctx context.Context, models []mongo.IndexModel) ([]string, error)
}

func (m *mockCollection) Name() string { return m.name }

func (m *mockCollection) DropIndexes(ctx context.Context) error { return m.dropIndexesFn(ctx) }

func (m *mockCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error) {
	return m.createIndexesFn(ctx, models)
}

type mockDatabase struct {
	coll      *mockCollection
	requested string
}

func (m *mockDatabase) Name() string { return "test" }

func (m *mockDatabase) Collection(name string) mongoly.Collection {
	m.requested = name
	return m.coll
}

func (m *mockDatabase) ListCollectionNames(context.Context, any) ([]string, error) {
	return nil, nil
}

func (m *mockDatabase) CreateCollection(context.Context, string, ...*options.CreateCollectionOptions) error {
	return nil
}

func (m *mockDatabase) RunCommand(context.Context, any) error { return nil }
