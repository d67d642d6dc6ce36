package mongoly

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// --- Collection mock ---

type mockCollection struct {
	name               string
	findOneFn          func(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	updateOneFn        func(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	deleteOneFn        func(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	findOneAndUpdateFn func(ctx context.Context, filter, update any, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	findOneAndDeleteFn func(ctx context.Context, filter any, opts ...*options.FindOneAndDeleteOptions) *mongo.SingleResult
	aggregateFn        func(ctx context.Context, pipeline any, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
	createIndexesFn    func(ctx context.Context, models []mongo.IndexModel) ([]string, error)
	dropIndexesFn      func(ctx context.Context) error
	optionsFn          func(ctx context.Context) (bson.Raw, error)
}

func (m *mockCollection) Name() string { return m.name }

func (m *mockCollection) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult {
	return m.findOneFn(ctx, filter, opts...)
}

func (m *mockCollection) UpdateOne(
	ctx context.Context, filter, update any, opts ...*options.UpdateOptions,
) (*mongo.UpdateResult, error) {
	return m.updateOneFn(ctx, filter, update, opts...)
}

func (m *mockCollection) DeleteOne(
	ctx context.Context, filter any, opts ...*options.DeleteOptions,
) (*mongo.DeleteResult, error) {
	return m.deleteOneFn(ctx, filter, opts...)
}

func (m *mockCollection) FindOneAndUpdate(
	ctx context.Context, filter, update any, opts ...*options.FindOneAndUpdateOptions,
) *mongo.SingleResult {
	return m.findOneAndUpdateFn(ctx, filter, update, opts...)
}

func (m *mockCollection) FindOneAndDelete(
	ctx context.Context, filter any, opts ...*options.FindOneAndDeleteOptions,
) *mongo.SingleResult {
	return m.findOneAndDeleteFn(ctx, filter, opts...)
}

func (m *mockCollection) Aggregate(
	ctx context.Context, pipeline any, opts ...*options.AggregateOptions,
) (*mongo.Cursor, error) {
	return m.aggregateFn(ctx, pipeline, opts...)
}

func (m *mockCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error) {
	return m.createIndexesFn(ctx, models)
}

func (m *mockCollection) DropIndexes(ctx context.Context) error {
	return m.dropIndexesFn(ctx)
}

func (m *mockCollection) Options(ctx context.Context) (bson.Raw, error) {
	return m.optionsFn(ctx)
}

// --- Database mock ---

type mockDatabase struct {
	name                  string
	collectionFn          func(name string) Collection
	listCollectionNamesFn func(ctx context.Context, filter any) ([]string, error)
	createCollectionFn    func(ctx context.Context, name string, opts ...*options.CreateCollectionOptions) error
	runCommandFn          func(ctx context.Context, cmd any) error
}

func (m *mockDatabase) Name() string { return m.name }

func (m *mockDatabase) Collection(name string) Collection {
	return m.collectionFn(name)
}

func (m *mockDatabase) ListCollectionNames(ctx context.Context, filter any) ([]string, error) {
	return m.listCollectionNamesFn(ctx, filter)
}

func (m *mockDatabase) CreateCollection(
	ctx context.Context, name string, opts ...*options.CreateCollectionOptions,
) error {
	return m.createCollectionFn(ctx, name, opts...)
}

func (m *mockDatabase) RunCommand(ctx context.Context, cmd any) error {
	return m.runCommandFn(ctx, cmd)
}

// --- driver fakes ---

func singleResult(doc any) *mongo.SingleResult {
	return mongo.NewSingleResultFromDocument(doc, nil, nil)
}

func noDocument() *mongo.SingleResult {
	return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
}

func cursorOf(docs ...any) *mongo.Cursor {
	cur, err := mongo.NewCursorFromDocuments(docs, nil, nil)
	if err != nil {
		panic(err)
	}
	return cur
}
