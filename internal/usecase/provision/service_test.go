package provision

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/mongoly"
	"github.com/kailas-cloud/mongoly/internal/config"
	"github.com/kailas-cloud/mongoly/internal/metrics"
	"github.com/kailas-cloud/mongoly/jsonschema"
)

// --- Mocks ---

type schemaCall struct {
	collection string
	schema     jsonschema.Node
}

type indexCall struct {
	collection string
	drop       bool
	models     []mongo.IndexModel
}

type mockProvisioner struct {
	schemaCalls []schemaCall
	indexCalls  []indexCall
	action      mongoly.SchemaAction
	schemaErr   error
	indexErr    error
}

func (m *mockProvisioner) EnsureSchema(
	_ context.Context, collection string, schema jsonschema.Node,
) (mongoly.SchemaAction, error) {
	m.schemaCalls = append(m.schemaCalls, schemaCall{collection, schema})
	return m.action, m.schemaErr
}

func (m *mockProvisioner) EnsureIndexes(
	_ context.Context, collection string, drop bool, models []mongo.IndexModel,
) ([]string, error) {
	m.indexCalls = append(m.indexCalls, indexCall{collection, drop, models})
	if m.indexErr != nil {
		return nil, m.indexErr
	}
	names := make([]string, 0, len(models))
	for i := range models {
		names = append(names, collection+"_idx_"+string(rune('0'+i)))
	}
	return names, nil
}

func usersConfig() config.CollectionConfig {
	return config.CollectionConfig{
		Name: "users",
		Schema: map[string]any{
			"bsonType": "object",
			"required": []any{"email"},
			"properties": map[string]any{
				"email": map[string]any{"bsonType": "string"},
			},
		},
		Indexes: []config.IndexConfig{
			{Name: "email_unique", Unique: true, Keys: []config.IndexKeyConfig{{Field: "email"}}},
		},
	}
}

// --- Tests ---

func TestApply_SchemaAndIndexes(t *testing.T) {
	p := &mockProvisioner{action: mongoly.SchemaCreated}
	m := metrics.New(prometheus.NewRegistry())
	svc := New(p, []config.CollectionConfig{usersConfig()}, m, nil)

	res, err := svc.Apply(context.Background(), "users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Result{Collection: "users", Schema: "created", Indexes: []string{"users_idx_0"}}
	if !reflect.DeepEqual(res, want) {
		t.Errorf("result = %+v, want %+v", res, want)
	}
	if len(p.schemaCalls) != 1 {
		t.Fatalf("schema calls = %d, want 1", len(p.schemaCalls))
	}
	if _, ok := p.schemaCalls[0].schema.(jsonschema.Object); !ok {
		t.Errorf("schema = %T, want jsonschema.Object", p.schemaCalls[0].schema)
	}

	keys := p.indexCalls[0].models[0].Keys.(bson.D)
	if keys[0].Key != "email" || keys[0].Value != int32(1) {
		t.Errorf("index keys = %v", keys)
	}
}

func TestApply_NoSchemaNoIndexes(t *testing.T) {
	p := &mockProvisioner{}
	svc := New(p, []config.CollectionConfig{{Name: "logs"}}, nil, nil)

	res, err := svc.Apply(context.Background(), "logs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Schema != "skipped" {
		t.Errorf("schema = %q, want skipped", res.Schema)
	}
	if len(p.schemaCalls) != 0 || len(p.indexCalls) != 0 {
		t.Errorf("expected no provisioner calls, got %d schema, %d index", len(p.schemaCalls), len(p.indexCalls))
	}
}

func TestApply_DropWithoutIndexesStillDrops(t *testing.T) {
	p := &mockProvisioner{}
	svc := New(p, []config.CollectionConfig{{Name: "logs", DropIndexes: true}}, nil, nil)

	res, err := svc.Apply(context.Background(), "logs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.indexCalls) != 1 || !p.indexCalls[0].drop || len(p.indexCalls[0].models) != 0 {
		t.Errorf("index calls = %+v, want one drop with no models", p.indexCalls)
	}
	if !res.Dropped {
		t.Error("Dropped = false, want true")
	}
}

func TestApply_UnknownCollection(t *testing.T) {
	svc := New(&mockProvisioner{}, nil, nil, nil)

	_, err := svc.Apply(context.Background(), "ghost")
	if !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestApply_SchemaErrorSkipsIndexes(t *testing.T) {
	p := &mockProvisioner{schemaErr: errors.New("not authorized")}
	svc := New(p, []config.CollectionConfig{usersConfig()}, nil, nil)

	if _, err := svc.Apply(context.Background(), "users"); err == nil {
		t.Fatal("expected error")
	}
	if len(p.indexCalls) != 0 {
		t.Errorf("index calls = %d, want 0 after schema failure", len(p.indexCalls))
	}
}

func TestApplyAll_StopsAtFirstFailure(t *testing.T) {
	p := &mockProvisioner{action: mongoly.SchemaUnchanged}
	bad := config.CollectionConfig{
		Name:    "broken",
		Indexes: []config.IndexConfig{{Keys: []config.IndexKeyConfig{{Field: "x", Kind: "sideways"}}}},
	}
	svc := New(p, []config.CollectionConfig{usersConfig(), bad, {Name: "never"}}, nil, nil)

	results, err := svc.ApplyAll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(results) != 1 || results[0].Collection != "users" || results[0].Schema != "unchanged" {
		t.Errorf("results = %+v", results)
	}
	if got := svc.Names(); !reflect.DeepEqual(got, []string{"users", "broken", "never"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestDatabaseProvisioner(t *testing.T) {
	var dropped, created bool
	coll := &mockCollection{
		name:            "users",
		dropIndexesFn:   func(context.Context) error { dropped = true; return nil },
		createIndexesFn: func(context.Context, []mongo.IndexModel) ([]string, error) { created = true; return []string{"a_1"}, nil },
	}
	database := &mockDatabase{coll: coll}

	p := NewDatabaseProvisioner(database)
	names, err := p.EnsureIndexes(context.Background(), "users", true,
		[]mongo.IndexModel{mongoly.NewIndex().Asc("a").MustBuild()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dropped || !created || len(names) != 1 {
		t.Errorf("dropped=%v created=%v names=%v", dropped, created, names)
	}
	if database.requested != "users" {
		t.Errorf("collection requested = %q", database.requested)
	}
}
