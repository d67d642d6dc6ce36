package mongoly

import (
	"context"
	"fmt"
	"reflect"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mongoly/internal/logger"
	"github.com/kailas-cloud/mongoly/jsonschema"
)

const jsonSchemaKey = "$jsonSchema"

// SchemaAction reports what EnsureSchema did.
type SchemaAction int

// Outcomes of EnsureSchema.
const (
	SchemaUnchanged SchemaAction = iota
	SchemaCreated
	SchemaUpdated
)

func (a SchemaAction) String() string {
	switch a {
	case SchemaCreated:
		return "created"
	case SchemaUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// EnsureSchema makes the $jsonSchema validator of collection name equal to
// schema. A missing collection is created with the validator attached; an
// existing one is modified only when its stored schema differs, and any
// other validator keys are kept. Repeated calls with the same schema issue
// no mutating command.
func EnsureSchema(
	ctx context.Context, database Database, name string, schema jsonschema.Node,
) (SchemaAction, error) {
	if err := jsonschema.Validate(schema); err != nil {
		return SchemaUnchanged, err
	}
	desired := schema.Document()
	log := logger.FromContext(ctx).With(zap.String("collection", name))

	names, err := database.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return SchemaUnchanged, fmt.Errorf("ensure schema %s: list collections: %w", name, err)
	}

	if !lo.Contains(names, name) {
		opts := options.CreateCollection().SetValidator(bson.D{{Key: jsonSchemaKey, Value: desired}})
		if err := database.CreateCollection(ctx, name, opts); err != nil {
			return SchemaUnchanged, fmt.Errorf("ensure schema %s: create: %w", name, err)
		}
		log.Info("collection created with schema")
		return SchemaCreated, nil
	}

	stored, err := database.Collection(name).Options(ctx)
	if err != nil {
		return SchemaUnchanged, fmt.Errorf("ensure schema %s: %w", name, err)
	}
	validator, current, err := splitValidator(stored)
	if err != nil {
		return SchemaUnchanged, fmt.Errorf("ensure schema %s: %w", name, err)
	}

	if current != nil {
		equal, err := schemasEqual(current, desired)
		if err != nil {
			return SchemaUnchanged, fmt.Errorf("ensure schema %s: %w", name, err)
		}
		if equal {
			log.Debug("schema unchanged")
			return SchemaUnchanged, nil
		}
	}

	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: withSchema(validator, desired)},
	}
	if err := database.RunCommand(ctx, cmd); err != nil {
		return SchemaUnchanged, fmt.Errorf("ensure schema %s: collMod: %w", name, err)
	}
	log.Info("schema updated")
	return SchemaUpdated, nil
}

// EnsureIndexes optionally drops every secondary index on coll and then
// creates models. An empty models list creates nothing. The two steps are
// not atomic: a failure during creation leaves dropped indexes dropped.
func EnsureIndexes(
	ctx context.Context, coll Collection, dropExisting bool, models []mongo.IndexModel,
) ([]string, error) {
	log := logger.FromContext(ctx).With(zap.String("collection", coll.Name()))

	if dropExisting {
		if err := coll.DropIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure indexes %s: drop: %w", coll.Name(), err)
		}
		log.Info("indexes dropped")
	}
	if len(models) == 0 {
		return nil, nil
	}

	names, err := coll.CreateIndexes(ctx, models)
	if err != nil {
		return nil, fmt.Errorf("ensure indexes %s: create: %w", coll.Name(), err)
	}
	log.Info("indexes ensured", zap.Strings("indexes", names))
	return names, nil
}

// splitValidator returns the stored validator document and its
// $jsonSchema member, either of which may be absent.
func splitValidator(opts bson.Raw) (bson.D, bson.Raw, error) {
	if len(opts) == 0 {
		return nil, nil, nil
	}
	v, err := opts.LookupErr("validator")
	if err != nil {
		return nil, nil, nil //nolint:nilerr // no validator set
	}
	raw, ok := v.DocumentOK()
	if !ok {
		return nil, nil, fmt.Errorf("validator is %s, want document", v.Type)
	}

	var validator bson.D
	if err := bson.Unmarshal(raw, &validator); err != nil {
		return nil, nil, fmt.Errorf("decode validator: %w", err)
	}
	s, err := raw.LookupErr(jsonSchemaKey)
	if err != nil {
		return validator, nil, nil //nolint:nilerr // validator without $jsonSchema
	}
	schema, ok := s.DocumentOK()
	if !ok {
		return validator, nil, nil
	}
	return validator, schema, nil
}

// withSchema copies validator with $jsonSchema set to schema, keeping the
// position of an existing entry.
func withSchema(validator, schema bson.D) bson.D {
	out := make(bson.D, 0, len(validator)+1)
	replaced := false
	for _, e := range validator {
		if e.Key == jsonSchemaKey {
			e.Value = schema
			replaced = true
		}
		out = append(out, e)
	}
	if !replaced {
		out = append(out, bson.E{Key: jsonSchemaKey, Value: schema})
	}
	return out
}

// schemasEqual compares documents structurally: key order is ignored and
// every numeric type compares by value.
func schemasEqual(stored bson.Raw, desired bson.D) (bool, error) {
	b, err := bson.Marshal(desired)
	if err != nil {
		return false, fmt.Errorf("marshal schema: %w", err)
	}
	return reflect.DeepEqual(normalize(bson.RawValue{Type: bsontype.EmbeddedDocument, Value: stored}),
		normalize(bson.RawValue{Type: bsontype.EmbeddedDocument, Value: b})), nil
}

func normalize(v bson.RawValue) any {
	switch v.Type {
	case bsontype.EmbeddedDocument:
		elems, err := v.Document().Elements()
		if err != nil {
			return v.String()
		}
		m := make(map[string]any, len(elems))
		for _, e := range elems {
			m[e.Key()] = normalize(e.Value())
		}
		return m
	case bsontype.Array:
		vals, err := v.Array().Values()
		if err != nil {
			return v.String()
		}
		out := make([]any, len(vals))
		for i, item := range vals {
			out[i] = normalize(item)
		}
		return out
	case bsontype.Int32:
		return float64(v.Int32())
	case bsontype.Int64:
		return float64(v.Int64())
	case bsontype.Double:
		return v.Double()
	case bsontype.String:
		return v.StringValue()
	case bsontype.Boolean:
		return v.Boolean()
	case bsontype.Null, bsontype.Undefined:
		return nil
	default:
		return v.Type.String() + ":" + v.String()
	}
}
