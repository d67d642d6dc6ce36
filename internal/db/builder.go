package db

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// IndexBuilder is a fluent builder for index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an index definition.
func NewIndex() *IndexBuilder {
	return &IndexBuilder{}
}

// Name sets an explicit index name. The server derives one when empty.
func (b *IndexBuilder) Name(name string) *IndexBuilder {
	b.def.Name = name
	return b
}

// Asc adds ascending key fields.
func (b *IndexBuilder) Asc(fields ...string) *IndexBuilder {
	return b.key(IndexAsc, fields)
}

// Desc adds descending key fields.
func (b *IndexBuilder) Desc(fields ...string) *IndexBuilder {
	return b.key(IndexDesc, fields)
}

// Text adds text key fields.
func (b *IndexBuilder) Text(fields ...string) *IndexBuilder {
	return b.key(IndexText, fields)
}

// Hashed adds a hashed key field.
func (b *IndexBuilder) Hashed(field string) *IndexBuilder {
	return b.key(IndexHashed, []string{field})
}

// Geo2DSphere adds a 2dsphere key field.
func (b *IndexBuilder) Geo2DSphere(field string) *IndexBuilder {
	return b.key(Index2DSphere, []string{field})
}

// Key adds a field with an explicit kind.
func (b *IndexBuilder) Key(field string, kind IndexKind) *IndexBuilder {
	return b.key(kind, []string{field})
}

// Unique marks the index unique.
func (b *IndexBuilder) Unique() *IndexBuilder {
	b.def.Unique = true
	return b
}

// Sparse marks the index sparse.
func (b *IndexBuilder) Sparse() *IndexBuilder {
	b.def.Sparse = true
	return b
}

// TTL sets expireAfterSeconds (whole seconds).
func (b *IndexBuilder) TTL(d time.Duration) *IndexBuilder {
	b.def.TTL = d
	return b
}

// Partial sets the partialFilterExpression.
func (b *IndexBuilder) Partial(filter bson.D) *IndexBuilder {
	b.def.PartialFilter = filter
	return b
}

// Definition validates and returns the index definition.
func (b *IndexBuilder) Definition() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	def.Keys = append([]IndexKey(nil), b.def.Keys...)
	return &def, nil
}

// Build validates and returns the driver index model.
func (b *IndexBuilder) Build() (mongo.IndexModel, error) {
	def, err := b.Definition()
	if err != nil {
		return mongo.IndexModel{}, err
	}
	return def.Model(), nil
}

// MustBuild calls Build and panics on error.
func (b *IndexBuilder) MustBuild() mongo.IndexModel {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

func (b *IndexBuilder) key(kind IndexKind, fields []string) *IndexBuilder {
	for _, f := range fields {
		b.def.Keys = append(b.def.Keys, IndexKey{Field: f, Kind: kind})
	}
	return b
}
