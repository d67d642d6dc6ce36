package jsonschema

import (
	"sort"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
)

// Node is one schema document. The set of implementations is closed.
type Node interface {
	// Document renders the node as an ordered BSON document.
	Document() bson.D
	node()
}

// Additional is the "boolean or schema" value used by additionalProperties
// and additionalItems.
type Additional struct {
	allowed bool
	schema  Node
}

// Allow permits (true) or forbids (false) additional members.
func Allow(allowed bool) *Additional {
	return &Additional{allowed: allowed}
}

// AdditionalSchema constrains additional members to a schema.
func AdditionalSchema(n Node) *Additional {
	return &Additional{schema: n}
}

// Schema returns the constraining schema, nil for the boolean form.
func (a *Additional) Schema() Node { return a.schema }

// Allowed returns the boolean form's value.
func (a *Additional) Allowed() bool { return a.allowed }

func (a *Additional) value() any {
	if a.schema != nil {
		return a.schema.Document()
	}
	return a.allowed
}

// Int returns a pointer to n, for optional integer keywords.
func Int(n int) *int { return &n }

// Float returns a pointer to f, for optional numeric keywords.
func Float(f float64) *float64 { return &f }

// Boolean matches booleans ("boolean" / "bool").
type Boolean struct {
	Meta
	Keyword Keyword
}

// Null matches null.
type Null struct {
	Meta
	Keyword Keyword
}

// Number matches numbers. BSONType narrows the bsonType alias and
// defaults to "number"; it must stay empty with KeywordJSON.
type Number struct {
	Meta
	Keyword          Keyword
	BSONType         BSONType
	Minimum          *float64
	ExclusiveMinimum bool
	Maximum          *float64
	ExclusiveMaximum bool
	MultipleOf       *float64
}

// String matches strings.
type String struct {
	Meta
	Keyword   Keyword
	MinLength *int
	MaxLength *int
	Pattern   string
}

// Object matches embedded documents.
type Object struct {
	Meta
	Keyword              Keyword
	Properties           map[string]Node
	Required             []string
	PatternProperties    map[string]Node
	AdditionalProperties *Additional
	Dependencies         map[string][]string
	MinProperties        *int
	MaxProperties        *int
}

// Array matches arrays. Items applies to every element; TupleItems
// validates by position. At most one of them may be set.
type Array struct {
	Meta
	Keyword         Keyword
	Items           Node
	TupleItems      []Node
	AdditionalItems *Additional
	MinItems        *int
	MaxItems        *int
	UniqueItems     bool
}

// BSON matches one of the BSON-only types (objectId, date, ...).
type BSON struct {
	Meta
	Type BSONType
}

// Enum matches one of a fixed set of values.
type Enum struct {
	Meta
	Values []any
}

// AllOf matches when every sub-schema matches.
type AllOf struct {
	Meta
	Of []Node
}

// AnyOf matches when at least one sub-schema matches.
type AnyOf struct {
	Meta
	Of []Node
}

// OneOf matches when exactly one sub-schema matches.
type OneOf struct {
	Meta
	Of []Node
}

// Not matches when the sub-schema does not.
type Not struct {
	Meta
	Schema Node
}

func (Boolean) node() {}
func (Null) node()    {}
func (Number) node()  {}
func (String) node()  {}
func (Object) node()  {}
func (Array) node()   {}
func (BSON) node()    {}
func (Enum) node()    {}
func (AllOf) node()   {}
func (AnyOf) node()   {}
func (OneOf) node()   {}
func (Not) node()     {}

// Document implements Node.
func (n Boolean) Document() bson.D {
	return typed(n.Keyword, string(JSONBoolean), string(BSONBool), n.Meta)
}

// Document implements Node.
func (n Null) Document() bson.D {
	return typed(n.Keyword, string(JSONNull), string(BSONNull), n.Meta)
}

// Document implements Node.
func (n Number) Document() bson.D {
	bt := n.BSONType
	if bt == "" {
		bt = BSONNumber
	}
	d := typed(n.Keyword, string(JSONNumber), string(bt), n.Meta)
	if n.Minimum != nil {
		d = append(d, bson.E{Key: "minimum", Value: *n.Minimum})
		if n.ExclusiveMinimum {
			d = append(d, bson.E{Key: "exclusiveMinimum", Value: true})
		}
	}
	if n.Maximum != nil {
		d = append(d, bson.E{Key: "maximum", Value: *n.Maximum})
		if n.ExclusiveMaximum {
			d = append(d, bson.E{Key: "exclusiveMaximum", Value: true})
		}
	}
	if n.MultipleOf != nil {
		d = append(d, bson.E{Key: "multipleOf", Value: *n.MultipleOf})
	}
	return d
}

// Document implements Node.
func (n String) Document() bson.D {
	d := typed(n.Keyword, string(JSONString), string(BSONString), n.Meta)
	d = appendInt(d, "minLength", n.MinLength)
	d = appendInt(d, "maxLength", n.MaxLength)
	if n.Pattern != "" {
		d = append(d, bson.E{Key: "pattern", Value: n.Pattern})
	}
	return d
}

// Document implements Node.
func (n Object) Document() bson.D {
	d := typed(n.Keyword, string(JSONObject), string(BSONObject), n.Meta)
	if len(n.Required) > 0 {
		d = append(d, bson.E{Key: "required", Value: bson.A(lo.ToAnySlice(n.Required))})
	}
	if len(n.Properties) > 0 {
		d = append(d, bson.E{Key: "properties", Value: nodeMap(n.Properties)})
	}
	if len(n.PatternProperties) > 0 {
		d = append(d, bson.E{Key: "patternProperties", Value: nodeMap(n.PatternProperties)})
	}
	if n.AdditionalProperties != nil {
		d = append(d, bson.E{Key: "additionalProperties", Value: n.AdditionalProperties.value()})
	}
	if len(n.Dependencies) > 0 {
		deps := make(bson.D, 0, len(n.Dependencies))
		for _, k := range sortedKeys(n.Dependencies) {
			deps = append(deps, bson.E{Key: k, Value: bson.A(lo.ToAnySlice(n.Dependencies[k]))})
		}
		d = append(d, bson.E{Key: "dependencies", Value: deps})
	}
	d = appendInt(d, "minProperties", n.MinProperties)
	d = appendInt(d, "maxProperties", n.MaxProperties)
	return d
}

// Document implements Node.
func (n Array) Document() bson.D {
	d := typed(n.Keyword, string(JSONArray), string(BSONArray), n.Meta)
	switch {
	case n.Items != nil:
		d = append(d, bson.E{Key: "items", Value: n.Items.Document()})
	case len(n.TupleItems) > 0:
		d = append(d, bson.E{Key: "items", Value: nodeList(n.TupleItems)})
	}
	if n.AdditionalItems != nil {
		d = append(d, bson.E{Key: "additionalItems", Value: n.AdditionalItems.value()})
	}
	d = appendInt(d, "minItems", n.MinItems)
	d = appendInt(d, "maxItems", n.MaxItems)
	if n.UniqueItems {
		d = append(d, bson.E{Key: "uniqueItems", Value: true})
	}
	return d
}

// Document implements Node.
func (n BSON) Document() bson.D {
	return appendMeta(bson.D{{Key: "bsonType", Value: string(n.Type)}}, n.Meta)
}

// Document implements Node.
func (n Enum) Document() bson.D {
	return appendMeta(bson.D{{Key: "enum", Value: bson.A(n.Values)}}, n.Meta)
}

// Document implements Node.
func (n AllOf) Document() bson.D {
	return appendMeta(bson.D{{Key: "allOf", Value: nodeList(n.Of)}}, n.Meta)
}

// Document implements Node.
func (n AnyOf) Document() bson.D {
	return appendMeta(bson.D{{Key: "anyOf", Value: nodeList(n.Of)}}, n.Meta)
}

// Document implements Node.
func (n OneOf) Document() bson.D {
	return appendMeta(bson.D{{Key: "oneOf", Value: nodeList(n.Of)}}, n.Meta)
}

// Document implements Node.
func (n Not) Document() bson.D {
	var inner any
	if n.Schema != nil {
		inner = n.Schema.Document()
	}
	return appendMeta(bson.D{{Key: "not", Value: inner}}, n.Meta)
}

// MarshalBSON implements bson.Marshaler.
func (n Boolean) MarshalBSON() ([]byte, error) { return bson.Marshal(n.Document()) }

// MarshalBSON implements bson.Marshaler.
func (n Null) MarshalBSON() ([]byte, error) { return bson.Marshal(n.Document()) }

// MarshalBSON implements bson.Marshaler.
func (n Number) MarshalBSON() ([]byte, error) { return bson.Marshal(n.Document()) }

// MarshalBSON implements bson.Marshaler.
func (n String) MarshalBSON() ([]byte, error) { return bson.Marshal(n.Document()) }

// MarshalBSON implements bson.Marshaler.
func (n Object) MarshalBSON() ([]byte, error) { return bson.Marshal(n.Document()) }

// MarshalBSON implements bson.Marshaler.
func (n Array) MarshalBSON() ([]byte, error) { return bson.Marshal(n.Document()) }

// MarshalBSON implements bson.Marshaler.
func (n BSON) MarshalBSON() ([]byte, error) { return bson.Marshal(n.Document()) }

// MarshalBSON implements bson.Marshaler.
func (n Enum) MarshalBSON() ([]byte, error) { return bson.Marshal(n.Document()) }

// MarshalBSON implements bson.Marshaler.
func (n AllOf) MarshalBSON() ([]byte, error) { return bson.Marshal(n.Document()) }

// MarshalBSON implements bson.Marshaler.
func (n AnyOf) MarshalBSON() ([]byte, error) { return bson.Marshal(n.Document()) }

// MarshalBSON implements bson.Marshaler.
func (n OneOf) MarshalBSON() ([]byte, error) { return bson.Marshal(n.Document()) }

// MarshalBSON implements bson.Marshaler.
func (n Not) MarshalBSON() ([]byte, error) { return bson.Marshal(n.Document()) }

func typed(k Keyword, jsonName, bsonName string, m Meta) bson.D {
	name := bsonName
	if k == KeywordJSON {
		name = jsonName
	}
	return appendMeta(bson.D{{Key: k.Key(), Value: name}}, m)
}

func appendMeta(d bson.D, m Meta) bson.D {
	if m.Title != "" {
		d = append(d, bson.E{Key: "title", Value: m.Title})
	}
	if m.Description != "" {
		d = append(d, bson.E{Key: "description", Value: m.Description})
	}
	return d
}

func appendInt(d bson.D, key string, v *int) bson.D {
	if v == nil {
		return d
	}
	return append(d, bson.E{Key: key, Value: int64(*v)})
}

func nodeMap(m map[string]Node) bson.D {
	d := make(bson.D, 0, len(m))
	for _, k := range sortedKeys(m) {
		var v any
		if m[k] != nil {
			v = m[k].Document()
		}
		d = append(d, bson.E{Key: k, Value: v})
	}
	return d
}

func nodeList(nodes []Node) bson.A {
	a := make(bson.A, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			a = append(a, nil)
			continue
		}
		a = append(a, n.Document())
	}
	return a
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
